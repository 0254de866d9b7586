package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaahk/wxdecode/internal/api"
	"github.com/vaahk/wxdecode/internal/config"
	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/observability"
	"github.com/vaahk/wxdecode/internal/publish"
	"github.com/vaahk/wxdecode/internal/storage/postgres"
	"github.com/vaahk/wxdecode/internal/storage/sqlite"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/internal/websocket"
	"github.com/vaahk/wxdecode/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

type archive interface {
	weather.Archive
	io.Closer
}

func openArchive(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (archive, error) {
	switch cfg.Type {
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		s, err := sqlite.NewReportStorage(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoragePostgres:
		s, err := postgres.Open(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, nil
}

func openPublishers(cfg config.PublishConfig, log *logger.Logger) (publish.Multi, error) {
	var pubs publish.Multi
	if cfg.NATSURL != "" {
		n, err := publish.NewNATS(cfg.NATSURL, cfg.NATSSubject, log)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, n)
	}
	if len(cfg.KafkaBrokers) > 0 {
		pubs = append(pubs, publish.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log))
	}
	return pubs, nil
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting wxdecode server",
		logger.String("version", Version),
		logger.String("station", cfg.Station.AirportCode),
		logger.String("config_path", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dec := decoder.New(cfg.Station.ExtraStations)
	name, _ := dec.StationName(cfg.Station.AirportCode)
	station := cfg.StationInfo(name)

	opts := []weather.Option{weather.WithDecoder(dec)}

	store, err := openArchive(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("Failed to open report archive", logger.Error(err), logger.String("type", cfg.Storage.Type))
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, weather.WithArchive(store))
		log.Info("Report archive enabled", logger.String("type", cfg.Storage.Type))
	} else {
		log.Info("Report archive disabled")
	}

	publishers, err := openPublishers(cfg.Publish, log)
	if err != nil {
		log.Error("Failed to connect publisher", logger.Error(err))
		os.Exit(1)
	}
	if len(publishers) > 0 {
		defer publishers.Close()
		opts = append(opts, weather.WithPublisher(publishers))
	}

	wsServer := websocket.NewServer(log)
	wsServer.SetMessageHandler(api.NewDecodeMessageHandler(dec))
	opts = append(opts, weather.WithBroadcaster(wsServer))

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics()
		wsServer.SetObserver(metrics)
		opts = append(opts, weather.WithMetrics(metrics))
		metricsHandler = promhttp.Handler()
	}

	weatherService := weather.NewService(cfg.Weather, station, log, opts...)

	// new clients get the feed state and whatever is cached
	wsServer.SetWelcome(func() []*websocket.Message {
		msgs := []*websocket.Message{websocket.FeedStateMessage(weatherService.FeedState())}
		for _, kind := range decoder.Kinds() {
			if r, err := weatherService.DecodeLatest(ctx, kind); err == nil {
				msgs = append(msgs, websocket.ReportMessage(*r))
			}
		}
		return msgs
	})
	go wsServer.Run(ctx)

	if err := weatherService.Start(); err != nil {
		log.Error("Failed to start weather service", logger.Error(err))
		os.Exit(1)
	}

	router := api.NewRouter(weatherService, wsServer, cfg, metricsHandler, log)
	handler := router.Routes()

	var servers []*http.Server
	allPorts := append([]int{cfg.Server.Port}, cfg.Server.AdditionalPorts...)
	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	for _, port := range allPorts {
		server := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	if err := weatherService.Stop(); err != nil {
		log.Error("Error stopping weather service", logger.Error(err))
	}

	// stops the WebSocket hub
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait()

	log.Info("Server fully stopped")
}
