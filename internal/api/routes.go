package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaahk/wxdecode/internal/config"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/internal/websocket"
	"github.com/vaahk/wxdecode/pkg/logger"
)

// Router is the API router
type Router struct {
	handler        *Handler
	middleware     *Middleware
	config         *config.Config
	metricsHandler http.Handler
	logger         *logger.Logger
}

// NewRouter creates a new API router. metricsHandler may be nil.
func NewRouter(weatherService *weather.Service, wsServer *websocket.Server, config *config.Config, metricsHandler http.Handler, log *logger.Logger) *Router {
	return &Router{
		handler:        NewHandler(weatherService, wsServer, config, log),
		middleware:     NewMiddleware(log),
		config:         config,
		metricsHandler: metricsHandler,
		logger:         log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		// Weather
		router.Get("/wx", r.handler.GetWeatherData)
		router.Post("/wx/refresh", r.handler.RefreshWeather)
		router.Get("/wx/briefing", r.handler.GetBriefing)
		router.Get("/wx/history/{kind}", r.handler.GetHistory)
		router.Get("/wx/{kind}", r.handler.GetDecodedReport)
		router.Get("/wx/{kind}/raw", r.handler.GetRawReport)

		// Ad-hoc decoding
		router.Get("/decode", r.handler.Decode)
		router.Post("/decode", r.handler.Decode)

		router.Get("/stations", r.handler.GetStations)
		router.Get("/state", r.handler.GetState)
		router.Get("/ws", r.handler.HandleWebSocket)
		router.Get("/health", r.handler.GetHealth)
		router.Get("/config", r.handler.GetConfig)
	})

	// raw proxy addressed by ?type=
	router.Get("/api/weather", r.handler.GetRawByType)

	if r.metricsHandler != nil {
		path := r.config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, r.metricsHandler)
	}

	if r.config.Server.StaticFilesDir != "" {
		router.Handle("/*", NewStaticFileHandler(r.config.Server.StaticFilesDir, r.logger))
	}

	return router
}
