package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/pkg/logger"
)

// Archive persists every distinct report the service has seen.
type Archive interface {
	// Store returns the row id and whether the report was new.
	Store(ctx context.Context, r Report) (int64, bool, error)
	// Latest returns ErrNoData when nothing is stored for station and kind.
	Latest(ctx context.Context, station string, kind decoder.Kind) (*Report, error)
	History(ctx context.Context, station string, kind decoder.Kind, limit, offset int) ([]Report, error)
}

// Publisher fans a new report out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, r Report) error
}

// Broadcaster pushes updates to connected UI clients.
type Broadcaster interface {
	BroadcastReport(r Report)
	BroadcastFeedState(s FeedSnapshot)
}

// Metrics records feed activity.
type Metrics interface {
	RecordFetch(kind decoder.Kind, outcome string, d time.Duration)
	RecordDecoded(tokens []decoder.DecodedToken)
	SetFeedState(s FeedState)
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(decoder.Kind, string, time.Duration) {}
func (nopMetrics) RecordDecoded([]decoder.DecodedToken)            {}
func (nopMetrics) SetFeedState(FeedState)                          {}

// Option configures a Service
type Option func(*Service)

func WithClock(c clockwork.Clock) Option    { return func(s *Service) { s.clock = c } }
func WithDecoder(d *decoder.Decoder) Option { return func(s *Service) { s.decoder = d } }
func WithArchive(a Archive) Option          { return func(s *Service) { s.archive = a } }
func WithPublisher(p Publisher) Option      { return func(s *Service) { s.publisher = p } }
func WithBroadcaster(b Broadcaster) Option  { return func(s *Service) { s.broadcaster = b } }
func WithMetrics(m Metrics) Option          { return func(s *Service) { s.metrics = m } }

// Service manages weather data fetching, decoding and caching
type Service struct {
	config  WeatherConfig
	station Station
	client  *Client
	cache   *Cache
	feed    *FeedMachine
	logger  *logger.Logger

	clock       clockwork.Clock
	decoder     *decoder.Decoder
	archive     Archive
	publisher   Publisher
	broadcaster Broadcaster
	metrics     Metrics

	// Service lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex

	// one fetch at a time
	fetchMu sync.Mutex

	// Initial data readiness
	initialDataReady chan struct{}
	initialDataOnce  sync.Once
}

// NewService creates a new weather service
func NewService(config WeatherConfig, station Station, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		config:           config,
		station:          station,
		logger:           log.Named("weather-service").WithStation(station.ICAO),
		initialDataReady: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.decoder == nil {
		s.decoder = decoder.New(nil)
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	s.client = NewClient(config, log)
	s.cache = NewCache(config, s.clock, log)
	s.feed = NewFeedMachine(s.clock)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Start begins the weather service background operations
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info("Starting weather service",
		logger.Int("refresh_interval_minutes", s.config.RefreshIntervalMinutes))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.performInitialFetch()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.backgroundRefresh()
	}()

	s.started = true
	return nil
}

// Stop gracefully shuts down the weather service
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info("Stopping weather service")
	s.cancel()
	s.wg.Wait()

	s.started = false
	s.logger.Info("Weather service stopped")
	return nil
}

// IsStarted returns whether the service is currently running
func (s *Service) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Station returns the station the service watches
func (s *Service) Station() Station {
	return s.station
}

// Decoder returns the decoder used for incoming reports
func (s *Service) Decoder() *decoder.Decoder {
	return s.decoder
}

// Ready is closed once the first fetch has completed.
func (s *Service) Ready() <-chan struct{} {
	return s.initialDataReady
}

// GetWeatherData returns a copy of the cached data with derived conditions.
// It waits up to 30 seconds for the first fetch.
func (s *Service) GetWeatherData() *WeatherData {
	select {
	case <-s.initialDataReady:
	case <-s.clock.After(30 * time.Second):
		s.logger.Warn("Timeout waiting for initial weather data")
		return &WeatherData{
			Station:     s.station.ICAO,
			LastUpdated: s.clock.Now(),
			FetchErrors: []string{"Weather data is still being fetched, please try again in a moment"},
		}
	}

	data := s.cache.Get()
	if data == nil {
		s.logger.Warn("No weather data available after initial fetch completed")
		return &WeatherData{
			Station:     s.station.ICAO,
			LastUpdated: s.clock.Now(),
			FetchErrors: []string{"Weather data temporarily unavailable"},
		}
	}

	out := *data
	out.Conditions = ComputeConditions(s.station, data.METAR, s.clock.Now())
	return &out
}

// DecodeLatest returns the most recent report of a kind, from the cache or
// the archive. ErrNoData means neither has one.
func (s *Service) DecodeLatest(ctx context.Context, kind decoder.Kind) (*Report, error) {
	if r := s.cache.Report(kind); r != nil {
		return r, nil
	}
	if s.archive == nil {
		return nil, ErrNoData
	}
	r, err := s.archive.Latest(ctx, s.station.ICAO, kind)
	if err != nil {
		return nil, err
	}
	if len(r.Decoded) == 0 {
		r.Decoded = s.decoder.Decode(kind, r.Raw)
	}
	return r, nil
}

// History returns archived reports newest first, decoded on the way out.
func (s *Service) History(ctx context.Context, kind decoder.Kind, limit, offset int) ([]Report, error) {
	if s.archive == nil {
		return nil, ErrNoData
	}
	reports, err := s.archive.History(ctx, s.station.ICAO, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("loading %s history: %w", kind, err)
	}
	for i := range reports {
		if len(reports[i].Decoded) == 0 {
			reports[i].Decoded = s.decoder.Decode(kind, reports[i].Raw)
		}
	}
	return reports, nil
}

// FetchRaw proxies the raw bulletin text straight from upstream.
func (s *Service) FetchRaw(ctx context.Context, station string, kind decoder.Kind) (string, error) {
	if station == "" {
		station = s.station.ICAO
	}
	return s.client.GetReport(ctx, strings.ToUpper(station), kind)
}

// RefreshNow triggers an immediate refresh of weather data
func (s *Service) RefreshNow() {
	s.logger.Info("Manual weather refresh triggered")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetchAndUpdateCache(s.ctx)
	}()
}

// GetCacheStats returns cache statistics
func (s *Service) GetCacheStats() CacheStats {
	return s.cache.GetStats()
}

// FeedState returns the current feed snapshot
func (s *Service) FeedState() FeedSnapshot {
	return s.feed.Snapshot()
}

// Refresh runs one fetch cycle in the caller's goroutine.
func (s *Service) Refresh(ctx context.Context) {
	s.fetchAndUpdateCache(ctx)
	s.markReady()
}

func (s *Service) performInitialFetch() {
	s.logger.Info("Performing initial weather data fetch")
	s.Refresh(s.ctx)
}

func (s *Service) markReady() {
	s.initialDataOnce.Do(func() {
		close(s.initialDataReady)
		s.logger.Info("Initial weather data fetch completed")
	})
}

func (s *Service) backgroundRefresh() {
	refreshInterval := time.Duration(s.config.RefreshIntervalMinutes) * time.Minute
	ticker := s.clock.NewTicker(refreshInterval)
	defer ticker.Stop()

	s.logger.Info("Background weather refresh started",
		logger.String("interval", refreshInterval.String()))

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Background weather refresh stopped")
			return
		case <-ticker.Chan():
			s.logger.Debug("Periodic weather refresh triggered")
			s.fetchAndUpdateCache(s.ctx)
		}
	}
}

func (s *Service) transition(to FeedState, kinds []decoder.Kind, cause error) {
	snap, err := s.feed.Transition(to, kinds, cause)
	if err != nil {
		s.logger.Warn("Feed state not changed", logger.Error(err))
		return
	}
	s.metrics.SetFeedState(snap.State)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastFeedState(snap)
	}
}

// fetchAndUpdateCache fetches every enabled kind, decodes what arrived and
// hands new reports to the archive, the UI and the publishers.
func (s *Service) fetchAndUpdateCache(ctx context.Context) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	kinds := s.config.EnabledKinds()
	s.transition(FeedLoading, kinds, nil)

	start := s.clock.Now()
	results := s.client.FetchAll(ctx, s.station.ICAO)
	elapsed := s.clock.Since(start)

	previous := s.cache.Get()
	var (
		fresh []Report
		errs  []error
	)
	for i := range results {
		result := &results[i]
		if result.Err != nil {
			errs = append(errs, result.Err)
			s.metrics.RecordFetch(result.Kind, "error", elapsed)
			continue
		}
		s.metrics.RecordFetch(result.Kind, "success", elapsed)

		report := s.buildReport(result.Kind, result.Data)
		if report == nil {
			continue
		}
		result.Report = report
		if s.isNew(ctx, previous, report) {
			fresh = append(fresh, *report)
		}
	}

	s.cache.Update(results, s.station.ICAO)

	for _, r := range fresh {
		if s.broadcaster != nil {
			s.broadcaster.BroadcastReport(r)
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, r); err != nil {
				s.logger.Warn("Failed to publish report",
					logger.String("type", string(r.Kind)),
					logger.Error(err))
			}
		}
	}

	if len(results) > 0 && len(errs) == len(results) {
		s.transition(FeedError, kinds, errors.Join(errs...))
	} else {
		s.transition(FeedLoaded, kinds, nil)
	}

	s.logger.Info("Weather data fetch completed",
		logger.Duration("duration", elapsed),
		logger.Int("total_requests", len(results)),
		logger.Int("new_reports", len(fresh)))
}

// buildReport decodes the raw text carried in the AWC JSON.
func (s *Service) buildReport(kind decoder.Kind, data any) *Report {
	r := &Report{
		Station:   s.station.ICAO,
		Kind:      kind,
		FetchedAt: s.clock.Now().UTC(),
	}
	switch d := data.(type) {
	case *METARResponse:
		r.Raw = d.RawOb
		if d.ObsTime != 0 {
			r.ObservedAt = time.Unix(d.ObsTime, 0).UTC()
		}
	case *TAFResponse:
		r.Raw = d.RawTAF
		if t, err := time.Parse(time.RFC3339, d.IssueTime); err == nil {
			r.ObservedAt = t.UTC()
		}
	default:
		return nil
	}
	r.Raw = strings.TrimSpace(r.Raw)
	if r.Raw == "" {
		return nil
	}
	r.Decoded = s.decoder.Decode(kind, r.Raw)
	s.metrics.RecordDecoded(r.Decoded)
	return r
}

// isNew archives the report when an archive is configured. Without one, or
// when the archive fails, the cached raw text decides.
func (s *Service) isNew(ctx context.Context, previous *WeatherData, r *Report) bool {
	if s.archive != nil {
		id, inserted, err := s.archive.Store(ctx, *r)
		if err == nil {
			r.ID = id
			return inserted
		}
		s.logger.Error("Failed to archive report",
			logger.String("type", string(r.Kind)),
			logger.Error(err))
	}
	if previous == nil {
		return true
	}
	old, ok := previous.Reports[r.Kind]
	return !ok || old.Raw != r.Raw
}

// ValidateConfig validates the weather service configuration
func ValidateConfig(config WeatherConfig) error {
	if config.RefreshIntervalMinutes <= 0 {
		return fmt.Errorf("refresh_interval_minutes must be greater than 0")
	}
	if config.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be greater than 0")
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be 0 or greater")
	}
	if config.CacheExpiryMinutes <= 0 {
		return fmt.Errorf("cache_expiry_minutes must be greater than 0")
	}
	if config.APIBaseURL == "" {
		return fmt.Errorf("api_base_url cannot be empty")
	}
	if !config.FetchMETAR && !config.FetchTAF {
		return fmt.Errorf("at least one weather type must be enabled (fetch_metar or fetch_taf)")
	}
	return nil
}
