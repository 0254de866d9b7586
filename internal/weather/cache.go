package weather

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/pkg/logger"
)

// Cache manages weather data caching with thread-safe operations
type Cache struct {
	config    WeatherConfig
	clock     clockwork.Clock
	logger    *logger.Logger
	mu        sync.RWMutex
	data      *WeatherData
	expiresAt time.Time
}

// CacheStats is the cache summary served by the stats endpoint
type CacheStats struct {
	HasData     bool      `json:"has_data"`
	IsExpired   bool      `json:"is_expired"`
	HasMETAR    bool      `json:"has_metar"`
	HasTAF      bool      `json:"has_taf"`
	ErrorCount  int       `json:"error_count"`
	LastUpdated time.Time `json:"last_updated"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewCache creates a new weather cache manager
func NewCache(config WeatherConfig, clock clockwork.Clock, logger *logger.Logger) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		config: config,
		clock:  clock,
		logger: logger.Named("weather-cache"),
	}
}

func (c *Cache) expiry() time.Duration {
	return time.Duration(c.config.CacheExpiryMinutes) * time.Minute
}

// Get returns the current cached weather data, or nil if nothing has been fetched yet
func (c *Cache) Get() *WeatherData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// Report returns the cached report of the given kind, if any.
func (c *Cache) Report(kind decoder.Kind) *Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil {
		return nil
	}
	return c.data.Reports[kind]
}

// IsExpired checks if the cached data has expired
func (c *Cache) IsExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data == nil || !c.clock.Now().Before(c.expiresAt)
}

// Update merges fetch results into the cached data. Kinds that failed keep
// their previous value and add an entry to FetchErrors.
func (c *Cache) Update(results []FetchResult, station string) *WeatherData {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.data
	if current == nil {
		current = &WeatherData{}
	}

	next := &WeatherData{
		Station:     station,
		METAR:       current.METAR,
		TAF:         current.TAF,
		Reports:     maps.Clone(current.Reports),
		Summary:     current.Summary,
		LastUpdated: c.clock.Now(),
		FetchErrors: []string{},
	}
	if next.Reports == nil {
		next.Reports = make(map[decoder.Kind]*Report)
	}

	for _, result := range results {
		label := strings.ToUpper(string(result.Kind))
		if result.Err != nil {
			next.FetchErrors = append(next.FetchErrors, fmt.Sprintf("%s: %s", label, result.Err.Error()))
			c.logger.Warn("Failed to fetch weather data",
				logger.String("type", label),
				logger.String("airport", station),
				logger.Error(result.Err))
			continue
		}

		switch data := result.Data.(type) {
		case *METARResponse:
			next.METAR = data
			next.Summary.METAR = SummarizeMETAR(data)
		case *TAFResponse:
			next.TAF = data
			next.Summary.TAF = SummarizeTAF(data)
		default:
			c.logger.Error("Unexpected weather payload",
				logger.String("type", label),
				logger.String("airport", station))
		}
		if result.Report != nil {
			next.Reports[result.Kind] = result.Report
		}
		c.logger.Debug("Weather data updated",
			logger.String("type", label),
			logger.String("airport", station))
	}

	c.data = next
	c.expiresAt = next.LastUpdated.Add(c.expiry())

	c.logger.Info("Weather cache updated",
		logger.String("airport", station),
		logger.Int("successful_fetches", len(results)-len(next.FetchErrors)),
		logger.Int("failed_fetches", len(next.FetchErrors)),
		logger.Time("expires_at", c.expiresAt))
	return next
}

// Invalidate clears the cache
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = nil
	c.expiresAt = time.Time{}
	c.logger.Info("Weather cache invalidated")
}

// GetStats returns cache statistics
func (c *Cache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		HasData:   c.data != nil,
		IsExpired: c.data == nil || !c.clock.Now().Before(c.expiresAt),
		ExpiresAt: c.expiresAt,
	}
	if c.data != nil {
		stats.HasMETAR = c.data.METAR != nil
		stats.HasTAF = c.data.TAF != nil
		stats.ErrorCount = len(c.data.FetchErrors)
		stats.LastUpdated = c.data.LastUpdated
	}
	return stats
}
