package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/pkg/logger"
)

// maxBodyBytes caps what we read from the weather API.
const maxBodyBytes = 1 << 20

// Client handles HTTP requests to the aviation weather API
type Client struct {
	config       WeatherConfig
	httpClient   *http.Client
	logger       *logger.Logger
	retryBackoff time.Duration
}

// NewClient creates a new weather API client
func NewClient(config WeatherConfig, logger *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		logger:       logger.Named("weather-client"),
		retryBackoff: 500 * time.Millisecond,
	}
}

func (c *Client) endpoint(kind decoder.Kind, station, format string) string {
	q := url.Values{}
	q.Set("ids", station)
	q.Set("format", format)
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.config.APIBaseURL, "/"), kind, q.Encode())
}

// FetchMETAR fetches the latest decoded METAR for the station
func (c *Client) FetchMETAR(ctx context.Context, station string) (*METARResponse, error) {
	var result []METARResponse // API returns an array
	err := c.fetchWithRetry(ctx, c.endpoint(decoder.KindMETAR, station, "json"), decoder.KindMETAR, station, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&result)
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &FetchError{Station: station, Kind: decoder.KindMETAR, Err: ErrEmptyReport}
	}
	if strings.TrimSpace(result[0].RawOb) == "" {
		return nil, &FetchError{Station: station, Kind: decoder.KindMETAR, Err: ErrEmptyReport}
	}
	// Return the first (latest) observation
	return &result[0], nil
}

// FetchTAF fetches the latest decoded TAF for the station
func (c *Client) FetchTAF(ctx context.Context, station string) (*TAFResponse, error) {
	var result []TAFResponse
	err := c.fetchWithRetry(ctx, c.endpoint(decoder.KindTAF, station, "json"), decoder.KindTAF, station, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&result)
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || strings.TrimSpace(result[0].RawTAF) == "" {
		return nil, &FetchError{Station: station, Kind: decoder.KindTAF, Err: ErrEmptyReport}
	}
	return &result[0], nil
}

// GetReport fetches the raw bulletin text. An empty body, or one that does
// not mention the station, is a FetchError.
func (c *Client) GetReport(ctx context.Context, station string, kind decoder.Kind) (string, error) {
	var text string
	err := c.fetchWithRetry(ctx, c.endpoint(kind, station, "raw"), kind, station, func(body io.Reader) error {
		b, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(string(b))
		return nil
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", &FetchError{Station: station, Kind: kind, Err: ErrEmptyReport}
	}
	if !strings.Contains(strings.ToUpper(text), strings.ToUpper(station)) {
		return "", &FetchError{Station: station, Kind: kind, Err: ErrStationMissing}
	}
	return text, nil
}

// fetchWithRetry performs HTTP request with retry logic and exponential backoff
func (c *Client) fetchWithRetry(ctx context.Context, target string, kind decoder.Kind, station string, decode func(io.Reader) error) error {
	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBackoff * time.Duration(1<<uint(attempt-1))
			c.logger.Info("Retrying weather data fetch",
				logger.String("type", string(kind)),
				logger.String("airport", station),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoff))

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return &FetchError{Station: station, Kind: kind, Err: ctx.Err()}
			case <-timer.C:
			}
		}

		status, err := c.fetchOnce(ctx, target, decode)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("Successfully fetched weather data after retries",
					logger.String("type", string(kind)),
					logger.String("airport", station),
					logger.Int("attempts_needed", attempt+1))
			}
			return nil
		}
		lastErr, lastStatus = err, status

		c.logger.Warn("Weather API request failed, may retry",
			logger.String("type", string(kind)),
			logger.String("airport", station),
			logger.Int("status_code", status),
			logger.Error(err),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", c.config.MaxRetries+1))

		if ctx.Err() != nil {
			break
		}
		// the API answers 204 when it has nothing for the station
		if status == http.StatusNoContent {
			break
		}
	}

	c.logger.Error("All attempts to fetch weather data failed",
		logger.String("type", string(kind)),
		logger.String("airport", station),
		logger.Error(lastErr),
		logger.Int("max_attempts", c.config.MaxRetries+1))
	return &FetchError{Station: station, Kind: kind, StatusCode: lastStatus, Err: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, target string, decode func(io.Reader) error) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("building weather request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error making request to weather API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, ErrEmptyReport
	case resp.StatusCode != http.StatusOK:
		return resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := decode(io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		return resp.StatusCode, fmt.Errorf("error decoding weather data: %w", err)
	}
	return resp.StatusCode, nil
}

// FetchAll fetches all enabled report kinds concurrently
func (c *Client) FetchAll(ctx context.Context, station string) []FetchResult {
	kinds := c.config.EnabledKinds()
	results := make(chan FetchResult, len(kinds))

	for _, kind := range kinds {
		go func(kind decoder.Kind) {
			switch kind {
			case decoder.KindMETAR:
				data, err := c.FetchMETAR(ctx, station)
				results <- FetchResult{Kind: kind, Data: data, Err: err}
			case decoder.KindTAF:
				data, err := c.FetchTAF(ctx, station)
				results <- FetchResult{Kind: kind, Data: data, Err: err}
			}
		}(kind)
	}

	fetchResults := make([]FetchResult, 0, len(kinds))
	for range kinds {
		fetchResults = append(fetchResults, <-results)
	}
	return fetchResults
}
