package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vaahk/wxdecode/internal/config"
	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/templating"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/internal/websocket"
	"github.com/vaahk/wxdecode/pkg/logger"
)

const (
	invalidKindMessage  = `Invalid type parameter. Use "metar" or "taf".`
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	maxDecodeBodyBytes  = 64 << 10
)

// Handler contains the API handlers
type Handler struct {
	weatherService *weather.Service
	wsServer       *websocket.Server
	templates      *templating.Engine
	config         *config.Config
	logger         *logger.Logger
	startedAt      time.Time
}

// NewHandler creates a new API handler
func NewHandler(weatherService *weather.Service, wsServer *websocket.Server, config *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		weatherService: weatherService,
		wsServer:       wsServer,
		templates:      templating.NewEngine(config.Briefing.ReloadTemplates, log),
		config:         config,
		logger:         log.Named("api-handler"),
		startedAt:      time.Now(),
	}
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DecodeRequest is the POST body of /decode.
type DecodeRequest struct {
	Report string `json:"report"`
	Kind   string `json:"kind,omitempty"`
}

// DecodeResponse carries decoded rows plus their rendered lines.
type DecodeResponse struct {
	Kind     decoder.Kind           `json:"kind"`
	Raw      string                 `json:"raw"`
	Decoded  []decoder.DecodedToken `json:"decoded"`
	Rendered []string               `json:"rendered"`
}

// StationInfo is one entry of /stations.
type StationInfo struct {
	ICAO string `json:"icao"`
	Name string `json:"name"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// kindParam resolves the {kind} URL parameter or writes the 400.
func kindParam(w http.ResponseWriter, value string) (decoder.Kind, bool) {
	kind, err := decoder.ParseKind(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, invalidKindMessage)
		return "", false
	}
	return kind, true
}

// GetWeatherData returns cached weather data, summaries and derived conditions
func (h *Handler) GetWeatherData(w http.ResponseWriter, r *http.Request) {
	if h.weatherService == nil {
		WriteJSON(w, http.StatusOK, weather.WeatherData{
			LastUpdated: time.Now().UTC(),
			FetchErrors: []string{"Weather service not available"},
		})
		return
	}
	WriteJSON(w, http.StatusOK, h.weatherService.GetWeatherData())
}

// GetBriefing renders the cached picture as a plain-text Chinese briefing
func (h *Handler) GetBriefing(w http.ResponseWriter, r *http.Request) {
	data := h.weatherService.GetWeatherData()
	briefing := templating.NewBriefing(h.weatherService.Station(), data, time.Now())

	text, err := h.templates.Render(h.config.Briefing.TemplatePath, briefing)
	if err != nil {
		h.logger.Error("Failed to render briefing", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to render briefing")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// GetDecodedReport returns the latest report of a kind with its decoded rows
func (h *Handler) GetDecodedReport(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, chi.URLParam(r, "kind"))
	if !ok {
		return
	}

	report, err := h.weatherService.DecodeLatest(r.Context(), kind)
	if errors.Is(err, weather.ErrNoData) {
		writeError(w, http.StatusNotFound, "No "+strings.ToUpper(string(kind))+" available yet")
		return
	}
	if err != nil {
		h.logger.Error("Failed to load latest report", logger.Error(err), logger.String("kind", string(kind)))
		writeError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// GetRawReport proxies the raw bulletin text as text/plain.
func (h *Handler) GetRawReport(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, chi.URLParam(r, "kind"))
	if !ok {
		return
	}
	h.writeRaw(w, r, kind)
}

// GetRawByType is the ?type=metar|taf form of GetRawReport.
func (h *Handler) GetRawByType(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r.URL.Query().Get("type"))
	if !ok {
		return
	}
	h.writeRaw(w, r, kind)
}

func (h *Handler) writeRaw(w http.ResponseWriter, r *http.Request, kind decoder.Kind) {
	station := r.URL.Query().Get("station")
	raw, err := h.weatherService.FetchRaw(r.Context(), station, kind)
	if err != nil {
		var fe *weather.FetchError
		if errors.As(err, &fe) {
			h.logger.Warn("Upstream fetch failed",
				logger.String("kind", string(kind)),
				logger.String("station", fe.Station),
				logger.Error(err))
			writeError(w, http.StatusBadGateway, "Failed to fetch "+strings.ToUpper(string(kind))+" data")
			return
		}
		h.logger.Error("Raw fetch failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch data")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(raw))
}

// Decode decodes a report supplied by the caller. GET takes ?report=&kind=,
// POST a DecodeRequest body. Without a kind the report's leading keyword
// decides.
func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxDecodeBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	} else {
		req.Report = r.URL.Query().Get("report")
		req.Kind = r.URL.Query().Get("kind")
	}

	req.Report = strings.TrimSpace(req.Report)
	if req.Report == "" {
		writeError(w, http.StatusBadRequest, "report is required")
		return
	}

	kind := decoder.DetectKind(req.Report)
	if req.Kind != "" {
		var ok bool
		if kind, ok = kindParam(w, req.Kind); !ok {
			return
		}
	}

	tokens := h.weatherService.Decoder().Decode(kind, req.Report)
	WriteJSON(w, http.StatusOK, DecodeResponse{
		Kind:     kind,
		Raw:      req.Report,
		Decoded:  tokens,
		Rendered: decoder.Render(tokens),
	})
}

// GetHistory returns archived reports newest first
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, chi.URLParam(r, "kind"))
	if !ok {
		return
	}

	limit, offset := defaultHistoryLimit, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be 0 or greater")
			return
		}
		offset = n
	}

	reports, err := h.weatherService.History(r.Context(), kind, limit, offset)
	if errors.Is(err, weather.ErrNoData) {
		writeError(w, http.StatusNotFound, "Report archive is disabled")
		return
	}
	if err != nil {
		h.logger.Error("Failed to load history", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if reports == nil {
		reports = []weather.Report{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"kind":    kind,
		"limit":   limit,
		"offset":  offset,
		"reports": reports,
	})
}

// GetStations lists the stations the decoder knows by name
func (h *Handler) GetStations(w http.ResponseWriter, r *http.Request) {
	dec := h.weatherService.Decoder()
	codes := dec.Stations()
	stations := make([]StationInfo, 0, len(codes))
	for _, code := range codes {
		name, _ := dec.StationName(code)
		stations = append(stations, StationInfo{ICAO: code, Name: name})
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"default":  h.weatherService.Station().ICAO,
		"stations": stations,
	})
}

// GetState returns the feed state machine snapshot and cache statistics
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"feed":  h.weatherService.FeedState(),
		"cache": h.weatherService.GetCacheStats(),
	})
}

// RefreshWeather triggers an immediate upstream fetch
func (h *Handler) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	h.weatherService.RefreshNow()
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "refresh triggered"})
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	feed := h.weatherService.FeedState()
	status := "ok"
	if feed.State == weather.FeedError {
		status = "degraded"
	}

	clients := 0
	if h.wsServer != nil {
		clients = h.wsServer.ClientCount()
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":            status,
		"feed_state":        feed.State,
		"last_error":        feed.LastError,
		"service_running":   h.weatherService.IsStarted(),
		"websocket_clients": clients,
		"uptime_seconds":    int(time.Since(h.startedAt).Seconds()),
	})
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	st := h.weatherService.Station()
	WriteJSON(w, http.StatusOK, map[string]any{
		"station": map[string]any{
			"airport_code":   st.ICAO,
			"name":           st.Name,
			"latitude":       st.Latitude,
			"longitude":      st.Longitude,
			"elevation_feet": st.ElevationFt,
			"runways":        st.Runways,
		},
		"wx": map[string]any{
			"refresh_interval_minutes": h.config.Weather.RefreshIntervalMinutes,
			"cache_expiry_minutes":     h.config.Weather.CacheExpiryMinutes,
			"fetch_metar":              h.config.Weather.FetchMETAR,
			"fetch_taf":                h.config.Weather.FetchTAF,
		},
		"storage": map[string]any{
			"type": h.config.Storage.Type,
		},
		"metrics": map[string]any{
			"enabled": h.config.Metrics.Enabled,
		},
	})
}

// HandleWebSocket upgrades the connection onto the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsServer == nil {
		writeError(w, http.StatusServiceUnavailable, "WebSocket server not available")
		return
	}
	h.wsServer.HandleConnection(w, r)
}
