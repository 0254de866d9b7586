package weather

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/physics"
)

// WeatherData is the cached picture for one station
type WeatherData struct {
	Station     string                   `json:"station"`
	METAR       *METARResponse           `json:"metar,omitempty"`
	TAF         *TAFResponse             `json:"taf,omitempty"`
	Reports     map[decoder.Kind]*Report `json:"reports,omitempty"`
	Summary     Summary                  `json:"summary"`
	Conditions  *Conditions              `json:"conditions,omitempty"`
	LastUpdated time.Time                `json:"last_updated"`
	FetchErrors []string                 `json:"fetch_errors,omitempty"`
}

// Report is one raw bulletin and its decoded rows
type Report struct {
	ID         int64                  `json:"id,omitempty"`
	Station    string                 `json:"station"`
	Kind       decoder.Kind           `json:"kind"`
	Raw        string                 `json:"raw"`
	Decoded    []decoder.DecodedToken `json:"decoded"`
	FetchedAt  time.Time              `json:"fetched_at"`
	ObservedAt time.Time              `json:"observed_at,omitempty"`
}

// WeatherConfig represents the weather service configuration
type WeatherConfig struct {
	RefreshIntervalMinutes int    `toml:"refresh_interval_minutes"`
	APIBaseURL             string `toml:"api_base_url"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	MaxRetries             int    `toml:"max_retries"`
	FetchMETAR             bool   `toml:"fetch_metar"`
	FetchTAF               bool   `toml:"fetch_taf"`
	CacheExpiryMinutes     int    `toml:"cache_expiry_minutes"`
	UserAgent              string `toml:"user_agent"`
}

// Station is the airport the service watches
type Station struct {
	ICAO        string
	Name        string
	Latitude    float64
	Longitude   float64
	ElevationFt float64
	Runways     []Runway
}

// Runway is one runway end with its magnetic heading
type Runway struct {
	Name    string  `json:"name" toml:"name"`
	Heading float64 `json:"heading" toml:"heading"`
}

// FetchResult represents the result of fetching one report kind
type FetchResult struct {
	Kind   decoder.Kind
	Data   any
	Report *Report
	Err    error
}

// DefaultWeatherConfig returns the default weather configuration
func DefaultWeatherConfig() WeatherConfig {
	return WeatherConfig{
		RefreshIntervalMinutes: 10,
		APIBaseURL:             "https://aviationweather.gov/api/data",
		RequestTimeoutSeconds:  10,
		MaxRetries:             2,
		FetchMETAR:             true,
		FetchTAF:               true,
		CacheExpiryMinutes:     15,
		UserAgent:              "VAAHK-Weather-Service/1.0",
	}
}

// EnabledKinds lists the report kinds the config asks for
func (c WeatherConfig) EnabledKinds() []decoder.Kind {
	var kinds []decoder.Kind
	if c.FetchMETAR {
		kinds = append(kinds, decoder.KindMETAR)
	}
	if c.FetchTAF {
		kinds = append(kinds, decoder.KindTAF)
	}
	return kinds
}

// FlexString accepts a JSON string or number. The AWC feed reports wdir
// as 240 or "VRB" and visib as 6 or "10+".
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// Float parses the numeric part, ignoring a trailing "+".
func (f FlexString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(string(f), "+"), 64)
	return v, err == nil
}

// METARResponse is one element of the AWC /metar?format=json array
type METARResponse struct {
	ICAOID      string     `json:"icaoId"`
	ReceiptTime string     `json:"receiptTime,omitempty"`
	ObsTime     int64      `json:"obsTime"`
	ReportTime  string     `json:"reportTime,omitempty"`
	Temp        *float64   `json:"temp"`
	Dewp        *float64   `json:"dewp"`
	Wdir        FlexString `json:"wdir"`
	Wspd        *float64   `json:"wspd"`
	Wgst        *float64   `json:"wgst"`
	Visib       FlexString `json:"visib"`
	Altim       *float64   `json:"altim"`
	Slp         *float64   `json:"slp,omitempty"`
	WxString    string     `json:"wxString,omitempty"`
	MetarType   string     `json:"metarType,omitempty"`
	RawOb       string     `json:"rawOb"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	Elev        float64    `json:"elev"`
	Name        string     `json:"name,omitempty"`
	Clouds      []Cloud    `json:"clouds,omitempty"`
	FltCat      string     `json:"fltCat,omitempty"`
}

// Cloud is one AWC cloud layer
type Cloud struct {
	Cover string `json:"cover"`
	Base  *int   `json:"base"`
	Type  string `json:"type,omitempty"`
}

// TAFResponse is one element of the AWC /taf?format=json array
type TAFResponse struct {
	ICAOID        string     `json:"icaoId"`
	BulletinTime  string     `json:"bulletinTime,omitempty"`
	IssueTime     string     `json:"issueTime"`
	ValidTimeFrom int64      `json:"validTimeFrom"`
	ValidTimeTo   int64      `json:"validTimeTo"`
	RawTAF        string     `json:"rawTAF"`
	Remarks       string     `json:"remarks,omitempty"`
	Lat           float64    `json:"lat"`
	Lon           float64    `json:"lon"`
	Elev          float64    `json:"elev"`
	Name          string     `json:"name,omitempty"`
	Fcsts         []Forecast `json:"fcsts"`
}

// Forecast is one TAF change group as decoded by AWC
type Forecast struct {
	TimeFrom    int64             `json:"timeFrom"`
	TimeTo      int64             `json:"timeTo"`
	TimeBec     *int64            `json:"timeBec,omitempty"`
	FcstChange  string            `json:"fcstChange,omitempty"`
	Probability *int              `json:"probability,omitempty"`
	Wdir        FlexString        `json:"wdir"`
	Wspd        *float64          `json:"wspd"`
	Wgst        *float64          `json:"wgst"`
	WshearHgt   *int              `json:"wshearHgt"`
	WshearDir   *int              `json:"wshearDir"`
	WshearSpd   *int              `json:"wshearSpd"`
	Visib       FlexString        `json:"visib"`
	Altim       *float64          `json:"altim"`
	VertVis     *int              `json:"vertVis"`
	WxString    string            `json:"wxString,omitempty"`
	Clouds      []Cloud           `json:"clouds,omitempty"`
	IcgTurb     []IcingTurbulence `json:"icgTurb,omitempty"`
	Temp        []TempForecast    `json:"temp,omitempty"`
}

// IcingTurbulence is an ICG or TURB layer with intensity 0-6
type IcingTurbulence struct {
	Var       string `json:"var"`
	Intensity int    `json:"intensity"`
	MinAlt    int    `json:"minAlt"`
	MaxAlt    int    `json:"maxAlt"`
}

// TempForecast is a TX or TN group
type TempForecast struct {
	ValidTime int64   `json:"validTime"`
	SfcTemp   float64 `json:"sfcTemp"`
	MaxOrMin  string  `json:"maxOrMin"`
}

// Conditions are derived station values computed from the latest METAR
type Conditions struct {
	PressureAltitudeFt float64          `json:"pressure_altitude_ft"`
	DensityAltitudeFt  float64          `json:"density_altitude_ft"`
	TemperatureC       float64          `json:"temperature_c"`
	RelativeHumidity   float64          `json:"relative_humidity,omitempty"`
	MagneticVariation  float64          `json:"magnetic_variation"`
	WindTrueDeg        *float64         `json:"wind_true_deg,omitempty"`
	WindMagneticDeg    *float64         `json:"wind_magnetic_deg,omitempty"`
	WindSpeedKt        float64          `json:"wind_speed_kt"`
	GustKt             float64          `json:"gust_kt,omitempty"`
	Runways            []RunwayWind     `json:"runways,omitempty"`
	Daylight           physics.Daylight `json:"daylight"`
}

// RunwayWind is the wind split along one runway
type RunwayWind struct {
	Runway    string  `json:"runway"`
	Heading   float64 `json:"heading"`
	Headwind  float64 `json:"headwind_kt"`
	Crosswind float64 `json:"crosswind_kt"`
}
