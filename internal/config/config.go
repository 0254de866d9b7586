package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vaahk/wxdecode/internal/storage/postgres"
	"github.com/vaahk/wxdecode/internal/weather"
)

// Storage backends
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageNone     = "none"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server   ServerConfig          `toml:"server"`   // HTTP server settings
	Logging  LoggingConfig         `toml:"logging"`  // Application logging settings
	Storage  StorageConfig         `toml:"storage"`  // Report archive settings
	Station  StationConfig         `toml:"station"`  // Airport the service watches
	Weather  weather.WeatherConfig `toml:"wx"`       // Weather data fetching and caching settings
	Publish  PublishConfig         `toml:"publish"`  // Fan-out of new reports to message brokers
	Metrics  MetricsConfig         `toml:"metrics"`  // Prometheus exposition
	Briefing BriefingConfig        `toml:"briefing"` // Plain-text briefing template
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts    []int    `toml:"additional_ports"`      // Additional HTTP ports to listen on
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory to serve static files from (e.g., "www")
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig selects and configures the report archive
type StorageConfig struct {
	Type       string          `toml:"type"`        // "sqlite", "postgres" or "none"
	SQLitePath string          `toml:"sqlite_path"` // Database file for the sqlite backend
	Postgres   postgres.Config `toml:"postgres"`    // Connection settings for the postgres backend
}

// StationConfig describes the airport being watched. Coordinates may be
// given directly or looked up in an OurAirports CSV.
type StationConfig struct {
	AirportCode    string            `toml:"airport_code"`     // ICAO code of the airport (e.g., "VHHH")
	Name           string            `toml:"name"`             // Display name, defaults to the decoder's station table
	Latitude       float64           `toml:"latitude"`         // Decimal degrees
	Longitude      float64           `toml:"longitude"`        // Decimal degrees
	ElevationFeet  int               `toml:"elevation_feet"`   // Field elevation above sea level
	AirportsDBPath string            `toml:"airports_db_path"` // Optional OurAirports airports.csv
	Runways        []weather.Runway  `toml:"runways"`          // Runway ends used for wind components
	ExtraStations  map[string]string `toml:"extra_stations"`   // Additional ICAO codes the decoder recognizes
}

// PublishConfig contains broker settings. Empty values disable a broker.
type PublishConfig struct {
	NATSURL      string   `toml:"nats_url"`      // e.g. nats://127.0.0.1:4222
	NATSSubject  string   `toml:"nats_subject"`  // Prefix, the report kind is appended
	KafkaBrokers []string `toml:"kafka_brokers"` // host:port list
	KafkaTopic   string   `toml:"kafka_topic"`
}

// MetricsConfig toggles the /metrics endpoint
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// BriefingConfig selects the template behind /wx/briefing
type BriefingConfig struct {
	TemplatePath    string `toml:"template_path"`    // Empty uses the built-in template
	ReloadTemplates bool   `toml:"reload_templates"` // Re-read the file on every request (development mode)
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	config := Config{Weather: weather.DefaultWeatherConfig()}

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	config.Station.AirportCode = strings.ToUpper(strings.TrimSpace(config.Station.AirportCode))

	if config.Station.AirportsDBPath != "" {
		if err := config.loadStationFromCSV(); err != nil {
			return nil, fmt.Errorf("failed to load station details from CSV: %w", err)
		}
	}

	return &config, nil
}

// loadStationFromCSV parses the airports.csv file to find the station coordinates.
// Values already set in the config file win.
func (c *Config) loadStationFromCSV() error {
	if c.Station.AirportCode == "" {
		return fmt.Errorf("airport_code is required")
	}

	file, err := os.Open(c.Station.AirportsDBPath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true

	// Skip header
	if _, err := reader.Read(); err != nil {
		return err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return err
	}

	code := strings.ToUpper(c.Station.AirportCode)
	for _, record := range records {
		if len(record) < 7 || record[1] != code {
			continue
		}

		// ident, type, name, latitude_deg, longitude_deg, elevation_ft
		if c.Station.Name == "" {
			c.Station.Name = record[3]
		}
		if c.Station.Latitude == 0 && c.Station.Longitude == 0 {
			lat, err := strconv.ParseFloat(record[4], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude in CSV for %s: %w", code, err)
			}
			lon, err := strconv.ParseFloat(record[5], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude in CSV for %s: %w", code, err)
			}
			c.Station.Latitude = lat
			c.Station.Longitude = lon
		}
		// Elevation might be empty
		if c.Station.ElevationFeet == 0 && record[6] != "" {
			if elev, err := strconv.ParseFloat(record[6], 64); err == nil {
				c.Station.ElevationFeet = int(elev)
			}
		}
		return nil
	}

	return fmt.Errorf("airport code %s not found in %s", code, c.Station.AirportsDBPath)
}

// LoadWithFallback tries preferredPath, then configs/config.toml, then config.toml.
func LoadWithFallback(preferredPath string) (*Config, error) {
	var tried []string
	var lastErr error
	for _, path := range []string{preferredPath, "configs/config.toml", "config.toml"} {
		if path == "" || slices.Contains(tried, path) {
			continue
		}
		tried = append(tried, path)

		if _, err := os.Stat(path); err != nil {
			lastErr = fmt.Errorf("config file not found: %s", path)
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			lastErr = fmt.Errorf("load %s: %w", path, err)
			continue
		}
		return cfg, nil
	}
	return nil, fmt.Errorf("no usable config in the expected locations %v: %w", tried, lastErr)
}

// Validate fills defaults and validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	portsSeen := map[int]bool{c.Server.Port: true}
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	switch c.Storage.Type {
	case "":
		c.Storage.Type = StorageSQLite
		fallthrough
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			c.Storage.SQLitePath = "data/wxdecode.db"
		}
	case StoragePostgres:
		if c.Storage.Postgres.Host == "" || c.Storage.Postgres.Database == "" {
			return fmt.Errorf("storage postgres requires host and database")
		}
		if c.Storage.Postgres.Port == 0 {
			c.Storage.Postgres.Port = 5432
		}
	case StorageNone:
	default:
		return fmt.Errorf("unknown storage type %q (use sqlite, postgres or none)", c.Storage.Type)
	}

	if c.Publish.NATSURL != "" && c.Publish.NATSSubject == "" {
		c.Publish.NATSSubject = "wx"
	}
	if len(c.Publish.KafkaBrokers) > 0 && c.Publish.KafkaTopic == "" {
		return fmt.Errorf("publish kafka_topic is required when kafka_brokers is set")
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	c.Station.AirportCode = strings.ToUpper(strings.TrimSpace(c.Station.AirportCode))
	if err := c.ValidateStation(); err != nil {
		return err
	}
	return c.ValidateWeather()
}

// ValidateStation validates the station configuration
func (c *Config) ValidateStation() error {
	if len(c.Station.AirportCode) != 4 {
		return fmt.Errorf("station airport_code must be a 4-letter ICAO code: %q", c.Station.AirportCode)
	}
	if c.Station.Latitude < -90 || c.Station.Latitude > 90 {
		return fmt.Errorf("invalid station latitude: %f", c.Station.Latitude)
	}
	if c.Station.Longitude < -180 || c.Station.Longitude > 180 {
		return fmt.Errorf("invalid station longitude: %f", c.Station.Longitude)
	}
	// Elevation can be negative
	if c.Station.ElevationFeet < -2000 || c.Station.ElevationFeet > 30000 {
		return fmt.Errorf("station elevation out of typical range: %d ft", c.Station.ElevationFeet)
	}
	for _, rwy := range c.Station.Runways {
		if rwy.Name == "" {
			return fmt.Errorf("runway name cannot be empty")
		}
		if rwy.Heading < 0 || rwy.Heading > 360 {
			return fmt.Errorf("runway %s heading out of range: %v", rwy.Name, rwy.Heading)
		}
	}
	return nil
}

// ValidateWeather validates the weather configuration
func (c *Config) ValidateWeather() error {
	if err := weather.ValidateConfig(c.Weather); err != nil {
		return fmt.Errorf("wx: %w", err)
	}
	return nil
}

// StationInfo converts the station section to the weather service's view.
func (c *Config) StationInfo(name string) weather.Station {
	if c.Station.Name != "" {
		name = c.Station.Name
	}
	return weather.Station{
		ICAO:        c.Station.AirportCode,
		Name:        name,
		Latitude:    c.Station.Latitude,
		Longitude:   c.Station.Longitude,
		ElevationFt: float64(c.Station.ElevationFeet),
		Runways:     c.Station.Runways,
	}
}
