package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaahk/wxdecode/internal/weather"
)

const sampleConfig = `
[server]
port = 9090
static_files_dir = "www"

[logging]
level = "debug"

[storage]
type = "sqlite"
sqlite_path = "wx.db"

[station]
airport_code = "vhhh"
latitude = 22.308
longitude = 113.918
elevation_feet = 28

[[station.runways]]
name = "07L"
heading = 73

[[station.runways]]
name = "25R"
heading = 253

[station.extra_stations]
RJTT = "东京羽田"

[wx]
refresh_interval_minutes = 5
fetch_taf = false

[publish]
nats_url = "nats://127.0.0.1:4222"

[metrics]
enabled = true
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "VHHH", cfg.Station.AirportCode, "normalized before validation")
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "VHHH", cfg.Station.AirportCode)
	require.Len(t, cfg.Station.Runways, 2)
	assert.Equal(t, "25R", cfg.Station.Runways[1].Name)
	assert.Equal(t, 253.0, cfg.Station.Runways[1].Heading)
	assert.Equal(t, "东京羽田", cfg.Station.ExtraStations["RJTT"])

	// unset wx keys keep their defaults
	assert.Equal(t, 5, cfg.Weather.RefreshIntervalMinutes)
	assert.True(t, cfg.Weather.FetchMETAR)
	assert.False(t, cfg.Weather.FetchTAF)
	assert.Equal(t, "https://aviationweather.gov/api/data", cfg.Weather.APIBaseURL)

	assert.Equal(t, "wx", cfg.Publish.NATSSubject)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	st := cfg.StationInfo("香港国际机场")
	assert.Equal(t, "香港国际机场", st.Name)
	assert.Equal(t, 28.0, st.ElevationFt)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoadWithFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.toml", sampleConfig)

	cfg, err := LoadWithFallback(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)

	t.Chdir(dir)
	_, err = LoadWithFallback("missing.toml")
	assert.ErrorContains(t, err, "expected locations")

	writeFile(t, dir, "config.toml", sampleConfig)
	cfg, err = LoadWithFallback("missing.toml")
	require.NoError(t, err)
	assert.Equal(t, "VHHH", cfg.Station.AirportCode)
}

func TestStationFromCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "airports.csv",
		"id,ident,type,name,latitude_deg,longitude_deg,elevation_ft\n"+
			"1,VMMC,large_airport,Macau International Airport,22.149599,113.591003,20\n"+
			"2,VHHH,large_airport,Hong Kong International Airport,22.308901,113.915001,28\n")
	path := writeFile(t, dir, "config.toml", `
[station]
airport_code = "VHHH"
airports_db_path = "`+filepath.ToSlash(csvPath)+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 22.308901, cfg.Station.Latitude, 1e-9)
	assert.InDelta(t, 113.915001, cfg.Station.Longitude, 1e-9)
	assert.Equal(t, 28, cfg.Station.ElevationFeet)
	assert.Equal(t, "Hong Kong International Airport", cfg.Station.Name)
}

func TestStationMissingFromCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "airports.csv", "id,ident,type,name,latitude_deg,longitude_deg,elevation_ft\n")
	path := writeFile(t, dir, "config.toml", `
[station]
airport_code = "ZZZZ"
airports_db_path = "`+filepath.ToSlash(csvPath)+`"
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "ZZZZ not found")
}

func validConfig() *Config {
	return &Config{
		Station: StationConfig{AirportCode: "VHHH", Latitude: 22.3, Longitude: 113.9},
		Weather: weather.DefaultWeatherConfig(),
	}
}

func runway(name string, heading float64) weather.Runway {
	return weather.Runway{Name: name, Heading: heading}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"duplicate port", func(c *Config) { c.Server.Port = 8080; c.Server.AdditionalPorts = []int{8080} }, "duplicate port"},
		{"storage type", func(c *Config) { c.Storage.Type = "mongo" }, "unknown storage type"},
		{"postgres host", func(c *Config) { c.Storage.Type = StoragePostgres }, "requires host"},
		{"kafka topic", func(c *Config) { c.Publish.KafkaBrokers = []string{"k:9092"} }, "kafka_topic"},
		{"icao", func(c *Config) { c.Station.AirportCode = "HKG" }, "ICAO"},
		{"latitude", func(c *Config) { c.Station.Latitude = 91 }, "latitude"},
		{"runway heading", func(c *Config) { c.Station.Runways = append(c.Station.Runways, runway("07L", 400)) }, "heading"},
		{"no kinds", func(c *Config) { c.Weather.FetchMETAR = false; c.Weather.FetchTAF = false }, "at least one"},
		{"refresh", func(c *Config) { c.Weather.RefreshIntervalMinutes = 0 }, "refresh_interval_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageSQLite, cfg.Storage.Type)
	assert.Equal(t, "data/wxdecode.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "info", cfg.Logging.Level)

	cfg.Storage = StorageConfig{Type: StoragePostgres}
	cfg.Storage.Postgres.Host = "db"
	cfg.Storage.Postgres.Database = "wx"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5432, cfg.Storage.Postgres.Port)
}
