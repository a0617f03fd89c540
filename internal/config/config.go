package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// BoundsConfig is the geographic rectangle the simulation covers.
type BoundsConfig struct {
	MinLon float64 `json:"minLon" mapstructure:"minLon"`
	MaxLon float64 `json:"maxLon" mapstructure:"maxLon"`
	MinLat float64 `json:"minLat" mapstructure:"minLat"`
	MaxLat float64 `json:"maxLat" mapstructure:"maxLat"`
}

// ViewportConfig is the pixel size of the render target.
type ViewportConfig struct {
	Width  float64 `json:"width" mapstructure:"width"`
	Height float64 `json:"height" mapstructure:"height"`
}

// AttenuationConfig holds the distance-attenuation constants of the
// intensity formula raw = a*M - b*log10(R) - c*R + d.
type AttenuationConfig struct {
	A float64 `json:"a" mapstructure:"a"`
	B float64 `json:"b" mapstructure:"b"`
	C float64 `json:"c" mapstructure:"c"`
	D float64 `json:"d" mapstructure:"d"`
}

// SimConfig holds the physical and display parameters of the simulation.
type SimConfig struct {
	PWaveSpeedKmS       float64
	SWaveSpeedKmS       float64
	MapBounds           BoundsConfig
	Viewport            ViewportConfig
	FPS                 int
	Attenuation         AttenuationConfig
	IntensityThresholds []float64
}

// DatasetConfig describes where the region and station datasets come from.
// Type is "geojson" or "database".
type DatasetConfig struct {
	Type         string
	GeoJSONPath  string
	StationsPath string
	SQLitePath   string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./quakesimlogs")
	viper.SetDefault("locale", "ja")

	// wave speeds in km/s
	viper.SetDefault("pWaveSpeedKmS", 7.3)
	viper.SetDefault("sWaveSpeedKmS", 4.1)

	// Japan
	viper.SetDefault("mapBounds.minLon", 122.0)
	viper.SetDefault("mapBounds.maxLon", 154.0)
	viper.SetDefault("mapBounds.minLat", 24.0)
	viper.SetDefault("mapBounds.maxLat", 46.0)

	viper.SetDefault("viewport.width", 1200.0)
	viper.SetDefault("viewport.height", 800.0)
	viper.SetDefault("fps", 60)

	viper.SetDefault("attenuation.a", 2.0)
	viper.SetDefault("attenuation.b", 4.6)
	viper.SetDefault("attenuation.c", 0.003)
	viper.SetDefault("attenuation.d", 0.94)

	viper.SetDefault("dataset.type", "geojson")
	viper.SetDefault("dataset.geojsonPath", "./regions.geojson")
	viper.SetDefault("dataset.stationsPath", "./stations_data.json")
	// empty path keeps the SQLite fallback in memory
	viper.SetDefault("dataset.sqlitePath", "")

	viper.SetDefault("intensity.thresholds", []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.0, 5.5, 6.0, 6.5})

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "quakesim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "quakesim-metrics")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "quakesim-engine")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("quakesim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimConfig returns the simulation parameters.
func GetSimConfig() SimConfig {
	return SimConfig{
		PWaveSpeedKmS: viper.GetFloat64("pWaveSpeedKmS"),
		SWaveSpeedKmS: viper.GetFloat64("sWaveSpeedKmS"),
		MapBounds: BoundsConfig{
			MinLon: viper.GetFloat64("mapBounds.minLon"),
			MaxLon: viper.GetFloat64("mapBounds.maxLon"),
			MinLat: viper.GetFloat64("mapBounds.minLat"),
			MaxLat: viper.GetFloat64("mapBounds.maxLat"),
		},
		Viewport: ViewportConfig{
			Width:  viper.GetFloat64("viewport.width"),
			Height: viper.GetFloat64("viewport.height"),
		},
		FPS: viper.GetInt("fps"),
		Attenuation: AttenuationConfig{
			A: viper.GetFloat64("attenuation.a"),
			B: viper.GetFloat64("attenuation.b"),
			C: viper.GetFloat64("attenuation.c"),
			D: viper.GetFloat64("attenuation.d"),
		},
		IntensityThresholds: intensityThresholds(),
	}
}

func intensityThresholds() []float64 {
	var thresholds []float64
	if err := viper.UnmarshalKey("intensity.thresholds", &thresholds); err != nil {
		return nil
	}
	return thresholds
}

// GetDatasetConfig returns the dataset source settings.
func GetDatasetConfig() DatasetConfig {
	return DatasetConfig{
		Type:         viper.GetString("dataset.type"),
		GeoJSONPath:  viper.GetString("dataset.geojsonPath"),
		StationsPath: viper.GetString("dataset.stationsPath"),
		SQLitePath:   viper.GetString("dataset.sqlitePath"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
