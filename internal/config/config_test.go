package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quakesim.cfg.json"), []byte(content), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"pWaveSpeedKmS": 8.0,
		"mapBounds": { "minLon": 120.0, "maxLon": 150.0 }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 8.0, viper.GetFloat64("pWaveSpeedKmS"))
	assert.Equal(t, 120.0, viper.GetFloat64("mapBounds.minLon"))
	assert.Equal(t, 150.0, viper.GetFloat64("mapBounds.maxLon"))
	// untouched keys keep defaults
	assert.Equal(t, 4.1, viper.GetFloat64("sWaveSpeedKmS"))
	assert.Equal(t, 24.0, viper.GetFloat64("mapBounds.minLat"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{}`)
	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./quakesimlogs", viper.GetString("logsDir"))
	assert.Equal(t, 7.3, viper.GetFloat64("pWaveSpeedKmS"))
	assert.Equal(t, 4.1, viper.GetFloat64("sWaveSpeedKmS"))
	assert.Equal(t, 122.0, viper.GetFloat64("mapBounds.minLon"))
	assert.Equal(t, 154.0, viper.GetFloat64("mapBounds.maxLon"))
	assert.Equal(t, 24.0, viper.GetFloat64("mapBounds.minLat"))
	assert.Equal(t, 46.0, viper.GetFloat64("mapBounds.maxLat"))
	assert.Equal(t, 1200.0, viper.GetFloat64("viewport.width"))
	assert.Equal(t, 800.0, viper.GetFloat64("viewport.height"))
	assert.Equal(t, 60, viper.GetInt("fps"))
	assert.Equal(t, "ja", viper.GetString("locale"))
	assert.Equal(t, "geojson", viper.GetString("dataset.type"))
	assert.Equal(t, "", viper.GetString("dataset.sqlitePath"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "quakesim-metrics", viper.GetString("influx.org"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "quakesim-engine", viper.GetString("otel.serviceName"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetSimConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{}`)
	require.NoError(t, Load(dir))

	cfg := GetSimConfig()
	assert.Equal(t, 7.3, cfg.PWaveSpeedKmS)
	assert.Equal(t, 4.1, cfg.SWaveSpeedKmS)
	assert.Equal(t, 122.0, cfg.MapBounds.MinLon)
	assert.Equal(t, 46.0, cfg.MapBounds.MaxLat)
	assert.Equal(t, 1200.0, cfg.Viewport.Width)
	assert.Equal(t, 60, cfg.FPS)
	assert.Equal(t, 2.0, cfg.Attenuation.A)
	assert.Equal(t, 4.6, cfg.Attenuation.B)
	assert.Equal(t, 0.003, cfg.Attenuation.C)
	assert.Equal(t, 0.94, cfg.Attenuation.D)
	assert.Equal(t, []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.0, 5.5, 6.0, 6.5}, cfg.IntensityThresholds)
}

func TestGetSimConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"attenuation": { "a": 1.8, "b": 4.0, "c": 0.002, "d": 1.0 },
		"fps": 30
	}`)
	require.NoError(t, Load(dir))

	cfg := GetSimConfig()
	assert.Equal(t, 1.8, cfg.Attenuation.A)
	assert.Equal(t, 4.0, cfg.Attenuation.B)
	assert.Equal(t, 0.002, cfg.Attenuation.C)
	assert.Equal(t, 1.0, cfg.Attenuation.D)
	assert.Equal(t, 30, cfg.FPS)
}

func TestGetDatasetConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"dataset": {
			"type": "database",
			"geojsonPath": "/data/regions.geojson",
			"stationsPath": "/data/stations.json",
			"sqlitePath": "/data/quakesim.db"
		}
	}`)
	require.NoError(t, Load(dir))

	cfg := GetDatasetConfig()
	assert.Equal(t, "database", cfg.Type)
	assert.Equal(t, "/data/regions.geojson", cfg.GeoJSONPath)
	assert.Equal(t, "/data/stations.json", cfg.StationsPath)
	assert.Equal(t, "/data/quakesim.db", cfg.SQLitePath)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{}`)
	require.NoError(t, Load(dir))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "quakesim-engine", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)
	require.NoError(t, Load(dir))

	cfg := GetOTelConfig()
	assert.Equal(t, true, cfg.Enabled)
	assert.Equal(t, "my-service", cfg.ServiceName)
	assert.Equal(t, 30*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, false, cfg.Insecure)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}
