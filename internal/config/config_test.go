package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-metar-reports", cfg.KafkaSourceTopic)
	assert.Equal(t, "decoded-metar-reports", cfg.KafkaSinkTopic)
	assert.Equal(t, "metar-decoder", cfg.KafkaGroupID)
	assert.Equal(t, SourceKafka, cfg.Source)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, []string{"NZWN", "NZAA"}, cfg.StationCodes())
	assert.Equal(t, "KAUKAU", cfg.LocalWindStation)
	assert.Equal(t, "Pacific/Auckland", cfg.DisplayLocation.String())
	assert.Equal(t, "https://metar.vatsim.net", cfg.VatsimBaseURL)
	assert.Equal(t, 5*time.Second, cfg.VatsimTimeout)
	assert.Equal(t, 2, cfg.VatsimMaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.PollInterval)
	assert.Equal(t, FetchCacheMemory, cfg.FetchCache)
	assert.Equal(t, 2*time.Minute, cfg.FetchCacheTTL)
	assert.Equal(t, 100, cfg.FetchCacheSize)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 48, cfg.StoreMaxHistory)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("SOURCE", "VATSIM")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("STATIONS", "nzch, NZQN ,")
	t.Setenv("LOCAL_WIND_STATION", "remarkables")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")
	t.Setenv("VATSIM_BASE_URL", "http://localhost:8081/")
	t.Setenv("VATSIM_TIMEOUT", "2s")
	t.Setenv("VATSIM_MAX_RETRIES", "0")
	t.Setenv("POLL_INTERVAL", "1m")
	t.Setenv("FETCH_CACHE", "redis")
	t.Setenv("FETCH_CACHE_TTL", "30s")
	t.Setenv("FETCH_CACHE_SIZE", "10")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("STORE_MAX_HISTORY", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, SourceVatsim, cfg.Source)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, []string{"NZCH", "NZQN"}, cfg.StationCodes())
	assert.Equal(t, "REMARKABLES", cfg.LocalWindStation)
	assert.Equal(t, map[string]string{"NZCH": "REMARKABLES", "NZQN": "REMARKABLES"}, cfg.LocalSensors())
	assert.Equal(t, time.UTC, cfg.DisplayLocation)
	assert.Equal(t, "http://localhost:8081", cfg.VatsimBaseURL)
	assert.Equal(t, 2*time.Second, cfg.VatsimTimeout)
	assert.Equal(t, 0, cfg.VatsimMaxRetries)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, FetchCacheRedis, cfg.FetchCache)
	assert.Equal(t, 30*time.Second, cfg.FetchCacheTTL)
	assert.Equal(t, 10, cfg.FetchCacheSize)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 5, cfg.StoreMaxHistory)
}

func TestLoad_StationsFile(t *testing.T) {
	t.Setenv("STATIONS_FILE", filepath.Join("testdata", "stations.toml"))
	t.Setenv("STATIONS", "NZCH")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"NZWN", "NZAA"}, cfg.StationCodes())
	assert.Equal(t, map[string]string{"NZWN": "KAUKAU"}, cfg.LocalSensors())

	wn, ok := cfg.Station("nzwn")
	require.True(t, ok)
	assert.Equal(t, "Wellington", wn.Label)
	assert.Equal(t, "Mt Kaukau", wn.LocalWindLabel)

	_, ok = cfg.Station("NZCH")
	assert.False(t, ok)
}

func TestLoad_StationsFileErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join("testdata", "missing.toml")},
		{"invalid ICAO", filepath.Join("testdata", "bad_stations.toml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STATIONS_FILE", tt.path)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "STATIONS_FILE")
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"BATCH_SIZE", "0"},
		{"BATCH_SIZE", "9999"},
		{"BATCH_FLUSH_INTERVAL", "not-a-duration"},
		{"VATSIM_TIMEOUT", "bad"},
		{"VATSIM_MAX_RETRIES", "-1"},
		{"POLL_INTERVAL", "0s"},
		{"FETCH_CACHE_TTL", "soon"},
		{"FETCH_CACHE_SIZE", "0"},
		{"STORE_MAX_HISTORY", "lots"},
		{"DISPLAY_TIMEZONE", "Mars/Olympus_Mons"},
		{"SOURCE", "ftp"},
		{"FETCH_CACHE", "disk"},
		{"STATIONS", "NZWN,WELLINGTON"},
		{"STATIONS", " , "},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
