package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DISPLAY_TIMEZONE must resolve in minimal containers

	"github.com/BurntSushi/toml"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// Report sources.
const (
	SourceKafka  = "kafka"
	SourceVatsim = "vatsim"
)

// Fetch cache backends.
const (
	FetchCacheMemory = "memory"
	FetchCacheRedis  = "redis"
	FetchCacheNone   = "none"
)

var validate = validator.New()

// Station describes one station the service polls and serves.
type Station struct {
	ICAO           string `toml:"icao" validate:"required,len=4,alpha,uppercase"`
	Label          string `toml:"label"`
	LocalWind      string `toml:"local_wind" validate:"omitempty,alphanum"`
	LocalWindLabel string `toml:"local_wind_label"`
}

type stationsFile struct {
	Stations []Station `toml:"station" validate:"dive"`
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	Source           string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	Stations         []Station
	LocalWindStation string
	DisplayLocation  *time.Location

	// Upstream METAR source.
	VatsimBaseURL    string
	VatsimTimeout    time.Duration
	VatsimMaxRetries int
	PollInterval     time.Duration

	FetchCache     string
	FetchCacheTTL  time.Duration
	FetchCacheSize int
	RedisAddr      string

	StoreMaxHistory int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	vatsimTimeout, err := parseDuration("VATSIM_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("FETCH_CACHE_TTL", "2m")
	if err != nil {
		return nil, err
	}

	maxRetries, err := parseInt("VATSIM_MAX_RETRIES", 2, 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("FETCH_CACHE_SIZE", 100, 1)
	if err != nil {
		return nil, err
	}
	maxHistory, err := parseInt("STORE_MAX_HISTORY", 48, 1)
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("DISPLAY_TIMEZONE", "Pacific/Auckland")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-metar-reports"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "decoded-metar-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "metar-decoder"),
		Source:             strings.ToLower(sharedcfg.EnvOrDefault("SOURCE", SourceKafka)),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		LocalWindStation: strings.ToUpper(sharedcfg.EnvOrDefault("LOCAL_WIND_STATION", "KAUKAU")),
		DisplayLocation:  loc,

		VatsimBaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("VATSIM_BASE_URL", "https://metar.vatsim.net"), "/"),
		VatsimTimeout:    vatsimTimeout,
		VatsimMaxRetries: maxRetries,
		PollInterval:     pollInterval,

		FetchCache:     strings.ToLower(sharedcfg.EnvOrDefault("FETCH_CACHE", FetchCacheMemory)),
		FetchCacheTTL:  cacheTTL,
		FetchCacheSize: cacheSize,
		RedisAddr:      sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),

		StoreMaxHistory: maxHistory,
	}

	if path := os.Getenv("STATIONS_FILE"); path != "" {
		cfg.Stations, err = LoadStationsFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg.Stations, err = parseStations(sharedcfg.EnvOrDefault("STATIONS", "NZWN,NZAA"), cfg.LocalWindStation)
		if err != nil {
			return nil, err
		}
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.Source != SourceKafka && cfg.Source != SourceVatsim {
		return nil, fmt.Errorf("invalid SOURCE %q: must be %s or %s", cfg.Source, SourceKafka, SourceVatsim)
	}
	switch cfg.FetchCache {
	case FetchCacheMemory, FetchCacheRedis, FetchCacheNone:
	default:
		return nil, fmt.Errorf("invalid FETCH_CACHE %q: must be memory, redis or none", cfg.FetchCache)
	}
	if len(cfg.Stations) == 0 {
		return nil, errors.New("STATIONS is required")
	}

	return cfg, nil
}

// LoadStationsFile reads [[station]] tables from a TOML file.
func LoadStationsFile(path string) ([]Station, error) {
	var f stationsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("invalid STATIONS_FILE: %w", err)
	}
	for i := range f.Stations {
		f.Stations[i].ICAO = strings.ToUpper(strings.TrimSpace(f.Stations[i].ICAO))
		f.Stations[i].LocalWind = strings.ToUpper(strings.TrimSpace(f.Stations[i].LocalWind))
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid STATIONS_FILE: %w", err)
	}
	return f.Stations, nil
}

func parseStations(list, localWind string) ([]Station, error) {
	var stations []Station
	for _, code := range strings.Split(list, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		s := Station{ICAO: code, LocalWind: localWind}
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("invalid STATIONS entry %q: %w", code, err)
		}
		stations = append(stations, s)
	}
	return stations, nil
}

// StationCodes returns the configured ICAO codes in order.
func (c *Config) StationCodes() []string {
	codes := make([]string, len(c.Stations))
	for i, s := range c.Stations {
		codes[i] = s.ICAO
	}
	return codes
}

// LocalSensors maps each station to the local wind sensor its reports carry.
func (c *Config) LocalSensors() map[string]string {
	m := make(map[string]string, len(c.Stations))
	for _, s := range c.Stations {
		if s.LocalWind != "" {
			m[s.ICAO] = s.LocalWind
		}
	}
	return m
}

// Station looks up a configured station by ICAO code.
func (c *Config) Station(icao string) (Station, bool) {
	icao = strings.ToUpper(icao)
	for _, s := range c.Stations {
		if s.ICAO == icao {
			return s, true
		}
	}
	return Station{}, false
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum)
	}
	return n, nil
}
