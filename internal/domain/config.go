package domain

import (
	"os"
	"strconv"
	"time"
)

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Component configurations
	Source   SourceConfig   `json:"source"`
	Cache    CacheConfig    `json:"cache"`
	EventBus EventBusConfig `json:"eventBus"`
	Metrics  MetricsConfig  `json:"metrics"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// MetricsConfig holds the analytics engine settings.
type MetricsConfig struct {
	// DatasetTTL is how long the cleaned dataset stays cached.
	DatasetTTL time.Duration `json:"datasetTTL"`

	// ResultTTL is how long individual query results stay cached.
	ResultTTL time.Duration `json:"resultTTL"`

	// Currency reported on monetary metrics.
	Currency string `json:"currency"`

	// MaxScore is the number of quantile buckets for RFM scoring.
	MaxScore int `json:"maxScore"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns a configuration suitable for local development:
// CSV file source, in-memory cache, channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Source: SourceConfig{
			Driver:  "csv",
			CSVPath: "./data/data.csv",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Metrics: MetricsConfig{
			DatasetTTL: 15 * time.Minute,
			ResultTTL:  5 * time.Minute,
			Currency:   "USD",
			MaxScore:   5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// FromEnv overlays environment variables onto the configuration.
// Only variables that are set override the existing values.
func (c *Config) FromEnv() *Config {
	if v := os.Getenv("KESTREL_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := envInt("KESTREL_PORT"); v > 0 {
		c.Server.Port = v
	}
	if v := os.Getenv("KESTREL_SOURCE"); v != "" {
		c.Source.Driver = v
	}
	if v := os.Getenv("KESTREL_CSV_PATH"); v != "" {
		c.Source.CSVPath = v
	}
	if v := os.Getenv("KESTREL_SPREADSHEET_ID"); v != "" {
		c.Source.SpreadsheetID = v
	}
	if v := os.Getenv("KESTREL_SPREADSHEET_GID"); v != "" {
		c.Source.SpreadsheetGID = v
	}
	if v := os.Getenv("KESTREL_DATABASE_URL"); v != "" {
		c.Source.DatabaseURL = v
	}
	if v := os.Getenv("KESTREL_CACHE"); v != "" {
		c.Cache.Type = v
	}
	if v := os.Getenv("KESTREL_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("KESTREL_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("KESTREL_BUS"); v != "" {
		c.EventBus.Type = v
	}
	if v := os.Getenv("KESTREL_NATS_URL"); v != "" {
		c.EventBus.NATSUrl = v
	}
	if v := envInt("KESTREL_DATASET_TTL_SECONDS"); v > 0 {
		c.Metrics.DatasetTTL = time.Duration(v) * time.Second
	}
	if v := envInt("KESTREL_RESULT_TTL_SECONDS"); v > 0 {
		c.Metrics.ResultTTL = time.Duration(v) * time.Second
	}
	if v := os.Getenv("KESTREL_CURRENCY"); v != "" {
		c.Metrics.Currency = v
	}
	if v := os.Getenv("KESTREL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if os.Getenv("KESTREL_TRACING") == "true" {
		c.Tracing.Enabled = true
	}
	return c
}

func envInt(name string) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return v
}
