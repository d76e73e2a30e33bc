// Package config loads and defaults the onion test driver's configuration.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all driver configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Directory DirectoryConfig `yaml:"directory"`
	PathSelect PathSelectConfig `yaml:"path_select"`
	Driver    DriverConfig    `yaml:"driver"`
	Storage   StorageConfig   `yaml:"storage"`
	TLS       TLSConfig       `yaml:"tls"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP server settings for the /data results
// endpoint and static asset serving.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	StaticDir       string        `yaml:"static_dir"`
}

// DirectoryConfig holds seed-node directory polling settings.
type DirectoryConfig struct {
	SeedURL         string        `yaml:"seed_url"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// PathSelectConfig controls onion path sampling.
type PathSelectConfig struct {
	Seed               int64 `yaml:"seed"`
	FoundationNodesOnly bool  `yaml:"foundation_nodes_only"`
	MaxPoolSize        int   `yaml:"max_pool_size"`
}

// DriverConfig holds the onion-request test loop settings.
type DriverConfig struct {
	MaxInFlight        int           `yaml:"max_in_flight"`
	RequestInterval    time.Duration `yaml:"request_interval"`
	AggregateInterval  time.Duration `yaml:"aggregate_interval"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	DifficultyBits     int           `yaml:"difficulty_bits"`
}

// StorageConfig holds result-persistence settings.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	BufferLimit int   `yaml:"buffer_limit"`
}

// TLSConfig controls certificate verification for outbound transports.
// Guard requests always skip verification regardless of this setting,
// since guard nodes present self-signed certificates by design.
type TLSConfig struct {
	ClearnetInsecureSkipVerify bool `yaml:"clearnet_insecure_skip_verify"`
}

// MetricsConfig holds metrics/monitoring settings.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	HealthPath string `yaml:"health_path"`
	ReadyPath  string `yaml:"ready_path"`
	Port       int    `yaml:"port"`
	Namespace  string `yaml:"namespace"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			StaticDir:       "./html",
		},
		Directory: DirectoryConfig{
			SeedURL:         "https://public.loki.foundation/json_rpc",
			RefreshInterval: 600 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		PathSelect: PathSelectConfig{
			Seed:                0,
			FoundationNodesOnly: false,
			MaxPoolSize:         0,
		},
		Driver: DriverConfig{
			MaxInFlight:       10,
			RequestInterval:   1 * time.Second,
			AggregateInterval: 60 * time.Second,
			RequestTimeout:    60 * time.Second,
			DifficultyBits:    0,
		},
		Storage: StorageConfig{
			SQLitePath:  "data.db",
			BufferLimit: 720,
		},
		TLS: TLSConfig{
			ClearnetInsecureSkipVerify: false,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			Path:       "/metrics",
			HealthPath: "/health",
			ReadyPath:  "/ready",
			Port:       9090,
			Namespace:  "onionreq",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to
// defaults for anything it does not set.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvironment overrides config values from environment variables.
func (c *Config) ApplyEnvironment() {
	if v := os.Getenv("ONIONREQ_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("ONIONREQ_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("ONIONREQ_SEED_URL"); v != "" {
		c.Directory.SeedURL = v
	}
	if v := os.Getenv("ONIONREQ_MAX_IN_FLIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Driver.MaxInFlight = n
		}
	}
	if v := os.Getenv("ONIONREQ_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("ONIONREQ_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ONIONREQ_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Metrics.Port = port
		}
	}
	if v := os.Getenv("ONIONREQ_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
