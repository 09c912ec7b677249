// Package config provides configuration management for the remediation
// service.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Shamsejaz/PrivacyGuard-sub012/internal/observability"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Store     StoreConfig          `yaml:"store"`
	Redis     RedisConfig          `yaml:"redis"`
	Engine    EngineConfig         `yaml:"engine"`
	Telemetry observability.Config `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// StoreConfig selects the workflow store backend.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend   string `yaml:"backend"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RedisConfig holds Redis connection settings for the redis store backend.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
}

// EngineConfig holds workflow engine settings.
type EngineConfig struct {
	// ApprovalTimeout cancels workflows whose approvals stay pending for
	// longer than this. Zero disables the policy.
	ApprovalTimeout time.Duration `yaml:"approval_timeout"`

	// SchedulerInterval is how often scheduled workflows and approval
	// timeouts are swept.
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Store: StoreConfig{
			Backend:   "memory",
			KeyPrefix: "privacyguard",
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PasswordEnv: "REDIS_PASSWORD",
			DB:          0,
			PoolSize:    10,
		},
		Engine: EngineConfig{
			ApprovalTimeout:   0,
			SchedulerInterval: 30 * time.Second,
		},
		Telemetry: observability.Config{
			ServiceName:    "privacyguard-remediation",
			ServiceVersion: "dev",
			Environment:    "development",
			LogLevel:       "info",
			LogFormat:      "json",
			TracingEnabled: false,
			OTLPEndpoint:   "localhost:4317",
			SamplingRate:   0.1,
			MetricsEnabled: true,
		},
	}
}
