package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/sessionguard/internal/infra/auth"
	"github.com/vietddude/sessionguard/internal/infra/transport"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Endpoint.Timeout == 0 {
		cfg.Endpoint.Timeout = 30 * time.Second
	}
	if cfg.Endpoint.RefreshURL == "" {
		cfg.Endpoint.RefreshURL = cfg.Endpoint.URL
	}
	if cfg.Endpoint.RefreshOperation == "" {
		cfg.Endpoint.RefreshOperation = auth.DefaultOperation
	}
	if cfg.Credentials.Backend == "" {
		cfg.Credentials.Backend = BackendMemory
	}
	if cfg.Credentials.Session == "" {
		cfg.Credentials.Session = "default"
	}
	if cfg.Redis.Session == "" {
		cfg.Redis.Session = cfg.Credentials.Session
	}

	def := transport.DefaultRetryConfig
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = def.MaxAttempts
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = def.InitialDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = def.MaxDelay
	}
	if cfg.Retry.BackoffMultiple == 0 {
		cfg.Retry.BackoffMultiple = def.BackoffMultiple
	}

	if cfg.Recovery.RefreshTimeout == 0 {
		cfg.Recovery.RefreshTimeout = 15 * time.Second
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 1024
	}
}

// Validate checks the settings that have no sensible default.
func (c *AppConfig) Validate() error {
	switch c.Credentials.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("credentials backend %q requires redis.url", c.Credentials.Backend)
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("credentials backend %q requires database.url", c.Credentials.Backend)
		}
	default:
		return fmt.Errorf("unknown credentials backend %q", c.Credentials.Backend)
	}

	if _, err := c.Classifier.Build(c.Endpoint.RefreshOperation); err != nil {
		return err
	}
	return nil
}
