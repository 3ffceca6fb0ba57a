package config

import (
	"fmt"
	"time"

	"github.com/vietddude/sessionguard/internal/core/domain"
	redisclient "github.com/vietddude/sessionguard/internal/infra/redis"
	"github.com/vietddude/sessionguard/internal/infra/resilience/classify"
	"github.com/vietddude/sessionguard/internal/infra/storage/postgres"
	"github.com/vietddude/sessionguard/internal/infra/transport"
)

// Credential store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Endpoint    EndpointConfig     `yaml:"endpoint"`
	GRPC        GRPCConfig         `yaml:"grpc"`
	Credentials CredentialsConfig  `yaml:"credentials"`
	Redis       redisclient.Config `yaml:"redis"`
	Database    postgres.Config    `yaml:"database"`
	Retry       RetryConfig        `yaml:"retry"`
	Recovery    RecoveryConfig     `yaml:"recovery"`
	Classifier  ClassifierConfig   `yaml:"classifier"`
	Cache       CacheConfig        `yaml:"cache"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// EndpointConfig describes the GraphQL API.
type EndpointConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	// RefreshURL defaults to URL.
	RefreshURL       string `yaml:"refresh_url"`
	RefreshOperation string `yaml:"refresh_operation"`
}

// GRPCConfig enables the gRPC transport when Target is set.
type GRPCConfig struct {
	Target string `yaml:"target"`
}

// CredentialsConfig selects where the token pair lives.
type CredentialsConfig struct {
	Backend string `yaml:"backend"` // memory, redis, postgres
	Session string `yaml:"session"`
}

// RetryConfig is the connectivity retry policy.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// RecoveryConfig tunes session recovery.
type RecoveryConfig struct {
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// PatternConfig maps a message fragment to a category name.
type PatternConfig struct {
	Contains string `yaml:"contains"`
	Category string `yaml:"category"`
}

// ClassifierConfig extends the built-in failure tables.
type ClassifierConfig struct {
	RefreshOperations   []string        `yaml:"refresh_operations"`
	AccessExpiredCodes  []string        `yaml:"access_expired_codes"`
	RefreshExpiredCodes []string        `yaml:"refresh_expired_codes"`
	SilentCodes         []string        `yaml:"silent_codes"`
	InvalidTokenCodes   []string        `yaml:"invalid_token_codes"`
	NoTokenCodes        []string        `yaml:"no_token_codes"`
	PermissionCodes     []string        `yaml:"permission_codes"`
	Patterns            []PatternConfig `yaml:"patterns"`
}

// CacheConfig sizes the identity-scoped result cache.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// TransportRetry converts the retry section.
func (c RetryConfig) TransportRetry() transport.RetryConfig {
	return transport.RetryConfig{
		MaxAttempts:     c.MaxAttempts,
		InitialDelay:    c.InitialDelay,
		MaxDelay:        c.MaxDelay,
		BackoffMultiple: c.BackoffMultiple,
	}
}

// Build converts the section into classifier settings. The refresh
// operation name from the endpoint section is always included.
func (c ClassifierConfig) Build(refreshOperation string) (classify.Config, error) {
	out := classify.Config{
		RefreshOperations:   append([]string{}, c.RefreshOperations...),
		AccessExpiredCodes:  c.AccessExpiredCodes,
		RefreshExpiredCodes: c.RefreshExpiredCodes,
		SilentCodes:         c.SilentCodes,
		InvalidTokenCodes:   c.InvalidTokenCodes,
		NoTokenCodes:        c.NoTokenCodes,
		PermissionCodes:     c.PermissionCodes,
	}
	if refreshOperation != "" {
		out.RefreshOperations = append(out.RefreshOperations, refreshOperation)
	}

	for i, p := range c.Patterns {
		category, err := domain.ParseErrorCategory(p.Category)
		if err != nil {
			return classify.Config{}, fmt.Errorf("classifier.patterns[%d]: %w", i, err)
		}
		out.Patterns = append(out.Patterns, classify.Pattern{Contains: p.Contains, Category: category})
	}
	return out, nil
}
