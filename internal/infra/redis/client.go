package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for session credentials and events.
type Client struct {
	rdb     *redis.Client
	session string
	channel string
	ttl     time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`

	// Session namespaces the stored credential pair.
	Session string `yaml:"session"`
	// Channel receives session-ended events.
	Channel string `yaml:"channel"`
	// TTL expires stored credentials; zero keeps them until cleared.
	TTL time.Duration `yaml:"ttl"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if cfg.Session == "" {
		cfg.Session = "default"
	}
	if cfg.Channel == "" {
		cfg.Channel = "sessionguard:session_ended"
	}

	return &Client{rdb: rdb, session: cfg.Session, channel: cfg.Channel, ttl: cfg.TTL}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func credentialKey(session string) string {
	return fmt.Sprintf("credentials:%s", session)
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
