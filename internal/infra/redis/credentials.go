package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

const (
	fieldAccess  = "access_token"
	fieldRefresh = "refresh_token"
)

// CredentialStore keeps the token pair in a Redis hash so several processes
// can share one session.
type CredentialStore struct {
	c *Client
}

// Credentials returns the credential store view of the client.
func (c *Client) Credentials() *CredentialStore {
	return &CredentialStore{c: c}
}

func (s *CredentialStore) AccessToken(ctx context.Context) (string, error) {
	return s.field(ctx, fieldAccess)
}

func (s *CredentialStore) RefreshToken(ctx context.Context) (string, error) {
	return s.field(ctx, fieldRefresh)
}

func (s *CredentialStore) field(ctx context.Context, name string) (string, error) {
	v, err := s.c.rdb.HGet(ctx, credentialKey(s.c.session), name).Result()
	if err == redis.Nil || (err == nil && v == "") {
		return "", domain.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("hget failed: %w", err)
	}
	return v, nil
}

// SetTokens replaces both tokens atomically.
func (s *CredentialStore) SetTokens(ctx context.Context, access, refresh string) error {
	key := credentialKey(s.c.session)
	_, err := s.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldAccess, access, fieldRefresh, refresh)
		if s.c.ttl > 0 {
			pipe.Expire(ctx, key, s.c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

func (s *CredentialStore) ClearTokens(ctx context.Context) error {
	if err := s.c.rdb.Del(ctx, credentialKey(s.c.session)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}
