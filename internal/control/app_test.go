package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/sessionguard/internal/core/config"
	redisclient "github.com/vietddude/sessionguard/internal/infra/redis"
	"github.com/vietddude/sessionguard/internal/infra/resilience"
	"github.com/vietddude/sessionguard/internal/infra/transport"
)

func graphQLBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transport.GraphQLRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch {
		case req.OperationName == "refreshToken":
			_, _ = w.Write([]byte(`{"data":{"refreshToken":{"accessToken":"fresh"}}}`))
		case r.Header.Get("Authorization") == "Bearer fresh":
			_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
		default:
			_, _ = w.Write([]byte(`{"errors":[{"message":"jwt expired"}]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func baseConfig(url string) *config.AppConfig {
	return &config.AppConfig{
		Endpoint: config.EndpointConfig{
			URL:              url,
			RefreshURL:       url,
			RefreshOperation: "refreshToken",
			Timeout:          5 * time.Second,
		},
		Credentials: config.CredentialsConfig{Backend: config.BackendMemory, Session: "test"},
		Retry:       config.RetryConfig{MaxAttempts: 1},
		Recovery:    config.RecoveryConfig{RefreshTimeout: 5 * time.Second},
		Cache:       config.CacheConfig{Size: 8},
	}
}

func TestNewApp_MemoryBackendRecovers(t *testing.T) {
	srv := graphQLBackend(t)
	app, err := NewApp(context.Background(), baseConfig(srv.URL), nil)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	require.NoError(t, app.Client.Login(ctx, "stale", "r1"))

	op := resilience.NewOperation("storeOrders", transport.GraphQLRequest{Query: "{ ok }"})
	result, err := app.Client.Do(ctx, op)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result.(json.RawMessage)))

	// Refresh endpoint did not rotate: the original refresh token stays
	refresh, err := app.Store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", refresh)
}

func TestNewApp_RedisBackendPublishesSessionEnd(t *testing.T) {
	srv := graphQLBackend(t)
	mr := miniredis.RunT(t)

	cfg := baseConfig(srv.URL)
	cfg.Credentials.Backend = config.BackendRedis
	cfg.Redis = redisclient.Config{URL: "redis://" + mr.Addr(), Session: "test"}

	app, err := NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	require.NoError(t, app.Client.Login(ctx, "a1", "r1"))
	assert.Equal(t, "a1", mr.HGet("credentials:test", "access_token"))

	app.Client.Logout(ctx)
	assert.False(t, mr.Exists("credentials:test"))

	report := app.healthMon.CheckHealth(ctx)
	require.Len(t, report.Components, 1)
	assert.Equal(t, "redis", report.Components[0].Name)
	assert.False(t, report.Session.Authenticated)
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := baseConfig("http://127.0.0.1:1")
	cfg.Credentials.Backend = config.BackendRedis
	cfg.Redis = redisclient.Config{URL: "redis://127.0.0.1:1"}

	_, err := NewApp(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "failed to init redis")
}
