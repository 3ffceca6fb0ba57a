// Package refresh coordinates credential refreshes so that at most one
// refresh call is in flight per client session.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/resilience/session"
	"github.com/vietddude/sessionguard/internal/monitoring/metrics"
)

const flightKey = "credential_refresh"

// Endpoint exchanges a refresh token for a new credential pair.
type Endpoint interface {
	Refresh(ctx context.Context, refreshToken string) (domain.Credential, error)
}

// Terminator ends the session when a refresh fails. Epoch and Commit let a
// refresh that outlived a termination drop its result instead of storing it.
type Terminator interface {
	Terminate(ctx context.Context, reason string)
	Epoch() uint64
	Commit(epoch uint64, fn func() error) (bool, error)
}

// errSessionEnded marks a refresh whose session was terminated while it ran.
var errSessionEnded = errors.New("session ended during refresh")

// Config holds coordinator settings.
type Config struct {
	// Timeout bounds one refresh, independent of any waiter's context.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Timeout: 15 * time.Second}
}

// Coordinator owns the single in-flight refresh slot. Construct one per
// client session and share it between every dispatcher of that session.
type Coordinator struct {
	group      singleflight.Group
	inFlight   atomic.Bool
	store      domain.CredentialStore
	endpoint   Endpoint
	terminator Terminator
	timeout    time.Duration
	log        *slog.Logger
}

// NewCoordinator creates a coordinator. A nil logger falls back to slog.Default().
func NewCoordinator(
	store domain.CredentialStore,
	endpoint Endpoint,
	terminator Terminator,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Coordinator{
		store:      store,
		endpoint:   endpoint,
		terminator: terminator,
		timeout:    cfg.Timeout,
		log:        logger,
	}
}

// RefreshOnce returns the new access token, joining the in-flight refresh
// when there is one. On failure the session has already been terminated
// exactly once and every waiter receives an error wrapping ErrRefreshFailed.
//
// A waiter whose ctx ends early gets ctx.Err(); the refresh itself keeps
// running so its result still reaches the store.
func (c *Coordinator) RefreshOnce(ctx context.Context) (string, error) {
	ch := c.group.DoChan(flightKey, func() (any, error) {
		c.inFlight.Store(true)
		defer c.inFlight.Store(false)
		return c.run(context.WithoutCancel(ctx), c.terminator.Epoch())
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.RefreshSharedWaits.Inc()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// InFlight reports whether a refresh is currently running.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

func (c *Coordinator) run(parent context.Context, epoch uint64) (any, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	start := time.Now()
	token, err := c.refresh(ctx, epoch)
	metrics.RefreshLatency.Observe(time.Since(start).Seconds())

	if err != nil && !errors.Is(err, errSessionEnded) && c.terminator.Epoch() != epoch {
		err = fmt.Errorf("%w: %w", errSessionEnded, err)
	}
	if errors.Is(err, errSessionEnded) {
		// Already terminated; waiters must not replay with the discarded token
		metrics.RefreshCalls.WithLabelValues("discarded").Inc()
		c.log.Info("Discarding refreshed credential, session ended during refresh")
		return "", fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
	}
	if err != nil {
		metrics.RefreshCalls.WithLabelValues("failure").Inc()
		c.log.Warn("Credential refresh failed, terminating session", "error", err)

		termCtx, termCancel := context.WithTimeout(parent, c.timeout)
		defer termCancel()
		c.terminator.Terminate(termCtx, session.ReasonRefreshFailed)

		if !errors.Is(err, domain.ErrRefreshFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
		}
		return "", err
	}

	metrics.RefreshCalls.WithLabelValues("success").Inc()
	c.log.Info("Credential refreshed", "duration", time.Since(start))
	return token, nil
}

func (c *Coordinator) refresh(ctx context.Context, epoch uint64) (string, error) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if errors.Is(err, domain.ErrTokenNotFound) || (err == nil && refreshToken == "") {
		return "", domain.ErrNoRefreshToken
	}
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}

	cred, err := c.endpoint.Refresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh endpoint: %w", err)
	}
	if cred.AccessToken == "" {
		return "", domain.ErrEmptyToken
	}
	if cred.RefreshToken == "" {
		// Endpoint did not rotate the refresh token
		cred.RefreshToken = refreshToken
	}

	stored, err := c.terminator.Commit(epoch, func() error {
		return c.store.SetTokens(ctx, cred.AccessToken, cred.RefreshToken)
	})
	if err != nil {
		return "", fmt.Errorf("store tokens: %w", err)
	}
	if !stored {
		return "", errSessionEnded
	}
	return cred.AccessToken, nil
}
