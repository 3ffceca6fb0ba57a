// Package session ends authenticated sessions and announces it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/monitoring/metrics"
)

// Termination reasons used as metric labels and event reasons.
const (
	ReasonRefreshFailed   = "refresh_failed"
	ReasonRefreshRejected = "refresh_rejected"
	ReasonRetryExhausted  = "retry_exhausted"
	ReasonLoginRequired   = "login_required"
	ReasonUserLogout      = "user_logout"
)

// CacheResetter drops client-side state scoped to the authenticated identity.
type CacheResetter interface {
	Reset(ctx context.Context) error
}

// Terminator clears credentials, resets identity caches and notifies listeners.
// Every termination advances its epoch; writers that raced a termination use
// Commit to avoid restoring credentials that were just cleared.
type Terminator struct {
	mu    sync.Mutex
	epoch uint64

	store     domain.CredentialStore
	caches    []CacheResetter
	notifiers []Notifier
	log       *slog.Logger
	now       func() time.Time
}

// NewTerminator creates a terminator. A nil logger falls back to slog.Default().
func NewTerminator(
	store domain.CredentialStore,
	caches []CacheResetter,
	notifiers []Notifier,
	logger *slog.Logger,
) *Terminator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Terminator{
		store:     store,
		caches:    caches,
		notifiers: notifiers,
		log:       logger,
		now:       time.Now,
	}
}

// Terminate ends the session. Every step runs even when an earlier one fails;
// failures are logged and swallowed.
func (t *Terminator) Terminate(ctx context.Context, reason string) {
	// 1. Clear stored credentials
	t.mu.Lock()
	t.epoch++
	if err := t.store.ClearTokens(ctx); err != nil {
		t.log.Error("Failed to clear credentials", "reason", reason, "error", err)
	}
	t.mu.Unlock()

	// 2. Reset identity-scoped caches
	for i, c := range t.caches {
		if err := resetCache(ctx, c); err != nil {
			t.log.Warn("Failed to reset identity cache", "cache", i, "error", err)
		}
	}

	// 3. Announce
	ev := Event{Reason: reason, At: t.now()}
	for _, n := range t.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			t.log.Warn("Failed to deliver session-ended event", "reason", reason, "error", err)
		}
	}

	metrics.SessionTerminations.WithLabelValues(reason).Inc()
	t.log.Info("Session terminated", "reason", reason)
}

// Epoch returns the number of terminations so far.
func (t *Terminator) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Commit runs fn only if the session has not been terminated since epoch was
// read. It reports whether fn ran. No termination can start while fn runs.
func (t *Terminator) Commit(epoch uint64, fn func() error) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.epoch != epoch {
		return false, nil
	}
	return true, fn()
}

func resetCache(ctx context.Context, c CacheResetter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache reset panicked: %v", r)
		}
	}()
	return c.Reset(ctx)
}
