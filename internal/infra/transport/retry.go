package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/monitoring/metrics"
)

// RetryConfig defines the connectivity retry policy.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        2 * time.Second,
	BackoffMultiple: 2.0,
}

// Retrying retries connectivity failures with exponential backoff.
// Every other outcome is returned on the first attempt so that credential
// recovery sees each failure exactly once.
type Retrying struct {
	next   Transport
	config RetryConfig
	log    *slog.Logger
}

// NewRetrying wraps next. A nil logger falls back to slog.Default().
func NewRetrying(next Transport, config RetryConfig, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Retrying{next: next, config: config, log: logger}
}

// Forward calls the wrapped transport until it stops failing on connectivity.
func (r *Retrying) Forward(ctx context.Context, op *domain.Operation) (any, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay
	if r.config.BackoffMultiple > 0 {
		b.Multiplier = r.config.BackoffMultiple
	}
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0.1

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.config.MaxAttempts-1)), ctx)

	var result any
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		res, err := r.next.Forward(ctx, op)
		if err == nil {
			result = res
			return nil
		}

		var connErr *domain.ConnectivityError
		if !errors.As(err, &connErr) {
			return backoff.Permanent(err)
		}
		if attempt < r.config.MaxAttempts {
			metrics.ConnectivityRetries.Inc()
			r.log.Debug("Retrying operation after connectivity failure",
				"operation", op.Name, "attempt", attempt, "error", err)
		}
		return err
	}, policy)

	if err != nil {
		// backoff reports the context error once the caller gives up
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, err
	}
	return result, nil
}
