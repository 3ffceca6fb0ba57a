// Package transport forwards operations over the wire and reports failures
// as domain failure signals.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/monitoring/metrics"
)

// Transport forwards one operation and returns its result.
//
// Failures are reported as *domain.OperationError (protocol or transport-level
// signals), *domain.ConnectivityError, or the context's error.
type Transport interface {
	Forward(ctx context.Context, op *domain.Operation) (any, error)
}

// TokenSource supplies the access token attached to outgoing operations.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// attachCredential sets the bearer header from src unless op already carries
// one. A missing token is not an error; the server decides.
func attachCredential(ctx context.Context, src TokenSource, op *domain.Operation) error {
	if src == nil || op.HasCredential() {
		return nil
	}
	token, err := src.AccessToken(ctx)
	if errors.Is(err, domain.ErrTokenNotFound) || (err == nil && token == "") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	op.SetBearer(token)
	return nil
}

// networkFailure turns a send error into the caller's context error or a
// ConnectivityError.
func networkFailure(ctx context.Context, op *domain.Operation, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}
	return &domain.ConnectivityError{Operation: op.Name, Err: err}
}

func observe(transport string, op *domain.Operation, start time.Time, err error) {
	outcome := "success"
	var (
		opErr   *domain.OperationError
		connErr *domain.ConnectivityError
	)
	switch {
	case err == nil:
	case errors.As(err, &connErr):
		outcome = "connectivity"
	case errors.As(err, &opErr):
		outcome = "failure"
	default:
		outcome = "error"
	}
	metrics.TransportRequests.WithLabelValues(transport, outcome).Inc()
	metrics.TransportLatency.WithLabelValues(transport, op.Name).Observe(time.Since(start).Seconds())
}
