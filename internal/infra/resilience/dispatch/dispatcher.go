// Package dispatch decides what happens to a failed operation: absorb it,
// refresh the credential and replay it, end the session, or surface it.
package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/resilience/classify"
	"github.com/vietddude/sessionguard/internal/infra/resilience/ledger"
	"github.com/vietddude/sessionguard/internal/infra/resilience/session"
	"github.com/vietddude/sessionguard/internal/monitoring/metrics"
)

// maxRefreshCycles bounds refresh-and-replay cycles per operation attempt.
const maxRefreshCycles = 1

// Transport forwards an operation. Replays go through the same transport as
// the original call.
type Transport interface {
	Forward(ctx context.Context, op *domain.Operation) (any, error)
}

// Refresher yields a fresh access token, sharing one in-flight refresh.
type Refresher interface {
	RefreshOnce(ctx context.Context) (string, error)
}

// Terminator ends the session.
type Terminator interface {
	Terminate(ctx context.Context, reason string)
}

// Dispatcher is the session recovery state machine.
type Dispatcher struct {
	transport  Transport
	classifier *classify.Classifier
	ledger     *ledger.Ledger
	refresher  Refresher
	terminator Terminator
	log        *slog.Logger
}

// New creates a dispatcher. A nil logger falls back to slog.Default().
func New(
	transport Transport,
	classifier *classify.Classifier,
	l *ledger.Ledger,
	refresher Refresher,
	terminator Terminator,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		transport:  transport,
		classifier: classifier,
		ledger:     l,
		refresher:  refresher,
		terminator: terminator,
		log:        logger,
	}
}

// Recover handles the failure of op and returns what the original caller sees:
//   - SilentHandled: (nil, nil), nothing logged
//   - recovered TokenRefreshNeeded: the replay's result
//   - session ended: domain.ErrSessionTerminated
//   - PermissionDenied, ServerError, Unclassified: *domain.SurfacedError
//   - connectivity or caller cancellation: the original error
//
// The ledger entry for op is removed on every one of these outcomes.
func (d *Dispatcher) Recover(ctx context.Context, op *domain.Operation, failure error) (any, error) {
	if failure == nil {
		d.ledger.Forget(op)
		return nil, nil
	}

	if errors.Is(failure, context.Canceled) || classify.IsConnectivity(failure) {
		d.ledger.Forget(op)
		if !errors.Is(failure, context.Canceled) {
			metrics.FailuresClassified.WithLabelValues(domain.Connectivity.String()).Inc()
			d.log.Warn("Operation failed on connectivity", "operation", op.Name, "error", failure)
		}
		return nil, failure
	}

	category, sig := d.pick(op, failure)
	metrics.FailuresClassified.WithLabelValues(category.String()).Inc()

	switch category {
	case domain.SilentHandled:
		d.ledger.Forget(op)
		return nil, nil

	case domain.ReloginNeeded, domain.LoginNeeded:
		d.terminate(ctx, op, session.ReasonLoginRequired)
		return nil, domain.ErrSessionTerminated

	case domain.TokenRefreshNeeded:
		return d.refreshAndReplay(ctx, op)

	default:
		d.ledger.Forget(op)
		msg := sig.Message
		if msg == "" {
			msg = category.Describe()
		}
		return nil, &domain.SurfacedError{Category: category, Message: msg, Err: failure}
	}
}

// pick classifies every signal, logs the non-silent ones and returns the
// first actionable category. Unclassified is used only when nothing else matched.
func (d *Dispatcher) pick(op *domain.Operation, failure error) (domain.ErrorCategory, domain.FailureSignal) {
	signals := signalsOf(op, failure)

	chosen := domain.Unclassified
	var chosenSig domain.FailureSignal
	found := false

	for _, sig := range signals {
		category := d.classifier.Classify(sig)
		if category != domain.SilentHandled {
			d.logSignal(op, sig, category)
		}
		if !found && category != domain.Unclassified {
			chosen, chosenSig, found = category, sig, true
		}
	}

	if !found && len(signals) > 0 {
		chosenSig = signals[0]
	}
	return chosen, chosenSig
}

func (d *Dispatcher) logSignal(op *domain.Operation, sig domain.FailureSignal, category domain.ErrorCategory) {
	attrs := []any{
		"operation", op.Name,
		"category", category.String(),
		"code", sig.Code(),
		"message", sig.Message,
	}
	if sig.TransportStatus != 0 {
		attrs = append(attrs, "status", sig.TransportStatus)
	}

	if category.IsSurfaced() {
		d.log.Error("Operation failed", attrs...)
		return
	}
	d.log.Info("Operation failed, recovering session", attrs...)
}

func (d *Dispatcher) refreshAndReplay(ctx context.Context, op *domain.Operation) (any, error) {
	// Never refresh-loop on the refresh call itself
	if d.classifier.IsRefreshOperation(op.Name) {
		if !d.classifier.IsExactRefreshOperation(op.Name) {
			d.log.Debug("Refresh operation matched by name heuristic", "operation", op.Name)
		}
		d.terminate(ctx, op, session.ReasonRefreshRejected)
		return nil, domain.ErrSessionTerminated
	}

	if d.ledger.Attempts(op) >= maxRefreshCycles {
		d.terminate(ctx, op, session.ReasonRetryExhausted)
		return nil, domain.ErrSessionTerminated
	}
	d.ledger.Increment(op)

	token, err := d.refresher.RefreshOnce(ctx)
	if err != nil {
		d.ledger.Forget(op)
		if errors.Is(err, domain.ErrRefreshFailed) {
			// Coordinator already terminated the session
			return nil, domain.ErrSessionTerminated
		}
		// Caller went away while the refresh was pending
		return nil, err
	}

	op.SetBearer(token)

	result, err := d.transport.Forward(ctx, op)
	if err != nil {
		metrics.Replays.WithLabelValues("failure").Inc()
		return d.Recover(ctx, op, err)
	}

	metrics.Replays.WithLabelValues("success").Inc()
	d.ledger.Forget(op)
	return result, nil
}

func (d *Dispatcher) terminate(ctx context.Context, op *domain.Operation, reason string) {
	d.ledger.Forget(op)
	d.terminator.Terminate(context.WithoutCancel(ctx), reason)
}

// signalsOf extracts failure signals from err. Errors that are not an
// OperationError become a single message-only signal.
func signalsOf(op *domain.Operation, err error) []domain.FailureSignal {
	var opErr *domain.OperationError
	if errors.As(err, &opErr) && len(opErr.Signals) > 0 {
		signals := make([]domain.FailureSignal, len(opErr.Signals))
		for i, sig := range opErr.Signals {
			if sig.Operation == "" {
				sig.Operation = op.Name
			}
			signals[i] = sig
		}
		return signals
	}
	return []domain.FailureSignal{{Message: err.Error(), Operation: op.Name}}
}
