// Package resilience keeps authenticated operations working across expired
// credentials.
//
// A failed operation is classified, and depending on the category it is
// absorbed, replayed once after a shared credential refresh, surfaced to the
// caller, or ends the session:
//   - classify/ - maps failure signals to an ErrorCategory
//   - ledger/   - per-operation refresh attempt counter
//   - refresh/  - single-flight credential refresh
//   - dispatch/ - recovery state machine
//   - session/  - session termination and notification
//
// # Quick Start
//
//	store := memory.NewCredentialStore()
//	client := resilience.New(resilience.Options{
//	    Transport: transport.NewHTTPTransport(url, store, 30*time.Second),
//	    Store:     store,
//	    Endpoint:  auth.NewRefreshClient(url, "refreshToken", 10*time.Second),
//	})
//
//	op := resilience.NewOperation("storeOrders", transport.GraphQLRequest{Query: q})
//	data, err := client.Do(ctx, op)
//	if errors.Is(err, resilience.ErrSessionTerminated) {
//	    // send the user to login
//	}
//
// Most types are re-exported at the root level for convenience.
package resilience

import (
	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/resilience/classify"
	"github.com/vietddude/sessionguard/internal/infra/resilience/refresh"
	"github.com/vietddude/sessionguard/internal/infra/resilience/session"
)

// =============================================================================
// Re-exported types from domain package
// =============================================================================

// Operation is a single client request that can be replayed.
type Operation = domain.Operation

// FailureSignal is one normalized failure report.
type FailureSignal = domain.FailureSignal

// ErrorCategory is the recovery bucket a failure falls into.
type ErrorCategory = domain.ErrorCategory

// SurfacedError is returned for permission, server and unclassified failures.
type SurfacedError = domain.SurfacedError

// ErrSessionTerminated is returned once recovery has ended the session.
var ErrSessionTerminated = domain.ErrSessionTerminated

// NewOperation creates an operation with a fresh identity.
func NewOperation(name string, payload any) *Operation {
	return domain.NewOperation(name, payload)
}

// =============================================================================
// Re-exported types from classify package
// =============================================================================

// ClassifierConfig holds extra code aliases and message patterns.
type ClassifierConfig = classify.Config

// Pattern maps a message fragment to a category.
type Pattern = classify.Pattern

// NewClassifier creates a classifier on top of the built-in rules.
func NewClassifier(cfg ClassifierConfig) *classify.Classifier {
	return classify.New(cfg)
}

// =============================================================================
// Re-exported types from refresh and session packages
// =============================================================================

// RefreshEndpoint exchanges a refresh token for a new credential pair.
type RefreshEndpoint = refresh.Endpoint

// Notifier is told when the session ends.
type Notifier = session.Notifier

// CacheResetter is a cache purged on session end.
type CacheResetter = session.CacheResetter

// SessionEvent describes a terminated session.
type SessionEvent = session.Event

// NewBroadcaster creates an in-process session-ended fan-out.
func NewBroadcaster() *session.Broadcaster {
	return session.NewBroadcaster()
}
