// Package ledger bounds refresh-and-replay cycles per operation attempt.
package ledger

import (
	"sync"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

// Ledger counts refresh attempts keyed by operation ID.
// Entries are removed explicitly on every terminal outcome, so the map only
// holds operations currently inside a recovery cycle.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]int)}
}

// Attempts returns how many refresh cycles op has already consumed.
func (l *Ledger) Attempts(op *domain.Operation) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[op.ID]
}

// Increment records one more refresh cycle for op and returns the new count.
func (l *Ledger) Increment(op *domain.Operation) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[op.ID]++
	return l.entries[op.ID]
}

// Forget drops the entry for op. Forgetting an unknown op is a no-op.
func (l *Ledger) Forget(op *domain.Operation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, op.ID)
}

// Len returns the number of tracked operations.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
