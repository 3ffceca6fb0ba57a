// Package health reports session and dependency status over HTTP.
package health

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/sessionguard/internal/infra/resilience"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// SessionSource reports the live session state.
type SessionSource interface {
	Status(ctx context.Context) (resilience.Status, error)
}

// Check probes one dependency, such as the credential store backend.
type Check func(ctx context.Context) error

// ComponentHealth is the result of one dependency check.
type ComponentHealth struct {
	Name   string       `json:"name"`
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// Report contains the full health report.
type Report struct {
	SystemStatus SystemStatus      `json:"system_status"`
	Session      resilience.Status `json:"session"`
	Components   []ComponentHealth `json:"components"`
}

// Monitor aggregates health status from the session and its dependencies.
type Monitor struct {
	session SessionSource

	mu     sync.RWMutex
	checks map[string]Check
}

// NewMonitor creates a monitor for session.
func NewMonitor(session SessionSource) *Monitor {
	return &Monitor{session: session, checks: make(map[string]Check)}
}

// AddCheck registers a named dependency check.
func (m *Monitor) AddCheck(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// CheckHealth runs every check. A failed dependency is critical; a refresh in
// progress is degraded.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	checks := m.checks
	m.mu.RUnlock()
	sort.Strings(names)

	report := Report{SystemStatus: StatusHealthy, Components: []ComponentHealth{}}

	for _, name := range names {
		c := ComponentHealth{Name: name, Status: StatusHealthy}
		if err := checks[name](ctx); err != nil {
			c.Status = StatusCritical
			c.Error = err.Error()
			report.SystemStatus = StatusCritical
		}
		report.Components = append(report.Components, c)
	}

	st, err := m.session.Status(ctx)
	if err != nil {
		report.Components = append(report.Components, ComponentHealth{
			Name: "session", Status: StatusCritical, Error: err.Error(),
		})
		report.SystemStatus = StatusCritical
		return report
	}
	report.Session = st
	if st.RefreshInFlight && report.SystemStatus == StatusHealthy {
		report.SystemStatus = StatusDegraded
	}
	return report
}
