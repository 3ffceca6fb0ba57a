// Package classify maps failures to recovery categories.
package classify

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

// Config extends the built-in alias sets. Empty fields keep the defaults.
type Config struct {
	// RefreshOperations lists the exact names of the refresh operation.
	RefreshOperations []string

	AccessExpiredCodes  []string
	RefreshExpiredCodes []string
	SilentCodes         []string
	InvalidTokenCodes   []string
	NoTokenCodes        []string
	PermissionCodes     []string

	// Patterns are evaluated before the built-in message table.
	Patterns []Pattern
}

// Classifier is a pure failure -> category mapping. Safe for concurrent use.
type Classifier struct {
	refreshOps     map[string]struct{}
	accessExpired  map[string]struct{}
	refreshExpired map[string]struct{}
	silent         map[string]struct{}
	invalidToken   map[string]struct{}
	noToken        map[string]struct{}
	permission     map[string]struct{}
	patterns       []Pattern
}

// New builds a classifier from the defaults plus cfg.
func New(cfg Config) *Classifier {
	refreshOps := make(map[string]struct{})
	for _, name := range append(append([]string{}, DefaultRefreshOperations...), cfg.RefreshOperations...) {
		refreshOps[name] = struct{}{}
	}

	patterns := make([]Pattern, 0, len(cfg.Patterns)+len(defaultPatterns))
	for _, p := range cfg.Patterns {
		if p.Contains == "" {
			continue
		}
		patterns = append(patterns, Pattern{Contains: strings.ToLower(p.Contains), Category: p.Category})
	}
	patterns = append(patterns, defaultPatterns...)

	return &Classifier{
		refreshOps:     refreshOps,
		accessExpired:  codeSet(defaultAccessExpiredCodes, cfg.AccessExpiredCodes),
		refreshExpired: codeSet(defaultRefreshExpiredCodes, cfg.RefreshExpiredCodes),
		silent:         codeSet(defaultSilentCodes, cfg.SilentCodes),
		invalidToken:   codeSet(defaultInvalidTokenCodes, cfg.InvalidTokenCodes),
		noToken:        codeSet(defaultNoTokenCodes, cfg.NoTokenCodes),
		permission:     codeSet(defaultPermissionCodes, cfg.PermissionCodes),
		patterns:       patterns,
	}
}

// Default returns a classifier with only the built-in tables.
func Default() *Classifier {
	return New(Config{})
}

func codeSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, code := range list {
			set[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
		}
	}
	return set
}

// Classify determines the category of one failure signal. First match wins.
func (c *Classifier) Classify(sig domain.FailureSignal) domain.ErrorCategory {
	if sig.IsTransportLevel {
		if cat, ok := c.classifyTransport(sig); ok {
			return cat
		}
	}

	code := sig.Code()
	if code != "" {
		switch {
		case has(c.accessExpired, code):
			return domain.TokenRefreshNeeded
		case has(c.refreshExpired, code):
			return domain.ReloginNeeded
		case has(c.silent, code):
			return domain.SilentHandled
		case has(c.invalidToken, code):
			// The refresh call itself was rejected: nothing left to refresh with.
			if c.IsExactRefreshOperation(sig.FirstPath()) {
				return domain.ReloginNeeded
			}
			return domain.TokenRefreshNeeded
		case has(c.noToken, code):
			return domain.LoginNeeded
		case has(c.permission, code):
			return domain.PermissionDenied
		}
	}

	msg := strings.ToLower(sig.Message)
	if msg != "" {
		for _, p := range c.patterns {
			if strings.Contains(msg, p.Contains) {
				return p.Category
			}
		}
	}

	return domain.Unclassified
}

func (c *Classifier) classifyTransport(sig domain.FailureSignal) (domain.ErrorCategory, bool) {
	switch {
	case sig.TransportStatus == 401 || sig.TransportStatus == 403:
		if c.IsRefreshOperation(sig.Operation) {
			return domain.ReloginNeeded, true
		}
		return domain.TokenRefreshNeeded, true
	case sig.TransportStatus >= 500:
		return domain.ServerError, true
	}
	return domain.Unclassified, false
}

// IsExactRefreshOperation reports whether name is in the refresh alias set.
func (c *Classifier) IsExactRefreshOperation(name string) bool {
	if name == "" {
		return false
	}
	return has(c.refreshOps, name)
}

// IsRefreshOperation reports whether name is the refresh call. The alias set
// is authoritative. The case-insensitive "refresh" substring fallback is a
// safety net and can be narrowed once every caller sends a registered name.
func (c *Classifier) IsRefreshOperation(name string) bool {
	if c.IsExactRefreshOperation(name) {
		return true
	}
	for alias := range c.refreshOps {
		if strings.EqualFold(alias, name) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(name), "refresh")
}

func has(set map[string]struct{}, code string) bool {
	_, ok := set[code]
	return ok
}

// IsConnectivity reports whether err is a pure connectivity failure
// (timeout, DNS failure, refused or reset connection).
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}

	var connErr *domain.ConnectivityError
	if errors.As(err, &connErr) {
		return true
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
