package domain

import "fmt"

// ErrorCategory is the closed set of failure classes the recovery layer acts on.
type ErrorCategory int

const (
	Unclassified ErrorCategory = iota
	SilentHandled
	TokenRefreshNeeded
	ReloginNeeded
	LoginNeeded
	PermissionDenied
	ServerError
	// Connectivity covers timeouts, DNS and refused connections. It never
	// enters credential recovery.
	Connectivity
)

var categoryNames = map[ErrorCategory]string{
	Unclassified:       "unclassified",
	SilentHandled:      "silent_handled",
	TokenRefreshNeeded: "token_refresh_needed",
	ReloginNeeded:      "relogin_needed",
	LoginNeeded:        "login_needed",
	PermissionDenied:   "permission_denied",
	ServerError:        "server_error",
	Connectivity:       "connectivity",
}

func (c ErrorCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Describe returns the human-readable text shown for surfaced categories.
func (c ErrorCategory) Describe() string {
	switch c {
	case PermissionDenied:
		return "you do not have permission to perform this action"
	case ServerError:
		return "the server could not complete the request"
	case Connectivity:
		return "the network is unavailable"
	case LoginNeeded, ReloginNeeded:
		return "please log in again"
	default:
		return "something went wrong"
	}
}

// ParseErrorCategory maps a configuration name back to its category.
func ParseErrorCategory(name string) (ErrorCategory, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return Unclassified, fmt.Errorf("unknown error category %q", name)
}

// IsTerminalSession reports whether the category ends the session.
func (c ErrorCategory) IsTerminalSession() bool {
	return c == ReloginNeeded || c == LoginNeeded
}

// IsSurfaced reports whether the category is returned to the caller as a SurfacedError.
func (c ErrorCategory) IsSurfaced() bool {
	return c == PermissionDenied || c == ServerError || c == Unclassified
}
