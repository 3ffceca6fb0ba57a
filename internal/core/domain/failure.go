package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FailureSignal is the normalized form of one failure reported for an operation.
type FailureSignal struct {
	// RawCode is the protocol error code: string, number or nil.
	RawCode any

	Message string

	// Path locates the failing field in the response, outermost first.
	Path []string

	// TransportStatus is the transport status code (e.g. 401), zero when absent.
	TransportStatus int

	// IsTransportLevel is set when the failure came from the transport itself
	// rather than from a protocol error body.
	IsTransportLevel bool

	// Operation is the name of the operation the signal was observed on.
	Operation string
}

// Code returns RawCode normalized to an upper-case string, or "" when absent.
func (s FailureSignal) Code() string {
	switch v := s.RawCode.(type) {
	case nil:
		return ""
	case string:
		return strings.ToUpper(strings.TrimSpace(v))
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return strings.ToUpper(strings.TrimSpace(v.String()))
	default:
		return strings.ToUpper(strings.TrimSpace(fmt.Sprint(v)))
	}
}

// FirstPath returns Path[0] or "" when the path is empty.
func (s FailureSignal) FirstPath() string {
	if len(s.Path) == 0 {
		return ""
	}
	return s.Path[0]
}
