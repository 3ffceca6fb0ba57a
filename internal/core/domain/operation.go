package domain

import (
	"strings"

	"github.com/google/uuid"
)

// AuthorizationHeader is the header carrying the access credential.
const AuthorizationHeader = "Authorization"

// Operation identifies one logical request attempt.
// The ID is generated per attempt so two calls to the same named operation
// with identical payloads are still tracked independently.
type Operation struct {
	// ID is the stable per-attempt identifier (uuid).
	ID string

	// Name is the operation name (e.g. "cartItems", "refreshToken").
	Name string

	// Payload is opaque to the resilience layer; transports interpret it.
	Payload any

	// Headers are mutable request headers. Only the dispatcher and transports touch them.
	Headers map[string]string

	// CacheKey enables identity-scoped result caching when non-empty.
	CacheKey string
}

// NewOperation creates an Operation with a fresh identifier.
func NewOperation(name string, payload any) *Operation {
	return &Operation{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: payload,
		Headers: make(map[string]string),
	}
}

// Header returns a header value, matching the key case-insensitively.
func (o *Operation) Header(key string) (string, bool) {
	for k, v := range o.Headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// SetHeader replaces any existing header with the same case-insensitive key.
func (o *Operation) SetHeader(key, value string) {
	if o.Headers == nil {
		o.Headers = make(map[string]string)
	}
	for k := range o.Headers {
		if strings.EqualFold(k, key) {
			delete(o.Headers, k)
		}
	}
	o.Headers[key] = value
}

// SetBearer writes the access token into the authorization header.
// Calling it twice with the same token leaves the operation unchanged.
func (o *Operation) SetBearer(token string) {
	o.SetHeader(AuthorizationHeader, "Bearer "+token)
}

// HasCredential reports whether an authorization header is already attached.
func (o *Operation) HasCredential() bool {
	v, ok := o.Header(AuthorizationHeader)
	return ok && v != ""
}
