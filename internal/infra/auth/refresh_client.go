// Package auth talks to the credential refresh endpoint.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/transport"
)

// DefaultOperation is the refresh mutation's field name.
const DefaultOperation = "refreshToken"

const refreshMutation = `mutation %[1]s($refreshToken: String!) {
  %[1]s(refreshToken: $refreshToken) {
    accessToken
    refreshToken
  }
}`

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshClient exchanges a refresh token for a new credential pair.
// It posts directly and never goes through session recovery.
type RefreshClient struct {
	operation string
	transport *transport.HTTPTransport
}

// NewRefreshClient creates a client for the GraphQL endpoint at url.
// An empty operation uses DefaultOperation.
func NewRefreshClient(url, operation string, timeout time.Duration) *RefreshClient {
	if operation == "" {
		operation = DefaultOperation
	}
	return &RefreshClient{
		operation: operation,
		transport: transport.NewHTTPTransport(url, nil, timeout),
	}
}

// Operation returns the refresh operation name.
func (c *RefreshClient) Operation() string {
	return c.operation
}

// Refresh calls the refresh mutation. An answer without an access token is an error.
func (c *RefreshClient) Refresh(ctx context.Context, refreshToken string) (domain.Credential, error) {
	op := domain.NewOperation(c.operation, transport.GraphQLRequest{
		Query:     fmt.Sprintf(refreshMutation, c.operation),
		Variables: map[string]any{"refreshToken": refreshToken},
	})

	result, err := c.transport.Forward(ctx, op)
	if err != nil {
		return domain.Credential{}, err
	}

	raw, _ := result.(json.RawMessage)
	var data map[string]*tokenPair
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.Credential{}, fmt.Errorf("parse refresh response: %w", err)
	}

	pair := data[c.operation]
	if pair == nil || pair.AccessToken == "" {
		return domain.Credential{}, domain.ErrEmptyToken
	}
	return domain.Credential{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}
