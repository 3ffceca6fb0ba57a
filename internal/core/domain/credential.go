package domain

import "context"

// Credential is an access/refresh token pair. Its structure is never inspected.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CredentialStore is the opaque secret store holding the session's tokens.
// Getters return ErrTokenNotFound when nothing is stored.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
}
