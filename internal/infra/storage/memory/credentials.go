package memory

import (
	"context"
	"sync"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

// CredentialStore keeps the token pair in process memory.
type CredentialStore struct {
	mu   sync.RWMutex
	cred domain.Credential
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

func (s *CredentialStore) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred.AccessToken == "" {
		return "", domain.ErrTokenNotFound
	}
	return s.cred.AccessToken, nil
}

func (s *CredentialStore) RefreshToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred.RefreshToken == "" {
		return "", domain.ErrTokenNotFound
	}
	return s.cred.RefreshToken, nil
}

func (s *CredentialStore) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = domain.Credential{AccessToken: access, RefreshToken: refresh}
	return nil
}

func (s *CredentialStore) ClearTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = domain.Credential{}
	return nil
}
