package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

type credentialRow struct {
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
}

// CredentialRepo implements domain.CredentialStore with one row per session.
type CredentialRepo struct {
	db      *DB
	session string
}

// NewCredentialRepo creates a credential store for session.
func NewCredentialRepo(db *DB, session string) *CredentialRepo {
	if session == "" {
		session = "default"
	}
	return &CredentialRepo{db: db, session: session}
}

func (r *CredentialRepo) get(ctx context.Context) (credentialRow, error) {
	var row credentialRow
	err := r.db.GetContext(ctx, &row,
		`SELECT access_token, refresh_token FROM session_credentials WHERE session = $1`, r.session)
	if errors.Is(err, sql.ErrNoRows) {
		return row, domain.ErrTokenNotFound
	}
	if err != nil {
		return row, fmt.Errorf("failed to get credentials: %w", err)
	}
	return row, nil
}

func (r *CredentialRepo) AccessToken(ctx context.Context) (string, error) {
	row, err := r.get(ctx)
	if err != nil {
		return "", err
	}
	if row.AccessToken == "" {
		return "", domain.ErrTokenNotFound
	}
	return row.AccessToken, nil
}

func (r *CredentialRepo) RefreshToken(ctx context.Context) (string, error) {
	row, err := r.get(ctx)
	if err != nil {
		return "", err
	}
	if row.RefreshToken == "" {
		return "", domain.ErrTokenNotFound
	}
	return row.RefreshToken, nil
}

// SetTokens upserts the pair for this session.
func (r *CredentialRepo) SetTokens(ctx context.Context, access, refresh string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_credentials (session, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    updated_at = now()`,
		r.session, access, refresh)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (r *CredentialRepo) ClearTokens(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session_credentials WHERE session = $1`, r.session); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
