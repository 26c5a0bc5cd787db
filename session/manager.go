// Package session manages refresh-token grants on top of a
// store.SessionStore: issuance, rotation-on-use, and the revocation
// cascades. It owns the raw-token handling so stores only ever see
// digests.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authcore-io/authcore/secret"
	"github.com/authcore-io/authcore/store"
)

// DefaultTTL is the refresh-token lifetime when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Grant is an issued session together with the raw token handed to the
// user. The raw token is never persisted.
type Grant struct {
	RefreshToken string
	Session      *store.Session
}

// Manager issues and rotates sessions.
type Manager struct {
	store store.SessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(s store.SessionStore, ttl time.Duration, now func() time.Time) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{store: s, ttl: ttl, now: now}
}

// Issue creates a session bound to userAgent and returns the grant.
func (m *Manager) Issue(ctx context.Context, userID, userAgent string) (*Grant, error) {
	raw, err := secret.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := m.now().UTC()
	sess := &store.Session{
		ID:                 uuid.NewString(),
		UserID:             userID,
		RefreshTokenDigest: secret.Digest(raw),
		UserAgent:          userAgent,
		ExpiresAt:          now.Add(m.ttl),
		CreatedAt:          now,
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return &Grant{RefreshToken: raw, Session: sess}, nil
}

// Rotate exchanges rawToken for a fresh grant. The store serializes the
// swap; a replayed token and a lost race both surface as
// store.ErrSessionRevoked, a token that never matched a session as
// store.ErrSessionNotFound, and an agent mismatch as
// store.ErrAgentMismatch with the presented session left active.
func (m *Manager) Rotate(ctx context.Context, rawToken, userAgent string) (*Grant, *store.Session, error) {
	raw, err := secret.NewRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := m.now().UTC()
	next := &store.Session{
		ID:                 uuid.NewString(),
		RefreshTokenDigest: secret.Digest(raw),
		UserAgent:          userAgent,
		ExpiresAt:          now.Add(m.ttl),
		CreatedAt:          now,
	}

	old, err := m.store.RotateSession(ctx, secret.Digest(rawToken), userAgent, next)
	if err != nil {
		return nil, nil, err
	}
	return &Grant{RefreshToken: raw, Session: next}, old, nil
}

// RevokeByToken revokes the session holding rawToken. Unknown and
// already-revoked tokens are a no-op, so logout is idempotent.
func (m *Manager) RevokeByToken(ctx context.Context, rawToken string) error {
	return m.store.RevokeByDigest(ctx, secret.Digest(rawToken))
}

// Revoke revokes one session after checking it belongs to ownerUserID.
func (m *Manager) Revoke(ctx context.Context, sessionID, ownerUserID string) error {
	return m.store.RevokeSession(ctx, sessionID, ownerUserID)
}

// RevokeAll revokes every active session of the user.
func (m *Manager) RevokeAll(ctx context.Context, userID string) error {
	return m.store.RevokeAll(ctx, userID)
}

// RevokeOthers revokes all of the user's sessions except the one holding
// keepToken.
func (m *Manager) RevokeOthers(ctx context.Context, userID, keepToken string) error {
	return m.store.RevokeOthers(ctx, userID, secret.Digest(keepToken))
}

// List returns the user's active sessions, oldest first.
func (m *Manager) List(ctx context.Context, userID string) ([]store.Session, error) {
	return m.store.ListActive(ctx, userID)
}

// SweepExpired revokes past-due sessions and reports the count.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	return m.store.SweepExpired(ctx, m.now().UTC())
}
