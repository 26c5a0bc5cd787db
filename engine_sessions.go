package authcore

import (
	"context"
	"errors"

	"github.com/authcore-io/authcore/internal/audit"
	"github.com/authcore-io/authcore/internal/metrics"
	"github.com/authcore-io/authcore/store"
)

// Sessions lists the user's active sessions, oldest first.
func (e *Engine) Sessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	active, err := e.sessions.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	infos := make([]SessionInfo, 0, len(active))
	for _, s := range active {
		infos = append(infos, SessionInfo{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	return infos, nil
}

// RevokeSession revokes one of the user's sessions. A session that is
// absent, already revoked, or owned by another user fails with
// ErrSessionNotFound.
func (e *Engine) RevokeSession(ctx context.Context, sessionID, ownerUserID string) error {
	if err := e.sessions.Revoke(ctx, sessionID, ownerUserID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	e.metrics.Inc(metrics.SessionRevoked)
	e.emit(ctx, audit.Event{Action: audit.ActionSessionRevoke, UserID: ownerUserID, SessionID: sessionID, Success: true})
	return nil
}

// RevokeAllSessions revokes every active session of the user. Idempotent.
func (e *Engine) RevokeAllSessions(ctx context.Context, userID string) error {
	return e.revokeAllSessions(ctx, userID, audit.ActionSessionRevokeAll)
}

// RevokeOtherSessions revokes all of the user's sessions except the one
// holding keepRawToken.
func (e *Engine) RevokeOtherSessions(ctx context.Context, userID, keepRawToken string) error {
	if err := e.sessions.RevokeOthers(ctx, userID, keepRawToken); err != nil {
		return err
	}
	e.metrics.Inc(metrics.SessionRevoked)
	e.emit(ctx, audit.Event{Action: audit.ActionSessionRevokeAll, UserID: userID, Success: true, Meta: map[string]string{"kept": "one"}})
	return nil
}

// SweepExpiredSessions revokes past-due sessions and reports how many it
// flipped. Safe to schedule repeatedly and run concurrently.
func (e *Engine) SweepExpiredSessions(ctx context.Context) (int, error) {
	swept, err := e.sessions.SweepExpired(ctx)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		e.metrics.Add(metrics.SessionsSwept, uint64(swept))
		e.emit(ctx, audit.Event{Action: audit.ActionSessionSweep, Success: true})
	}
	return swept, nil
}
