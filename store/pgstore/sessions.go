package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/authcore-io/authcore/store"
)

const sessionColumns = `id, user_id, refresh_token_digest, user_agent, expires_at, revoked_at, created_at`

func scanSession(row pgx.Row) (*store.Session, error) {
	var (
		sess   store.Session
		digest []byte
	)
	err := row.Scan(
		&sess.ID, &sess.UserID, &digest, &sess.UserAgent,
		&sess.ExpiresAt, &sess.RevokedAt, &sess.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(sess.RefreshTokenDigest[:], digest)
	return &sess, nil
}

// CreateSession inserts one refresh-token grant.
func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token_digest, user_agent, expires_at, revoked_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sess.ID, sess.UserID, sess.RefreshTokenDigest[:], sess.UserAgent,
		sess.ExpiresAt, sess.RevokedAt, sess.CreatedAt,
	)
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RotateSession locks the active row matching providedDigest, checks the
// bound agent, revokes it, and inserts next, all in one transaction. The
// loser of a concurrent race blocks on the row lock, finds it revoked
// once the winner commits, and fails with store.ErrSessionRevoked.
func (s *Store) RotateSession(ctx context.Context, providedDigest [32]byte, userAgent string, next *store.Session) (*store.Session, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	old, err := scanSession(tx.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE refresh_token_digest = $1 AND revoked_at IS NULL AND expires_at > now()
		 FOR UPDATE`,
		providedDigest[:]))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The sweeper stamps revoked_at at or after expiry, so a
			// revocation before expiry means the token was spent, not
			// lapsed.
			var replayed bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (
				   SELECT 1 FROM sessions
				   WHERE refresh_token_digest = $1 AND revoked_at IS NOT NULL AND revoked_at < expires_at)`,
				providedDigest[:]).Scan(&replayed); err != nil {
				return nil, wrapUnavailable(err)
			}
			if replayed {
				return nil, store.ErrSessionRevoked
			}
			return nil, store.ErrSessionNotFound
		}
		return nil, wrapUnavailable(err)
	}

	if old.UserAgent != userAgent {
		// Hard reject, session stays usable from its original context.
		return nil, store.ErrAgentMismatch
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET revoked_at = now() WHERE id = $1`, old.ID); err != nil {
		return nil, wrapUnavailable(err)
	}

	next.UserID = old.UserID
	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token_digest, user_agent, expires_at, revoked_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULL, $6)`,
		next.ID, next.UserID, next.RefreshTokenDigest[:], next.UserAgent,
		next.ExpiresAt, next.CreatedAt,
	); err != nil {
		return nil, wrapUnavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapUnavailable(err)
	}
	return old, nil
}

// RevokeByDigest revokes the active session matching digest; absent or
// already-revoked sessions are a no-op.
func (s *Store) RevokeByDigest(ctx context.Context, digest [32]byte) error {
	_, err := s.db.Exec(ctx,
		`UPDATE sessions SET revoked_at = now()
		 WHERE refresh_token_digest = $1 AND revoked_at IS NULL`,
		digest[:])
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RevokeSession revokes one active session owned by ownerUserID.
func (s *Store) RevokeSession(ctx context.Context, sessionID, ownerUserID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET revoked_at = now()
		 WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL AND expires_at > now()`,
		sessionID, ownerUserID)
	if err != nil {
		return wrapUnavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

// RevokeAll revokes every active session of the user.
func (s *Store) RevokeAll(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE sessions SET revoked_at = now()
		 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID)
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RevokeOthers revokes every active session of the user except the one
// matching keepDigest.
func (s *Store) RevokeOthers(ctx context.Context, userID string, keepDigest [32]byte) error {
	_, err := s.db.Exec(ctx,
		`UPDATE sessions SET revoked_at = now()
		 WHERE user_id = $1 AND revoked_at IS NULL AND refresh_token_digest <> $2`,
		userID, keepDigest[:])
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ListActive returns the user's active sessions, oldest first.
func (s *Store) ListActive(ctx context.Context, userID string) ([]store.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()
		 ORDER BY created_at ASC`,
		userID)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	var sessions []store.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, wrapUnavailable(err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return sessions, nil
}

// SweepExpired revokes all past-due sessions still marked active.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET revoked_at = $1
		 WHERE expires_at <= $1 AND revoked_at IS NULL`,
		now)
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return int(tag.RowsAffected()), nil
}
