package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/authcore-io/authcore/store"
)

// otpIssuanceWindow is the span over which the daily cap counts issuances.
const otpIssuanceWindow = 24 * time.Hour

// IssueOtp enforces the issue policy and inserts the code in one
// transaction. An advisory lock keyed on (user, purpose) serializes
// concurrent issuance even when no prior row exists to lock.
func (s *Store) IssueOtp(ctx context.Context, otp *store.Otp, policy store.OtpIssuePolicy) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return wrapUnavailable(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		otp.UserID, string(otp.Purpose)); err != nil {
		return wrapUnavailable(err)
	}

	// Cooldown runs from the latest consumable code.
	var lastIssued time.Time
	err = tx.QueryRow(ctx,
		`SELECT created_at FROM otps
		 WHERE user_id = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > now()
		 ORDER BY created_at DESC
		 LIMIT 1`,
		otp.UserID, string(otp.Purpose)).Scan(&lastIssued)
	switch {
	case err == nil:
		if otp.CreatedAt.Sub(lastIssued) < policy.ResendCooldown {
			return store.ErrOtpCooldown
		}
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return wrapUnavailable(err)
	}

	if policy.DailyCap > 0 {
		var issued int
		err = tx.QueryRow(ctx,
			`SELECT count(*) FROM otps
			 WHERE user_id = $1 AND purpose = $2 AND created_at > $3`,
			otp.UserID, string(otp.Purpose), otp.CreatedAt.Add(-otpIssuanceWindow)).Scan(&issued)
		if err != nil {
			return wrapUnavailable(err)
		}
		if issued >= policy.DailyCap {
			return store.ErrOtpDailyLimit
		}
	}

	// Supersede: at most one consumable code per (user, purpose).
	if _, err := tx.Exec(ctx,
		`UPDATE otps SET used_at = $3
		 WHERE user_id = $1 AND purpose = $2 AND used_at IS NULL`,
		otp.UserID, string(otp.Purpose), otp.CreatedAt); err != nil {
		return wrapUnavailable(err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO otps (id, user_id, purpose, code_digest, expires_at, used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULL, $6)`,
		otp.ID, otp.UserID, string(otp.Purpose), otp.CodeDigest[:],
		otp.ExpiresAt, otp.CreatedAt); err != nil {
		return wrapUnavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ConsumeOtp marks the matching unused, unexpired code as used. Wrong,
// expired, and already-used codes all land on the same error.
func (s *Store) ConsumeOtp(ctx context.Context, userID string, purpose store.OtpPurpose, digest [32]byte) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE otps SET used_at = now()
		 WHERE user_id = $1 AND purpose = $2 AND code_digest = $3
		   AND used_at IS NULL AND expires_at > now()`,
		userID, string(purpose), digest[:])
	if err != nil {
		return wrapUnavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrOtpNotFound
	}
	return nil
}
