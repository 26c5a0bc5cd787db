// Package store defines the persistence boundary of the credential and
// session lifecycle manager: the durable record types and the operation
// surface every backend must provide.
//
// Multi-step operations (rotation, OTP issuance, cascading revocation) are
// part of the interface so that each backend can serialize them server-side.
// Callers must never compose them from separate round trips.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateEmail is returned by CreateUser when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when no session matches the lookup.
	ErrSessionNotFound = errors.New("active session not found")
	// ErrSessionRevoked is returned by RotateSession when the digest
	// resolves to a session that was already revoked. This is the replay
	// signal: the presented token was valid once and has been used since,
	// which includes rotations that lost a race to a concurrent caller.
	ErrSessionRevoked = errors.New("session already revoked")
	// ErrAgentMismatch is returned by RotateSession when the presented
	// user agent differs from the one bound at issuance. The session is
	// left untouched.
	ErrAgentMismatch = errors.New("session user agent mismatch")
	// ErrOtpCooldown is returned by IssueOtp while the reissue cooldown
	// for the (user, purpose) pair is still running.
	ErrOtpCooldown = errors.New("otp reissue cooldown active")
	// ErrOtpDailyLimit is returned by IssueOtp once the rolling 24h
	// issuance cap for the (user, purpose) pair is reached.
	ErrOtpDailyLimit = errors.New("otp daily issuance limit reached")
	// ErrOtpNotFound is returned by ConsumeOtp when no unused, unexpired
	// code matches the digest. Wrong, expired, and already-used codes are
	// indistinguishable through this error.
	ErrOtpNotFound = errors.New("matching otp not found")
	// ErrRoleNotFound is returned when a role lookup fails, including a
	// missing default role.
	ErrRoleNotFound = errors.New("role not found")
	// ErrUnavailable wraps backend transport failures.
	ErrUnavailable = errors.New("store unavailable")
)

// OtpPurpose names the flow an OTP belongs to. Rate limits and single-use
// enforcement apply per (user, purpose) pair.
type OtpPurpose string

const (
	// PurposeEmailVerify covers first-time email ownership proof.
	PurposeEmailVerify OtpPurpose = "email_verify"
	// PurposePasswordReset covers the forgot-password flow.
	PurposePasswordReset OtpPurpose = "password_reset"
	// PurposeEmailChange covers confirmation of an address change.
	PurposeEmailChange OtpPurpose = "email_change"
)

// Valid reports whether p is one of the three known purposes.
func (p OtpPurpose) Valid() bool {
	switch p {
	case PurposeEmailVerify, PurposePasswordReset, PurposeEmailChange:
		return true
	}
	return false
}

// User is the identity record. PasswordHash is empty for accounts without
// local credentials. Users are never physically deleted by this core.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	PasswordHash  string
	FirstName     string
	LastName      string
	AuthProvider  string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Session backs a single refresh-token grant. Only the sha256 digest of
// the raw token is ever stored. RevokedAt is nil while the session is
// active; once set it is terminal.
type Session struct {
	ID                 string
	UserID             string
	RefreshTokenDigest [32]byte
	UserAgent          string
	ExpiresAt          time.Time
	RevokedAt          *time.Time
	CreatedAt          time.Time
}

// Active reports whether the session is unrevoked and unexpired at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// Otp is a one-time code grant. CodeDigest is the sha256 of the six-digit
// code. UsedAt is nil while the code is consumable; expiry is evaluated at
// verification time, never written back.
type Otp struct {
	ID         string
	UserID     string
	Purpose    OtpPurpose
	CodeDigest [32]byte
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}

// OtpIssuePolicy carries the rate-limit parameters IssueOtp enforces
// atomically with the insert.
type OtpIssuePolicy struct {
	ResendCooldown time.Duration
	DailyCap       int
}

// UserStore persists identity records.
type UserStore interface {
	// CreateUser inserts u, enforcing email uniqueness. Returns
	// ErrDuplicateEmail when the address is already registered.
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	// UpdateEmail replaces the address and marks it verified in one write.
	UpdateEmail(ctx context.Context, userID, email string) error
	SetEmailVerified(ctx context.Context, userID string, verified bool) error
	SetActive(ctx context.Context, userID string, active bool) error
	AssignRole(ctx context.Context, userID, roleID string) error
}

// SessionStore persists refresh-token grants. Rotation and the revocation
// cascades are single atomic units per call.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	// RotateSession finds the active session matching providedDigest,
	// verifies the bound user agent, revokes it, and inserts next in its
	// place, backfilling next.UserID from the rotated session. Exactly
	// one of two concurrent calls with the same digest succeeds; the
	// other observes ErrSessionRevoked, as does any later replay of the
	// rotated-out token. A digest that never matched a session returns
	// ErrSessionNotFound. An agent mismatch returns ErrAgentMismatch and
	// leaves the session active.
	RotateSession(ctx context.Context, providedDigest [32]byte, userAgent string, next *Session) (*Session, error)
	// RevokeByDigest revokes the active session matching the digest.
	// Revoking an absent or already-revoked session is a no-op.
	RevokeByDigest(ctx context.Context, digest [32]byte) error
	// RevokeSession revokes one active session owned by ownerUserID.
	// Absent, already-revoked, and foreign sessions all return
	// ErrSessionNotFound.
	RevokeSession(ctx context.Context, sessionID, ownerUserID string) error
	// RevokeAll revokes every active session of the user. Idempotent.
	RevokeAll(ctx context.Context, userID string) error
	// RevokeOthers revokes every active session of the user except the
	// one matching keepDigest.
	RevokeOthers(ctx context.Context, userID string, keepDigest [32]byte) error
	// ListActive returns the user's active sessions ordered by creation
	// time ascending.
	ListActive(ctx context.Context, userID string) ([]Session, error)
	// SweepExpired revokes sessions whose expiry has passed and reports
	// how many it flipped. Safe to run repeatedly and concurrently.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// OtpStore persists one-time codes. Issuance folds the rate-limit checks,
// the supersede of the prior unused code, and the insert into one unit.
type OtpStore interface {
	// IssueOtp applies the policy for (otp.UserID, otp.Purpose): an
	// unused, unexpired code younger than the cooldown fails with
	// ErrOtpCooldown; reaching the rolling daily cap fails with
	// ErrOtpDailyLimit. On pass it marks any prior unused code used and
	// inserts otp.
	IssueOtp(ctx context.Context, otp *Otp, policy OtpIssuePolicy) error
	// ConsumeOtp marks the unused, unexpired code matching digest as used.
	// Any non-match returns ErrOtpNotFound.
	ConsumeOtp(ctx context.Context, userID string, purpose OtpPurpose, digest [32]byte) error
}

// RoleStore resolves role assignments. Both bundled backends implement it
// so they can double as the engine's role directory.
type RoleStore interface {
	// RolesOf returns the user's role names sorted ascending.
	RolesOf(ctx context.Context, userID string) ([]string, error)
	// DefaultRoleID resolves the role new registrations are assigned.
	// Returns ErrRoleNotFound when the backend was never seeded.
	DefaultRoleID(ctx context.Context) (string, error)
}

// Store is the full persistence surface the engine composes.
type Store interface {
	UserStore
	SessionStore
	OtpStore
}
