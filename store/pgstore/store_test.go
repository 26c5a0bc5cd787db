package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/authcore-io/authcore/secret"
	"github.com/authcore-io/authcore/store"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, New(mock)
}

func uniqueViolation() *pgconn.PgError {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
}

func TestCreateUser(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()

	u := &store.User{
		ID: "id-1", Email: "ada@example.com", PasswordHash: "$argon2id$...",
		AuthProvider: "local", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.EmailVerified, u.PasswordHash,
			u.FirstName, u.LastName, u.AuthProvider, u.IsActive,
			u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(uniqueViolation())

	err := s.CreateUser(context.Background(), &store.User{ID: "id-1", Email: "taken@example.com"})
	require.ErrorIs(t, err, store.ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func userRows(u *store.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "email_verified", "password_hash", "first_name",
		"last_name", "auth_provider", "is_active", "created_at", "updated_at",
	}).AddRow(
		u.ID, u.Email, u.EmailVerified, u.PasswordHash, u.FirstName,
		u.LastName, u.AuthProvider, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
}

func TestGetUserByID(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()

	want := &store.User{
		ID: "id-1", Email: "ada@example.com", EmailVerified: true,
		PasswordHash: "$argon2id$...", AuthProvider: "local", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("id-1").
		WillReturnRows(userRows(want))

	got, err := s.GetUserByID(context.Background(), "id-1")
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("missing@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUserByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, store.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmail(t *testing.T) {
	mock, s := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users SET email").
		WithArgs("id-1", "new@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.UpdateEmail(ctx, "id-1", "new@example.com"))

	mock.ExpectExec("UPDATE users SET email").
		WithArgs("id-1", "taken@example.com").
		WillReturnError(uniqueViolation())
	require.ErrorIs(t, s.UpdateEmail(ctx, "id-1", "taken@example.com"), store.ErrDuplicateEmail)

	mock.ExpectExec("UPDATE users SET email").
		WithArgs("missing", "new@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, s.UpdateEmail(ctx, "missing", "new@example.com"), store.ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveNotFound(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec("UPDATE users SET is_active").
		WithArgs("missing", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetActive(context.Background(), "missing", false)
	require.ErrorIs(t, err, store.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func sessionRows(sessions ...*store.Session) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "user_id", "refresh_token_digest", "user_agent",
		"expires_at", "revoked_at", "created_at",
	})
	for _, sess := range sessions {
		rows.AddRow(sess.ID, sess.UserID, sess.RefreshTokenDigest[:],
			sess.UserAgent, sess.ExpiresAt, sess.RevokedAt, sess.CreatedAt)
	}
	return rows
}

func TestRotateSession(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()

	oldDigest := secret.Digest("old-token")
	current := &store.Session{
		ID: "s-old", UserID: "u1", RefreshTokenDigest: oldDigest,
		UserAgent: "cli", ExpiresAt: now.Add(time.Hour), CreatedAt: now.Add(-time.Hour),
	}
	next := &store.Session{
		ID: "s-new", RefreshTokenDigest: secret.Digest("new-token"),
		UserAgent: "cli", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs(oldDigest[:]).
		WillReturnRows(sessionRows(current))
	mock.ExpectExec("UPDATE sessions SET revoked_at").
		WithArgs("s-old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(next.ID, "u1", next.RefreshTokenDigest[:], next.UserAgent,
			next.ExpiresAt, next.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	old, err := s.RotateSession(context.Background(), oldDigest, "cli", next)
	require.NoError(t, err)
	require.Equal(t, "s-old", old.ID)
	require.Equal(t, "u1", next.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateSessionNotFound(t *testing.T) {
	mock, s := newMockStore(t)

	digest := secret.Digest("never-issued")
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs(digest[:]).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(digest[:]).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := s.RotateSession(context.Background(), digest, "cli", &store.Session{ID: "s-new"})
	require.ErrorIs(t, err, store.ErrSessionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateSessionReplay(t *testing.T) {
	mock, s := newMockStore(t)

	digest := secret.Digest("rotated-out")
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs(digest[:]).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(digest[:]).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := s.RotateSession(context.Background(), digest, "cli", &store.Session{ID: "s-new"})
	require.ErrorIs(t, err, store.ErrSessionRevoked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateSessionAgentMismatch(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()

	digest := secret.Digest("token")
	current := &store.Session{
		ID: "s-old", UserID: "u1", RefreshTokenDigest: digest,
		UserAgent: "cli", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs(digest[:]).
		WillReturnRows(sessionRows(current))
	// No revoke, no insert: the transaction rolls back untouched.
	mock.ExpectRollback()

	_, err := s.RotateSession(context.Background(), digest, "browser", &store.Session{ID: "s-new"})
	require.ErrorIs(t, err, store.ErrAgentMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeSession(t *testing.T) {
	mock, s := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE sessions SET revoked_at").
		WithArgs("s-1", "u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.RevokeSession(ctx, "s-1", "u1"))

	mock.ExpectExec("UPDATE sessions SET revoked_at").
		WithArgs("s-1", "intruder").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, s.RevokeSession(ctx, "s-1", "intruder"), store.ErrSessionNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActive(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()

	first := &store.Session{ID: "s-1", UserID: "u1", UserAgent: "cli",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now.Add(-time.Minute)}
	second := &store.Session{ID: "s-2", UserID: "u1", UserAgent: "browser",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now}

	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs("u1").
		WillReturnRows(sessionRows(first, second))

	sessions, err := s.ListActive(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "s-1", sessions[0].ID)
	require.Equal(t, "s-2", sessions[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpired(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()

	mock.ExpectExec("UPDATE sessions SET revoked_at").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	flipped, err := s.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 3, flipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func testOtp(now time.Time) *store.Otp {
	return &store.Otp{
		ID: "o-1", UserID: "u1", Purpose: store.PurposeEmailVerify,
		CodeDigest: secret.Digest("123456"),
		ExpiresAt:  now.Add(10 * time.Minute), CreatedAt: now,
	}
}

func TestIssueOtp(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()
	otp := testOtp(now)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("u1", "email_verify").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT created_at FROM otps").
		WithArgs("u1", "email_verify").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT count\(\*\) FROM otps`).
		WithArgs("u1", "email_verify", otp.CreatedAt.Add(-24*time.Hour)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("UPDATE otps SET used_at").
		WithArgs("u1", "email_verify", otp.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO otps").
		WithArgs(otp.ID, otp.UserID, "email_verify", otp.CodeDigest[:],
			otp.ExpiresAt, otp.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.IssueOtp(context.Background(), otp,
		store.OtpIssuePolicy{ResendCooldown: time.Minute, DailyCap: 5})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueOtpCooldown(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()
	otp := testOtp(now)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("u1", "email_verify").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT created_at FROM otps").
		WithArgs("u1", "email_verify").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now.Add(-10 * time.Second)))
	mock.ExpectRollback()

	err := s.IssueOtp(context.Background(), otp,
		store.OtpIssuePolicy{ResendCooldown: time.Minute, DailyCap: 5})
	require.ErrorIs(t, err, store.ErrOtpCooldown)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueOtpDailyLimit(t *testing.T) {
	mock, s := newMockStore(t)
	now := time.Now()
	otp := testOtp(now)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("u1", "email_verify").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT created_at FROM otps").
		WithArgs("u1", "email_verify").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT count\(\*\) FROM otps`).
		WithArgs("u1", "email_verify", otp.CreatedAt.Add(-24*time.Hour)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	err := s.IssueOtp(context.Background(), otp,
		store.OtpIssuePolicy{ResendCooldown: time.Minute, DailyCap: 5})
	require.ErrorIs(t, err, store.ErrOtpDailyLimit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeOtp(t *testing.T) {
	mock, s := newMockStore(t)
	ctx := context.Background()
	digest := secret.Digest("123456")

	mock.ExpectExec("UPDATE otps SET used_at").
		WithArgs("u1", "email_verify", digest[:]).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.ConsumeOtp(ctx, "u1", store.PurposeEmailVerify, digest))

	// Used, expired, and plain wrong codes all miss the predicate.
	mock.ExpectExec("UPDATE otps SET used_at").
		WithArgs("u1", "email_verify", digest[:]).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, s.ConsumeOtp(ctx, "u1", store.PurposeEmailVerify, digest), store.ErrOtpNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureRole(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectQuery("INSERT INTO roles").
		WithArgs(pgxmock.AnyArg(), "user").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("role-1"))

	id, err := s.EnsureRole(context.Background(), "user")
	require.NoError(t, err)
	require.Equal(t, "role-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRole(t *testing.T) {
	mock, s := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("role-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs("u1", "role-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.AssignRole(ctx, "u1", "role-1"))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	require.ErrorIs(t, s.AssignRole(ctx, "u1", "ghost"), store.ErrRoleNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRolesOf(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectQuery("SELECT r.name FROM user_roles").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("admin").AddRow("user"))

	names, err := s.RolesOf(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"admin", "user"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefaultRoleID(t *testing.T) {
	mock, s := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id FROM roles").
		WithArgs("user").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("role-1"))
	id, err := s.DefaultRoleID(ctx)
	require.NoError(t, err)
	require.Equal(t, "role-1", id)

	mock.ExpectQuery("SELECT id FROM roles").
		WithArgs("user").
		WillReturnError(pgx.ErrNoRows)
	_, err = s.DefaultRoleID(ctx)
	require.ErrorIs(t, err, store.ErrRoleNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
