package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/authcore-io/authcore/store"
)

const userColumns = `id, email, email_verified, password_hash, first_name, last_name, auth_provider, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(
		&u.ID, &u.Email, &u.EmailVerified, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.AuthProvider, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return &u, nil
}

// CreateUser inserts u; the email unique constraint enforces uniqueness.
func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, email_verified, password_hash, first_name, last_name, auth_provider, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.EmailVerified, u.PasswordHash,
		u.FirstName, u.LastName, u.AuthProvider, u.IsActive,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return wrapUnavailable(err)
	}
	return nil
}

// GetUserByEmail loads one user by exact email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetUserByID loads one user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdatePasswordHash overwrites the stored credential digest.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return s.updateUser(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, hash)
}

// UpdateEmail swaps the address and marks it verified in one statement.
func (s *Store) UpdateEmail(ctx context.Context, userID, email string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET email = $2, email_verified = TRUE, updated_at = now() WHERE id = $1`,
		userID, email)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return wrapUnavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

// SetEmailVerified flips the verification marker.
func (s *Store) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	return s.updateUser(ctx,
		`UPDATE users SET email_verified = $2, updated_at = now() WHERE id = $1`,
		userID, verified)
}

// SetActive flips the account's active marker.
func (s *Store) SetActive(ctx context.Context, userID string, active bool) error {
	return s.updateUser(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`,
		userID, active)
}

func (s *Store) updateUser(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return wrapUnavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}
	return nil
}
