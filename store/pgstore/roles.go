package pgstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/authcore-io/authcore/store"
)

// DefaultRoleName is the role every fresh registration receives.
const DefaultRoleName = "user"

// EnsureRole registers a role name if absent and returns its id. Used to
// seed the directory at deployment time.
func (s *Store) EnsureRole(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`INSERT INTO roles (id, name) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		uuid.NewString(), name).Scan(&id)
	if err != nil {
		return "", wrapUnavailable(err)
	}
	return id, nil
}

// AssignRole links the user to the role. Re-assigning is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists)
	if err != nil {
		return wrapUnavailable(err)
	}
	if !exists {
		return store.ErrRoleNotFound
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, roleID); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RolesOf returns the user's role names sorted ascending.
func (s *Store) RolesOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.name FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = $1
		 ORDER BY r.name ASC`,
		userID)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapUnavailable(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	return names, nil
}

// DefaultRoleID resolves the seeded default role.
func (s *Store) DefaultRoleID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM roles WHERE name = $1`, DefaultRoleName).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrRoleNotFound
		}
		return "", wrapUnavailable(err)
	}
	return id, nil
}
