package redisstore

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/authcore-io/authcore/store"
)

// DefaultRoleName is the role every fresh registration receives.
const DefaultRoleName = "user"

// EnsureRole registers a role name if absent and returns its id. Used to
// seed the directory at deployment time.
func (s *Store) EnsureRole(ctx context.Context, name string) (string, error) {
	id, err := s.redis.Get(ctx, s.roleNameKey(name)).Result()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", wrapUnavailable(err)
	}

	id = uuid.NewString()
	ok, err := s.redis.SetNX(ctx, s.roleNameKey(name), id, 0).Result()
	if err != nil {
		return "", wrapUnavailable(err)
	}
	if !ok {
		// Lost the seeding race; use the winner's id.
		id, err = s.redis.Get(ctx, s.roleNameKey(name)).Result()
		if err != nil {
			return "", wrapUnavailable(err)
		}
		return id, nil
	}

	if err := s.redis.Set(ctx, s.roleKey(id), name, 0).Err(); err != nil {
		return "", wrapUnavailable(err)
	}
	return id, nil
}

// AssignRole links the user to the role.
func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	name, err := s.redis.Get(ctx, s.roleKey(roleID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.ErrRoleNotFound
		}
		return wrapUnavailable(err)
	}

	if err := s.redis.SAdd(ctx, s.userRolesKey(userID), name).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RolesOf returns the user's role names sorted ascending.
func (s *Store) RolesOf(ctx context.Context, userID string) ([]string, error) {
	names, err := s.redis.SMembers(ctx, s.userRolesKey(userID)).Result()
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	sort.Strings(names)
	return names, nil
}

// DefaultRoleID resolves the seeded default role.
func (s *Store) DefaultRoleID(ctx context.Context) (string, error) {
	id, err := s.redis.Get(ctx, s.roleNameKey(DefaultRoleName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", store.ErrRoleNotFound
		}
		return "", wrapUnavailable(err)
	}
	return id, nil
}
