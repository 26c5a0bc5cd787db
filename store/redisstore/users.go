package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authcore-io/authcore/store"
)

// createUserLua claims the email index and writes the record in one unit.
// KEYS[1] = email index key, KEYS[2] = user record key
// ARGV[1] = user id, ARGV[2] = encoded record
var createUserLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {err='duplicate_email'}
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

// patchUserLua merges a JSON patch into the stored record.
// KEYS[1] = user record key
// ARGV[1] = JSON object of fields to overwrite
var patchUserLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='user_not_found'}
end
local rec = cjson.decode(data)
local patch = cjson.decode(ARGV[1])
for k, v in pairs(patch) do
  rec[k] = v
end
redis.call('SET', KEYS[1], cjson.encode(rec))
return 1
`)

// changeEmailLua re-points the email index and rewrites the record.
// KEYS[1] = user record key, KEYS[2] = new email index key
// ARGV[1] = user id, ARGV[2] = new email, ARGV[3] = email index prefix,
// ARGV[4] = updated_at millis
var changeEmailLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='user_not_found'}
end
local owner = redis.call('GET', KEYS[2])
if owner and owner ~= ARGV[1] then
  return {err='duplicate_email'}
end
local rec = cjson.decode(data)
redis.call('DEL', ARGV[3] .. rec.email)
rec.email = ARGV[2]
rec.email_verified = true
rec.updated_at = tonumber(ARGV[4])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[1], cjson.encode(rec))
return 1
`)

// CreateUser inserts u, claiming the email atomically.
func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	encoded, err := encodeUser(u)
	if err != nil {
		return err
	}

	err = createUserLua.Run(ctx, s.redis,
		[]string{s.emailKey(u.Email), s.userKey(u.ID)},
		u.ID, string(encoded),
	).Err()
	if err != nil {
		if err.Error() == "duplicate_email" {
			return store.ErrDuplicateEmail
		}
		return wrapUnavailable(err)
	}
	return nil
}

// GetUserByEmail resolves the email index and loads the record.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrUserNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID loads one user record.
func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	data, err := s.redis.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrUserNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return decodeUser(data)
}

// UpdatePasswordHash overwrites the stored credential digest.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return s.patchUser(ctx, userID, map[string]any{
		"password_hash": hash,
		"updated_at":    time.Now().UnixMilli(),
	})
}

// UpdateEmail swaps the address and marks it verified in one unit.
func (s *Store) UpdateEmail(ctx context.Context, userID, email string) error {
	err := changeEmailLua.Run(ctx, s.redis,
		[]string{s.userKey(userID), s.emailKey(email)},
		userID, email, s.prefix+":ue:", time.Now().UnixMilli(),
	).Err()
	if err != nil {
		switch err.Error() {
		case "user_not_found":
			return store.ErrUserNotFound
		case "duplicate_email":
			return store.ErrDuplicateEmail
		}
		return wrapUnavailable(err)
	}
	return nil
}

// SetEmailVerified flips the verification marker.
func (s *Store) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	return s.patchUser(ctx, userID, map[string]any{
		"email_verified": verified,
		"updated_at":     time.Now().UnixMilli(),
	})
}

// SetActive flips the account's active marker.
func (s *Store) SetActive(ctx context.Context, userID string, active bool) error {
	return s.patchUser(ctx, userID, map[string]any{
		"is_active":  active,
		"updated_at": time.Now().UnixMilli(),
	})
}

func (s *Store) patchUser(ctx context.Context, userID string, patch map[string]any) error {
	encoded, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	err = patchUserLua.Run(ctx, s.redis, []string{s.userKey(userID)}, string(encoded)).Err()
	if err != nil {
		if err.Error() == "user_not_found" {
			return store.ErrUserNotFound
		}
		return wrapUnavailable(err)
	}
	return nil
}
