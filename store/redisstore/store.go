// Package redisstore is the Redis-backed Store. Every multi-step unit
// (rotation, OTP issuance, revocation cascades) runs as a Lua script so
// concurrent callers observe it atomically.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authcore-io/authcore/store"
)

const defaultPrefix = "ac"

// Session records are retained past expiry for a day so a sweep can still
// flip their revocation marker.
const sessionRetention = 24 * time.Hour

// Store implements store.Store and store.RoleStore on a Redis backend.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Store keyed under prefix (default "ac").
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) userKey(id string) string       { return s.prefix + ":u:" + id }
func (s *Store) emailKey(email string) string   { return s.prefix + ":ue:" + email }
func (s *Store) sessionKey(id string) string    { return s.prefix + ":s:" + id }
func (s *Store) digestKey(hex string) string    { return s.prefix + ":sd:" + hex }
func (s *Store) userSessionsKey(u string) string { return s.prefix + ":su:" + u }
func (s *Store) expiryIndexKey() string         { return s.prefix + ":sx" }
func (s *Store) otpKey(u string, p store.OtpPurpose) string {
	return s.prefix + ":o:" + u + ":" + string(p)
}
func (s *Store) otpIssuedKey(u string, p store.OtpPurpose) string {
	return s.prefix + ":oi:" + u + ":" + string(p)
}
func (s *Store) roleKey(id string) string      { return s.prefix + ":r:" + id }
func (s *Store) roleNameKey(n string) string   { return s.prefix + ":rn:" + n }
func (s *Store) userRolesKey(u string) string  { return s.prefix + ":ur:" + u }

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

// Ping reports backend reachability, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}
