package redisstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authcore-io/authcore/secret"
	"github.com/authcore-io/authcore/store"
)

// rotateSessionLua performs lookup-by-digest, agent check, revoke, and
// replacement insert as one unit, so exactly one of two racing rotations
// can win. The digest index is kept as a tombstone for the record's
// retention window, so a replayed token resolves to the revoked record
// and is distinguishable from one that was never issued.
// KEYS[1] = provided digest index key
// ARGV[1] = session key prefix, ARGV[2] = presented user agent,
// ARGV[3] = now millis, ARGV[4] = new session id, ARGV[5] = new record,
// ARGV[6] = digest index prefix, ARGV[7] = new digest hex,
// ARGV[8] = new expiry millis, ARGV[9] = user sessions key prefix,
// ARGV[10] = expiry index key, ARGV[11] = retention millis
var rotateSessionLua = redis.NewScript(`
local sid = redis.call('GET', KEYS[1])
if not sid then
  return {err='not_found'}
end

local data = redis.call('GET', ARGV[1] .. sid)
if not data then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local now = tonumber(ARGV[3])
local rec = cjson.decode(data)
if rec.revoked_at ~= 0 then
  return {err='revoked'}
end
if rec.expires_at <= now then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

if rec.ua ~= ARGV[2] then
  return {err='agent_mismatch'}
end

rec.revoked_at = now
local ttl = redis.call('PTTL', ARGV[1] .. sid)
if ttl > 0 then
  redis.call('SET', ARGV[1] .. sid, cjson.encode(rec), 'PX', ttl)
  redis.call('PEXPIRE', KEYS[1], ttl)
else
  redis.call('SET', ARGV[1] .. sid, cjson.encode(rec))
  redis.call('PERSIST', KEYS[1])
end
redis.call('ZREM', ARGV[10], sid)

local nextrec = cjson.decode(ARGV[5])
nextrec.user_id = rec.user_id
redis.call('SET', ARGV[1] .. ARGV[4], cjson.encode(nextrec), 'PX', tonumber(ARGV[11]))
redis.call('SET', ARGV[6] .. ARGV[7], ARGV[4], 'PXAT', tonumber(ARGV[8]))
redis.call('SADD', ARGV[9] .. rec.user_id, ARGV[4])
redis.call('ZADD', ARGV[10], tonumber(ARGV[8]), ARGV[4])

return data
`)

// revokeSessionLua revokes one session after an ownership check.
// KEYS[1] = session key
// ARGV[1] = owner user id, ARGV[2] = now millis, ARGV[3] = digest index
// prefix, ARGV[4] = expiry index key, ARGV[5] = session id
var revokeSessionLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end
local rec = cjson.decode(data)
local now = tonumber(ARGV[2])
if rec.user_id ~= ARGV[1] or rec.revoked_at ~= 0 or rec.expires_at <= now then
  return {err='not_found'}
end
rec.revoked_at = now
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  redis.call('SET', KEYS[1], cjson.encode(rec), 'PX', ttl)
else
  redis.call('SET', KEYS[1], cjson.encode(rec))
end
redis.call('DEL', ARGV[3] .. rec.digest)
redis.call('ZREM', ARGV[4], ARGV[5])
return 1
`)

// revokeUserSessionsLua walks the user's session set and revokes every
// active session, optionally sparing one digest. Idempotent.
// KEYS[1] = user sessions key
// ARGV[1] = session key prefix, ARGV[2] = now millis, ARGV[3] = digest
// index prefix, ARGV[4] = expiry index key, ARGV[5] = digest hex to keep
// ('' = none)
var revokeUserSessionsLua = redis.NewScript(`
local sids = redis.call('SMEMBERS', KEYS[1])
local now = tonumber(ARGV[2])
local revoked = 0
for _, sid in ipairs(sids) do
  local data = redis.call('GET', ARGV[1] .. sid)
  if not data then
    redis.call('SREM', KEYS[1], sid)
  else
    local rec = cjson.decode(data)
    if rec.revoked_at == 0 and rec.expires_at > now and rec.digest ~= ARGV[5] then
      rec.revoked_at = now
      local ttl = redis.call('PTTL', ARGV[1] .. sid)
      if ttl > 0 then
        redis.call('SET', ARGV[1] .. sid, cjson.encode(rec), 'PX', ttl)
      else
        redis.call('SET', ARGV[1] .. sid, cjson.encode(rec))
      end
      redis.call('DEL', ARGV[3] .. rec.digest)
      redis.call('ZREM', ARGV[4], sid)
      revoked = revoked + 1
    end
  end
end
return revoked
`)

// revokeByDigestLua is the logout path: revoke whatever active session the
// digest resolves to, silently doing nothing otherwise.
// KEYS[1] = digest index key
// ARGV[1] = session key prefix, ARGV[2] = now millis, ARGV[3] = expiry
// index key
var revokeByDigestLua = redis.NewScript(`
local sid = redis.call('GET', KEYS[1])
if not sid then
  return 0
end
local data = redis.call('GET', ARGV[1] .. sid)
if data then
  local rec = cjson.decode(data)
  if rec.revoked_at == 0 then
    rec.revoked_at = tonumber(ARGV[2])
    local ttl = redis.call('PTTL', ARGV[1] .. sid)
    if ttl > 0 then
      redis.call('SET', ARGV[1] .. sid, cjson.encode(rec), 'PX', ttl)
    else
      redis.call('SET', ARGV[1] .. sid, cjson.encode(rec))
    end
    redis.call('ZREM', ARGV[3], sid)
  end
end
redis.call('DEL', KEYS[1])
return 1
`)

// sweepExpiredLua flips revoked_at on sessions the expiry index reports as
// past due. Only additive, so concurrent sweeps cannot conflict.
// KEYS[1] = expiry index key
// ARGV[1] = session key prefix, ARGV[2] = now millis, ARGV[3] = digest
// index prefix
var sweepExpiredLua = redis.NewScript(`
local sids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local flipped = 0
for _, sid in ipairs(sids) do
  local data = redis.call('GET', ARGV[1] .. sid)
  if data then
    local rec = cjson.decode(data)
    if rec.revoked_at == 0 then
      rec.revoked_at = tonumber(ARGV[2])
      local ttl = redis.call('PTTL', ARGV[1] .. sid)
      if ttl > 0 then
        redis.call('SET', ARGV[1] .. sid, cjson.encode(rec), 'PX', ttl)
      else
        redis.call('SET', ARGV[1] .. sid, cjson.encode(rec))
      end
      redis.call('DEL', ARGV[3] .. rec.digest)
      flipped = flipped + 1
    end
  end
  redis.call('ZREM', KEYS[1], sid)
end
return flipped
`)

// CreateSession writes the record plus its digest, ownership, and expiry
// indexes.
func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	encoded, err := encodeSession(sess)
	if err != nil {
		return err
	}

	digestHex := secret.EncodeDigest(sess.RefreshTokenDigest)
	retainUntil := sess.ExpiresAt.Add(sessionRetention)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sess.ID), encoded, time.Until(retainUntil))
		pipe.Set(ctx, s.digestKey(digestHex), sess.ID, time.Until(sess.ExpiresAt))
		pipe.SAdd(ctx, s.userSessionsKey(sess.UserID), sess.ID)
		pipe.ZAdd(ctx, s.expiryIndexKey(), redis.Z{Score: float64(sess.ExpiresAt.UnixMilli()), Member: sess.ID})
		return nil
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RotateSession atomically revokes the session behind providedDigest and
// installs next. Returns the revoked session. Replaying a rotated-out
// digest fails with store.ErrSessionRevoked for as long as the old
// record is retained.
func (s *Store) RotateSession(ctx context.Context, providedDigest [32]byte, userAgent string, next *store.Session) (*store.Session, error) {
	encoded, err := encodeSession(next)
	if err != nil {
		return nil, err
	}

	retention := next.ExpiresAt.Add(sessionRetention).UnixMilli() - time.Now().UnixMilli()
	result, err := rotateSessionLua.Run(ctx, s.redis,
		[]string{s.digestKey(secret.EncodeDigest(providedDigest))},
		s.prefix+":s:",
		userAgent,
		time.Now().UnixMilli(),
		next.ID,
		string(encoded),
		s.prefix+":sd:",
		secret.EncodeDigest(next.RefreshTokenDigest),
		next.ExpiresAt.UnixMilli(),
		s.prefix+":su:",
		s.expiryIndexKey(),
		retention,
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, store.ErrSessionNotFound
		case "revoked":
			return nil, store.ErrSessionRevoked
		case "agent_mismatch":
			return nil, store.ErrAgentMismatch
		}
		return nil, wrapUnavailable(err)
	}

	data, ok := result.(string)
	if !ok {
		return nil, wrapUnavailable(errors.New("unexpected rotate result type"))
	}
	old, err := decodeSession([]byte(data))
	if err != nil {
		return nil, err
	}
	next.UserID = old.UserID
	return old, nil
}

// RevokeByDigest revokes the active session matching digest; no-op when
// absent or already revoked.
func (s *Store) RevokeByDigest(ctx context.Context, digest [32]byte) error {
	err := revokeByDigestLua.Run(ctx, s.redis,
		[]string{s.digestKey(secret.EncodeDigest(digest))},
		s.prefix+":s:",
		time.Now().UnixMilli(),
		s.expiryIndexKey(),
	).Err()
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// RevokeSession revokes one active session owned by ownerUserID.
func (s *Store) RevokeSession(ctx context.Context, sessionID, ownerUserID string) error {
	err := revokeSessionLua.Run(ctx, s.redis,
		[]string{s.sessionKey(sessionID)},
		ownerUserID,
		time.Now().UnixMilli(),
		s.prefix+":sd:",
		s.expiryIndexKey(),
		sessionID,
	).Err()
	if err != nil {
		if err.Error() == "not_found" {
			return store.ErrSessionNotFound
		}
		return wrapUnavailable(err)
	}
	return nil
}

// RevokeAll revokes every active session of the user.
func (s *Store) RevokeAll(ctx context.Context, userID string) error {
	return s.revokeUserSessions(ctx, userID, "")
}

// RevokeOthers revokes every active session of the user except the one
// matching keepDigest.
func (s *Store) RevokeOthers(ctx context.Context, userID string, keepDigest [32]byte) error {
	return s.revokeUserSessions(ctx, userID, secret.EncodeDigest(keepDigest))
}

func (s *Store) revokeUserSessions(ctx context.Context, userID, keepDigestHex string) error {
	err := revokeUserSessionsLua.Run(ctx, s.redis,
		[]string{s.userSessionsKey(userID)},
		s.prefix+":s:",
		time.Now().UnixMilli(),
		s.prefix+":sd:",
		s.expiryIndexKey(),
		keepDigestHex,
	).Err()
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ListActive returns the user's active sessions, oldest first.
func (s *Store) ListActive(ctx context.Context, userID string) ([]store.Session, error) {
	ids, err := s.redis.SMembers(ctx, s.userSessionsKey(userID)).Result()
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	now := time.Now()
	sessions := make([]store.Session, 0, len(ids))
	for _, id := range ids {
		data, err := s.redis.Get(ctx, s.sessionKey(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Lapsed record; drop the stale set member.
				s.redis.SRem(ctx, s.userSessionsKey(userID), id)
				continue
			}
			return nil, wrapUnavailable(err)
		}
		sess, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		if sess.Active(now) {
			sessions = append(sessions, *sess)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// SweepExpired revokes all past-due sessions still marked active.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	flipped, err := sweepExpiredLua.Run(ctx, s.redis,
		[]string{s.expiryIndexKey()},
		s.prefix+":s:",
		now.UnixMilli(),
		s.prefix+":sd:",
	).Int()
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return flipped, nil
}
