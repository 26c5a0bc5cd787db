package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authcore-io/authcore/secret"
	"github.com/authcore-io/authcore/store"
)

// At most one OTP per (user, purpose) is live at a time, so the active
// record sits under a single key and reissue supersedes it in place. The
// rolling daily window is a ZSET of issuance timestamps.

// issueOtpLua enforces the cooldown and daily cap, supersedes the prior
// unused code, and installs the new record as one unit.
// KEYS[1] = active otp key, KEYS[2] = issuance window key
// ARGV[1] = now millis, ARGV[2] = cooldown millis, ARGV[3] = window
// millis, ARGV[4] = daily cap, ARGV[5] = new record, ARGV[6] = record TTL
// millis, ARGV[7] = issuance member (otp id)
var issueOtpLua = redis.NewScript(`
local now = tonumber(ARGV[1])
local data = redis.call('GET', KEYS[1])
if data then
  local rec = cjson.decode(data)
  if rec.used_at == 0 and rec.expires_at > now and (now - rec.created_at) < tonumber(ARGV[2]) then
    return {err='cooldown'}
  end
end

redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', now - tonumber(ARGV[3]))
if redis.call('ZCARD', KEYS[2]) >= tonumber(ARGV[4]) then
  return {err='daily_limit'}
end

redis.call('SET', KEYS[1], ARGV[5], 'PX', tonumber(ARGV[6]))
redis.call('ZADD', KEYS[2], now, ARGV[7])
redis.call('PEXPIRE', KEYS[2], tonumber(ARGV[3]))
return 1
`)

// consumeOtpLua marks the active code used when, and only when, it is
// unused, unexpired, and matches the digest. All misses collapse into one
// outcome.
// KEYS[1] = active otp key
// ARGV[1] = digest hex, ARGV[2] = now millis
var consumeOtpLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end
local rec = cjson.decode(data)
local now = tonumber(ARGV[2])
if rec.used_at ~= 0 or rec.expires_at <= now or rec.digest ~= ARGV[1] then
  return {err='not_found'}
end
rec.used_at = now
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  redis.call('SET', KEYS[1], cjson.encode(rec), 'PX', ttl)
else
  redis.call('SET', KEYS[1], cjson.encode(rec))
end
return 1
`)

const otpIssuanceWindow = 24 * time.Hour

// Otp records linger past expiry for an hour so a stale code keeps failing
// verification instead of vanishing mid-flow.
const otpRetention = time.Hour

// IssueOtp applies the policy and installs otp as the active code for its
// (user, purpose) pair.
func (s *Store) IssueOtp(ctx context.Context, otp *store.Otp, policy store.OtpIssuePolicy) error {
	encoded, err := encodeOtp(otp)
	if err != nil {
		return err
	}

	recordTTL := time.Until(otp.ExpiresAt.Add(otpRetention)).Milliseconds()
	err = issueOtpLua.Run(ctx, s.redis,
		[]string{s.otpKey(otp.UserID, otp.Purpose), s.otpIssuedKey(otp.UserID, otp.Purpose)},
		time.Now().UnixMilli(),
		policy.ResendCooldown.Milliseconds(),
		otpIssuanceWindow.Milliseconds(),
		policy.DailyCap,
		string(encoded),
		recordTTL,
		otp.ID,
	).Err()
	if err != nil {
		switch err.Error() {
		case "cooldown":
			return store.ErrOtpCooldown
		case "daily_limit":
			return store.ErrOtpDailyLimit
		}
		return wrapUnavailable(err)
	}
	return nil
}

// ConsumeOtp marks the matching code used, exactly once.
func (s *Store) ConsumeOtp(ctx context.Context, userID string, purpose store.OtpPurpose, digest [32]byte) error {
	err := consumeOtpLua.Run(ctx, s.redis,
		[]string{s.otpKey(userID, purpose)},
		secret.EncodeDigest(digest),
		time.Now().UnixMilli(),
	).Err()
	if err != nil {
		if err.Error() == "not_found" {
			return store.ErrOtpNotFound
		}
		return wrapUnavailable(err)
	}
	return nil
}
