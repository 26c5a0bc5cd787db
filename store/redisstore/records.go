package redisstore

import (
	"encoding/json"
	"time"

	"github.com/authcore-io/authcore/secret"
	"github.com/authcore-io/authcore/store"
)

// Records are stored as JSON so the Lua units can decode them with cjson.
// Timestamps are unix milliseconds; zero means "null".

type userRecord struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	PasswordHash  string `json:"password_hash"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	AuthProvider  string `json:"auth_provider"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

type sessionRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Digest    string `json:"digest"`
	UserAgent string `json:"ua"`
	ExpiresAt int64  `json:"expires_at"`
	RevokedAt int64  `json:"revoked_at"`
	CreatedAt int64  `json:"created_at"`
}

type otpRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Purpose   string `json:"purpose"`
	Digest    string `json:"digest"`
	ExpiresAt int64  `json:"expires_at"`
	UsedAt    int64  `json:"used_at"`
	CreatedAt int64  `json:"created_at"`
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func optMillis(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromOptMillis(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := fromMillis(ms)
	return &t
}

func encodeUser(u *store.User) ([]byte, error) {
	return json.Marshal(userRecord{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		PasswordHash:  u.PasswordHash,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		AuthProvider:  u.AuthProvider,
		IsActive:      u.IsActive,
		CreatedAt:     millis(u.CreatedAt),
		UpdatedAt:     millis(u.UpdatedAt),
	})
}

func decodeUser(data []byte) (*store.User, error) {
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &store.User{
		ID:            rec.ID,
		Email:         rec.Email,
		EmailVerified: rec.EmailVerified,
		PasswordHash:  rec.PasswordHash,
		FirstName:     rec.FirstName,
		LastName:      rec.LastName,
		AuthProvider:  rec.AuthProvider,
		IsActive:      rec.IsActive,
		CreatedAt:     fromMillis(rec.CreatedAt),
		UpdatedAt:     fromMillis(rec.UpdatedAt),
	}, nil
}

func encodeSession(s *store.Session) ([]byte, error) {
	return json.Marshal(sessionRecord{
		ID:        s.ID,
		UserID:    s.UserID,
		Digest:    secret.EncodeDigest(s.RefreshTokenDigest),
		UserAgent: s.UserAgent,
		ExpiresAt: millis(s.ExpiresAt),
		RevokedAt: optMillis(s.RevokedAt),
		CreatedAt: millis(s.CreatedAt),
	})
}

func decodeSession(data []byte) (*store.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	digest, _ := secret.DecodeDigest(rec.Digest)
	return &store.Session{
		ID:                 rec.ID,
		UserID:             rec.UserID,
		RefreshTokenDigest: digest,
		UserAgent:          rec.UserAgent,
		ExpiresAt:          fromMillis(rec.ExpiresAt),
		RevokedAt:          fromOptMillis(rec.RevokedAt),
		CreatedAt:          fromMillis(rec.CreatedAt),
	}, nil
}

func encodeOtp(o *store.Otp) ([]byte, error) {
	return json.Marshal(otpRecord{
		ID:        o.ID,
		UserID:    o.UserID,
		Purpose:   string(o.Purpose),
		Digest:    secret.EncodeDigest(o.CodeDigest),
		ExpiresAt: millis(o.ExpiresAt),
		UsedAt:    optMillis(o.UsedAt),
		CreatedAt: millis(o.CreatedAt),
	})
}
