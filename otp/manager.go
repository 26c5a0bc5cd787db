// Package otp manages one-time codes on top of a store.OtpStore. The
// manager generates codes and digests; rate limiting and single-use
// enforcement happen inside the store's atomic operations.
package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authcore-io/authcore/secret"
	"github.com/authcore-io/authcore/store"
)

// Defaults applied when the corresponding Policy field is zero.
const (
	DefaultTTL            = 10 * time.Minute
	DefaultResendCooldown = 60 * time.Second
	DefaultDailyCap       = 5
)

// Policy bundles the issuance parameters for one manager.
type Policy struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	DailyCap       int
}

func (p Policy) withDefaults() Policy {
	if p.TTL <= 0 {
		p.TTL = DefaultTTL
	}
	if p.ResendCooldown <= 0 {
		p.ResendCooldown = DefaultResendCooldown
	}
	if p.DailyCap <= 0 {
		p.DailyCap = DefaultDailyCap
	}
	return p
}

// Manager issues and verifies codes.
type Manager struct {
	store  store.OtpStore
	policy Policy
	now    func() time.Time
}

func NewManager(s store.OtpStore, policy Policy, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: s, policy: policy.withDefaults(), now: now}
}

// TTL reports the configured code lifetime, for embedding in messages.
func (m *Manager) TTL() time.Duration {
	return m.policy.TTL
}

// Issue generates a six-digit code for (userID, purpose) and stores its
// digest. Cooldown and daily-cap violations surface as
// store.ErrOtpCooldown and store.ErrOtpDailyLimit. A successful issue
// supersedes any earlier unused code for the pair.
func (m *Manager) Issue(ctx context.Context, userID string, purpose store.OtpPurpose) (string, error) {
	if !purpose.Valid() {
		return "", fmt.Errorf("unknown otp purpose %q", purpose)
	}

	code, err := secret.NewOTPCode()
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}

	now := m.now().UTC()
	record := &store.Otp{
		ID:         uuid.NewString(),
		UserID:     userID,
		Purpose:    purpose,
		CodeDigest: secret.Digest(code),
		ExpiresAt:  now.Add(m.policy.TTL),
		CreatedAt:  now,
	}
	policy := store.OtpIssuePolicy{
		ResendCooldown: m.policy.ResendCooldown,
		DailyCap:       m.policy.DailyCap,
	}
	if err := m.store.IssueOtp(ctx, record, policy); err != nil {
		return "", err
	}
	return code, nil
}

// Verify consumes the code for (userID, purpose). Wrong, expired, and
// already-used codes are indistinguishable: all return
// store.ErrOtpNotFound.
func (m *Manager) Verify(ctx context.Context, userID string, purpose store.OtpPurpose, code string) error {
	return m.store.ConsumeOtp(ctx, userID, purpose, secret.Digest(code))
}
