package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/authcore-io/authcore/secret"
	"github.com/authcore-io/authcore/store"
)

type fakeOtpStore struct {
	issued       *store.Otp
	issuedPolicy store.OtpIssuePolicy
	issueErr     error

	consumedUser    string
	consumedPurpose store.OtpPurpose
	consumedDigest  [32]byte
	consumeErr      error
}

func (f *fakeOtpStore) IssueOtp(_ context.Context, otp *store.Otp, policy store.OtpIssuePolicy) error {
	f.issued = otp
	f.issuedPolicy = policy
	return f.issueErr
}

func (f *fakeOtpStore) ConsumeOtp(_ context.Context, userID string, purpose store.OtpPurpose, digest [32]byte) error {
	f.consumedUser = userID
	f.consumedPurpose = purpose
	f.consumedDigest = digest
	return f.consumeErr
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestIssue(t *testing.T) {
	fake := &fakeOtpStore{}
	m := NewManager(fake, Policy{TTL: 5 * time.Minute, ResendCooldown: 30 * time.Second, DailyCap: 3}, fixedNow)

	code, err := m.Issue(context.Background(), "u1", store.PurposeEmailVerify)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code %q is not six digits", code)
	}

	rec := fake.issued
	if rec.UserID != "u1" || rec.Purpose != store.PurposeEmailVerify || rec.ID == "" {
		t.Fatalf("stored otp: %+v", rec)
	}
	if rec.CodeDigest != secret.Digest(code) {
		t.Fatal("stored digest does not match the issued code")
	}
	if !rec.ExpiresAt.Equal(fixedNow().Add(5 * time.Minute)) {
		t.Fatalf("ExpiresAt = %v", rec.ExpiresAt)
	}
	if fake.issuedPolicy.ResendCooldown != 30*time.Second || fake.issuedPolicy.DailyCap != 3 {
		t.Fatalf("store saw policy %+v", fake.issuedPolicy)
	}
}

func TestIssueDefaults(t *testing.T) {
	fake := &fakeOtpStore{}
	m := NewManager(fake, Policy{}, fixedNow)

	if m.TTL() != DefaultTTL {
		t.Fatalf("TTL = %v, want %v", m.TTL(), DefaultTTL)
	}
	if _, err := m.Issue(context.Background(), "u1", store.PurposePasswordReset); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if fake.issuedPolicy.ResendCooldown != DefaultResendCooldown || fake.issuedPolicy.DailyCap != DefaultDailyCap {
		t.Fatalf("store saw policy %+v", fake.issuedPolicy)
	}
}

func TestIssueInvalidPurpose(t *testing.T) {
	fake := &fakeOtpStore{}
	m := NewManager(fake, Policy{}, fixedNow)

	if _, err := m.Issue(context.Background(), "u1", store.OtpPurpose("mystery")); err == nil {
		t.Fatal("expected an error for an unknown purpose")
	}
	if fake.issued != nil {
		t.Fatal("store was reached despite the invalid purpose")
	}
}

func TestIssuePropagatesPolicyErrors(t *testing.T) {
	for _, want := range []error{store.ErrOtpCooldown, store.ErrOtpDailyLimit} {
		fake := &fakeOtpStore{issueErr: want}
		m := NewManager(fake, Policy{}, fixedNow)

		_, err := m.Issue(context.Background(), "u1", store.PurposeEmailVerify)
		if !errors.Is(err, want) {
			t.Fatalf("Issue = %v, want %v", err, want)
		}
	}
}

func TestVerify(t *testing.T) {
	fake := &fakeOtpStore{}
	m := NewManager(fake, Policy{}, fixedNow)

	if err := m.Verify(context.Background(), "u1", store.PurposeEmailChange, "654321"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if fake.consumedUser != "u1" || fake.consumedPurpose != store.PurposeEmailChange {
		t.Fatalf("store saw (%q, %q)", fake.consumedUser, fake.consumedPurpose)
	}
	if fake.consumedDigest != secret.Digest("654321") {
		t.Fatal("store saw a different digest")
	}

	fake.consumeErr = store.ErrOtpNotFound
	if err := m.Verify(context.Background(), "u1", store.PurposeEmailChange, "000000"); !errors.Is(err, store.ErrOtpNotFound) {
		t.Fatalf("Verify = %v, want ErrOtpNotFound", err)
	}
}
