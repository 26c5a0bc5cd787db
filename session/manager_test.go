package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/authcore-io/authcore/secret"
	"github.com/authcore-io/authcore/store"
)

// fakeSessionStore records the calls the manager makes and returns canned
// results, so the tests pin down digesting and field population without a
// backend.
type fakeSessionStore struct {
	created       []*store.Session
	rotateDigest  [32]byte
	rotateAgent   string
	rotateNext    *store.Session
	rotateOld     *store.Session
	rotateErr     error
	revokedDigest [32]byte
	keepDigest    [32]byte
	sweepNow      time.Time
}

func (f *fakeSessionStore) CreateSession(_ context.Context, s *store.Session) error {
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSessionStore) RotateSession(_ context.Context, digest [32]byte, agent string, next *store.Session) (*store.Session, error) {
	f.rotateDigest = digest
	f.rotateAgent = agent
	f.rotateNext = next
	if f.rotateErr != nil {
		return nil, f.rotateErr
	}
	next.UserID = f.rotateOld.UserID
	return f.rotateOld, nil
}

func (f *fakeSessionStore) RevokeByDigest(_ context.Context, digest [32]byte) error {
	f.revokedDigest = digest
	return nil
}

func (f *fakeSessionStore) RevokeSession(context.Context, string, string) error { return nil }
func (f *fakeSessionStore) RevokeAll(context.Context, string) error             { return nil }

func (f *fakeSessionStore) RevokeOthers(_ context.Context, _ string, keep [32]byte) error {
	f.keepDigest = keep
	return nil
}

func (f *fakeSessionStore) ListActive(context.Context, string) ([]store.Session, error) {
	return nil, nil
}

func (f *fakeSessionStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	f.sweepNow = now
	return 2, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestIssue(t *testing.T) {
	fake := &fakeSessionStore{}
	m := NewManager(fake, time.Hour, fixedNow)

	grant, err := m.Issue(context.Background(), "u1", "cli")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if grant.RefreshToken == "" {
		t.Fatal("no raw token returned")
	}
	if len(fake.created) != 1 {
		t.Fatalf("CreateSession called %d times", len(fake.created))
	}

	sess := fake.created[0]
	if sess.UserID != "u1" || sess.UserAgent != "cli" || sess.ID == "" {
		t.Fatalf("stored session: %+v", sess)
	}
	if sess.RefreshTokenDigest != secret.Digest(grant.RefreshToken) {
		t.Fatal("stored digest does not match the issued token")
	}
	if !sess.ExpiresAt.Equal(fixedNow().Add(time.Hour)) {
		t.Fatalf("ExpiresAt = %v", sess.ExpiresAt)
	}
}

func TestIssueDefaultTTL(t *testing.T) {
	fake := &fakeSessionStore{}
	m := NewManager(fake, 0, fixedNow)

	if _, err := m.Issue(context.Background(), "u1", "cli"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if got := fake.created[0].ExpiresAt; !got.Equal(fixedNow().Add(DefaultTTL)) {
		t.Fatalf("ExpiresAt = %v, want default TTL from now", got)
	}
}

func TestRotate(t *testing.T) {
	fake := &fakeSessionStore{
		rotateOld: &store.Session{ID: "s-old", UserID: "u1"},
	}
	m := NewManager(fake, time.Hour, fixedNow)

	grant, old, err := m.Rotate(context.Background(), "presented-token", "cli")
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if fake.rotateDigest != secret.Digest("presented-token") {
		t.Fatal("store saw a different digest than the presented token's")
	}
	if fake.rotateAgent != "cli" {
		t.Fatalf("store saw agent %q", fake.rotateAgent)
	}
	if old.ID != "s-old" {
		t.Fatalf("old session = %+v", old)
	}
	if grant.Session.UserID != "u1" {
		t.Fatalf("next session user = %q, want backfilled u1", grant.Session.UserID)
	}
	if grant.Session.RefreshTokenDigest != secret.Digest(grant.RefreshToken) {
		t.Fatal("next digest does not match the new raw token")
	}
	if grant.RefreshToken == "presented-token" {
		t.Fatal("rotation returned the presented token")
	}
}

func TestRotatePropagatesStoreErrors(t *testing.T) {
	for _, want := range []error{store.ErrSessionNotFound, store.ErrSessionRevoked, store.ErrAgentMismatch} {
		fake := &fakeSessionStore{rotateErr: want}
		m := NewManager(fake, time.Hour, fixedNow)

		_, _, err := m.Rotate(context.Background(), "token", "cli")
		if !errors.Is(err, want) {
			t.Fatalf("Rotate = %v, want %v", err, want)
		}
	}
}

func TestRevokeByToken(t *testing.T) {
	fake := &fakeSessionStore{}
	m := NewManager(fake, time.Hour, fixedNow)

	if err := m.RevokeByToken(context.Background(), "token"); err != nil {
		t.Fatalf("RevokeByToken failed: %v", err)
	}
	if fake.revokedDigest != secret.Digest("token") {
		t.Fatal("store saw a different digest")
	}
}

func TestRevokeOthersKeepsPresentedToken(t *testing.T) {
	fake := &fakeSessionStore{}
	m := NewManager(fake, time.Hour, fixedNow)

	if err := m.RevokeOthers(context.Background(), "u1", "keep-me"); err != nil {
		t.Fatalf("RevokeOthers failed: %v", err)
	}
	if fake.keepDigest != secret.Digest("keep-me") {
		t.Fatal("kept digest does not match the presented token")
	}
}

func TestSweepExpired(t *testing.T) {
	fake := &fakeSessionStore{}
	m := NewManager(fake, time.Hour, fixedNow)

	n, err := m.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("SweepExpired = %d, want 2", n)
	}
	if !fake.sweepNow.Equal(fixedNow()) {
		t.Fatalf("sweep now = %v", fake.sweepNow)
	}
}
