package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"
)

func hs256Manager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     ttl,
		SigningMethod: MethodHS256,
		Secret:        []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestSignAndParseHS256(t *testing.T) {
	m := hs256Manager(t, 15*time.Minute)

	token, err := m.Sign(Claims{
		UserID:        "u1",
		Email:         "a@x.com",
		Roles:         []string{"user"},
		EmailVerified: true,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@x.com" {
		t.Fatalf("claims round trip mismatch: %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "user" {
		t.Fatalf("roles mismatch: %v", claims.Roles)
	}
	if !claims.EmailVerified || !claims.IsActive {
		t.Fatal("status flags lost in transit")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := hs256Manager(t, time.Nanosecond)

	token, err := m.Sign(Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expired token parsed successfully")
	}
}

func TestParseRejectsTampered(t *testing.T) {
	m := hs256Manager(t, 15*time.Minute)

	token, err := m.Sign(Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	parts := strings.Split(token, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := m.Parse(strings.Join(parts, ".")); err == nil {
		t.Fatal("tampered token parsed successfully")
	}
}

func TestParseRejectsForeignKey(t *testing.T) {
	m := hs256Manager(t, 15*time.Minute)

	other, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		SigningMethod: MethodHS256,
		Secret:        []byte("another-secret-another-secret-32"),
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := other.Sign(Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("token signed under a different key parsed successfully")
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		Secret:        priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Sign(Claims{UserID: "u2", Email: "b@x.com"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "u2" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{AccessTTL: 0, SigningMethod: MethodHS256, Secret: []byte("s")},
		{AccessTTL: time.Minute, SigningMethod: MethodHS256},
		{AccessTTL: time.Minute, SigningMethod: "rs256", Secret: []byte("s")},
		{AccessTTL: time.Minute, SigningMethod: MethodEd25519, Secret: []byte("too short")},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Errorf("case %d: expected configuration error", i)
		}
	}
}
