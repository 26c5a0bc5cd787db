package authcore

import (
	"errors"
	"time"
)

// Config is the full engine configuration. Zero values fall back to
// DefaultConfig through the Builder; a Config is validated once at Build
// and treated as immutable afterwards.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Otp      OtpConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the access-token signer.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	// Secret is the HMAC key for hs256, or the private key (raw or PEM)
	// for ed25519.
	Secret []byte
	// PublicKey carries the ed25519 verification key when the private
	// half lives elsewhere.
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures refresh-token grants.
type SessionConfig struct {
	RefreshTTL time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OtpConfig configures one-time codes. Limits apply per (user, purpose).
type OtpConfig struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	DailyCap       int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries the argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: 15 minute access
// tokens, 7 day refresh tokens, 10 minute codes with a 60 second resend
// cooldown and a cap of 5 per rolling 24 hours.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "hs256",
		},
		Session: SessionConfig{
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Otp: OtpConfig{
			TTL:            10 * time.Minute,
			ResendCooldown: 60 * time.Second,
			DailyCap:       5,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// PresetHardened tightens the defaults: shorter token lifetimes, costlier
// hashing, and a lower code cap. Auditing and metrics stay opt-in.
func PresetHardened() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.Session.RefreshTTL = 24 * time.Hour
	cfg.Otp.TTL = 5 * time.Minute
	cfg.Otp.DailyCap = 3
	cfg.Password.Memory = 131072
	cfg.Password.Time = 4
	return cfg
}

// Validate checks the configuration before the engine is built.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "hs256" && c.JWT.SigningMethod != "ed25519" {
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	if c.Session.RefreshTTL <= 0 {
		return errors.New("Session RefreshTTL must be > 0")
	}

	if c.Otp.TTL <= 0 {
		return errors.New("Otp TTL must be > 0")
	}
	if c.Otp.ResendCooldown <= 0 {
		return errors.New("Otp ResendCooldown must be > 0")
	}
	if c.Otp.ResendCooldown >= c.Otp.TTL {
		return errors.New("Otp ResendCooldown must be shorter than Otp TTL")
	}
	if c.Otp.DailyCap <= 0 {
		return errors.New("Otp DailyCap must be > 0")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when auditing is enabled")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
