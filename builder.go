package authcore

import (
	"errors"
	"time"

	"github.com/authcore-io/authcore/internal/audit"
	"github.com/authcore-io/authcore/internal/metrics"
	"github.com/authcore-io/authcore/jwt"
	"github.com/authcore-io/authcore/notify"
	"github.com/authcore-io/authcore/otp"
	"github.com/authcore-io/authcore/password"
	"github.com/authcore-io/authcore/roles"
	"github.com/authcore-io/authcore/session"
	"github.com/authcore-io/authcore/store"
)

// Builder assembles an Engine. Every With method returns the receiver for
// chaining; Build may be called once.
type Builder struct {
	config    Config
	store     store.Store
	roles     roles.Directory
	notifier  notify.Notifier
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRoles sets the role directory. Without it, Build falls back to the
// store when the store implements store.RoleStore.
func (b *Builder) WithRoles(dir roles.Directory) *Builder {
	b.roles = dir
	return b
}

func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit sink. A non-nil sink enables auditing at
// Build time, in any order relative to WithConfig.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the engine's time source. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.auditSink != nil {
		cfg.Audit.Enabled = true
	}

	if b.store == nil {
		return nil, errors.New("store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	directory := b.roles
	if directory == nil {
		rs, ok := b.store.(store.RoleStore)
		if !ok {
			return nil, errors.New("role directory required when the store does not implement store.RoleStore")
		}
		directory = rs
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	signer, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Secret:        cloneBytes(cfg.JWT.Secret),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		roles:    directory,
		notifier: b.notifier,
		hasher:   hasher,
		signer:   signer,
		sessions: session.NewManager(b.store, cfg.Session.RefreshTTL, clock),
		otps: otp.NewManager(b.store, otp.Policy{
			TTL:            cfg.Otp.TTL,
			ResendCooldown: cfg.Otp.ResendCooldown,
			DailyCap:       cfg.Otp.DailyCap,
		}, clock),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: metrics.New(cfg.Metrics.Enabled),
		clock:   clock,
	}

	b.built = true

	return engine, nil
}
