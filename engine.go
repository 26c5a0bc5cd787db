package authcore

import (
	"context"
	"errors"
	"fmt"
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

// Engine orchestrates the credential and session flows over an injected
// store, notifier, and role directory. Construct it with New().Build();
// a built Engine is immutable and safe for concurrent use.
type Engine struct {
	config   Config
	store    store.Store
	roles    roles.Directory
	notifier notify.Notifier
	hasher   *password.Hasher
	signer   *jwt.Manager
	sessions *session.Manager
	otps     *otp.Manager
	audit    *audit.Dispatcher
	metrics  *metrics.Metrics
	clock    func() time.Time
}

// Close drains and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports audit events shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	if e == nil {
		return metrics.Snapshot{Counters: map[metrics.ID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// ValidateAccessToken verifies the token statelessly and returns its
// claims. Session revocation does not affect outstanding access tokens.
func (e *Engine) ValidateAccessToken(token string) (*jwt.Claims, error) {
	claims, err := e.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

func (e *Engine) emit(ctx context.Context, event audit.Event) {
	event.Time = e.clock().UTC()
	e.audit.Emit(ctx, event)
}

func (e *Engine) accessTokenFor(ctx context.Context, user *store.User) (string, []string, error) {
	roleNames, err := e.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	token, err := e.signer.Sign(jwt.Claims{
		UserID:        user.ID,
		Email:         user.Email,
		Roles:         roleNames,
		EmailVerified: user.EmailVerified,
		IsActive:      user.IsActive,
	})
	if err != nil {
		return "", nil, err
	}
	return token, roleNames, nil
}

func summaryOf(u *store.User, roleNames []string) UserSummary {
	return UserSummary{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
		Roles:         roleNames,
		CreatedAt:     u.CreatedAt,
	}
}

// issueAndNotify issues a code for (user, purpose) and delivers it to the
// given address. The store commit precedes delivery, so a notifier
// failure leaves the code valid.
func (e *Engine) issueAndNotify(ctx context.Context, user *store.User, purpose store.OtpPurpose, to string) error {
	code, err := e.otps.Issue(ctx, user.ID, purpose)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOtpCooldown):
			e.metrics.Inc(metrics.OtpRateLimited)
			e.emit(ctx, audit.Event{Action: audit.ActionOtpRequest, UserID: user.ID, Purpose: string(purpose), Error: "cooldown"})
			return ErrOtpRateLimited
		case errors.Is(err, store.ErrOtpDailyLimit):
			e.metrics.Inc(metrics.OtpDailyLimited)
			e.emit(ctx, audit.Event{Action: audit.ActionOtpRequest, UserID: user.ID, Purpose: string(purpose), Error: "daily limit"})
			return ErrOtpDailyLimitExceeded
		}
		return err
	}

	e.metrics.Inc(metrics.OtpIssued)
	e.emit(ctx, audit.Event{Action: audit.ActionOtpRequest, UserID: user.ID, Purpose: string(purpose), Success: true})

	msg, err := notify.Render(purpose, code, e.otps.TTL())
	if err != nil {
		return err
	}
	if err := e.notifier.Send(ctx, to, msg); err != nil {
		e.metrics.Inc(metrics.NotifyFailure)
		e.emit(ctx, audit.Event{Action: audit.ActionNotifyFailure, UserID: user.ID, Purpose: string(purpose), Error: err.Error()})
		return fmt.Errorf("%w: %v", ErrEmailSendFailure, err)
	}
	return nil
}

// verifyOtp consumes the code, mapping every store miss to ErrOtpInvalid.
func (e *Engine) verifyOtp(ctx context.Context, userID string, purpose store.OtpPurpose, code string) error {
	if err := e.otps.Verify(ctx, userID, purpose, code); err != nil {
		if errors.Is(err, store.ErrOtpNotFound) {
			e.metrics.Inc(metrics.OtpVerifyFailure)
			e.emit(ctx, audit.Event{Action: audit.ActionOtpVerify, UserID: userID, Purpose: string(purpose), Error: "no matching code"})
			return ErrOtpInvalid
		}
		return err
	}
	e.metrics.Inc(metrics.OtpVerifySuccess)
	e.emit(ctx, audit.Event{Action: audit.ActionOtpVerify, UserID: userID, Purpose: string(purpose), Success: true})
	return nil
}

// revokeAllSessions is the cascade shared by the security-sensitive
// flows.
func (e *Engine) revokeAllSessions(ctx context.Context, userID, action string) error {
	if err := e.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	e.metrics.Inc(metrics.SessionRevoked)
	e.emit(ctx, audit.Event{Action: action, UserID: userID, Success: true})
	return nil
}
