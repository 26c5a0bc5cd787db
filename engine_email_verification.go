package authcore

import (
	"context"
	"errors"

	"github.com/authcore-io/authcore/internal/audit"
	"github.com/authcore-io/authcore/internal/metrics"
	"github.com/authcore-io/authcore/store"
)

// RequestEmailVerification issues a fresh verification code to the
// address. An unknown or already-verified address is a silent no-op, so
// the response shape never leaks whether an account exists.
func (e *Engine) RequestEmailVerification(ctx context.Context, email string) error {
	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return e.issueAndNotify(ctx, user, store.PurposeEmailVerify, user.Email)
}

// VerifyEmail consumes the code and marks the address verified. An
// unknown address fails with ErrOtpInvalid, indistinguishable from a
// wrong code.
func (e *Engine) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrOtpInvalid
		}
		return err
	}

	if err := e.verifyOtp(ctx, user.ID, store.PurposeEmailVerify, code); err != nil {
		return err
	}

	if err := e.store.SetEmailVerified(ctx, user.ID, true); err != nil {
		return err
	}

	e.metrics.Inc(metrics.EmailVerified)
	e.emit(ctx, audit.Event{Action: audit.ActionEmailVerified, UserID: user.ID, Success: true})
	return nil
}
