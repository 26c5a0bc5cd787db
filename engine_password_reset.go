package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/authcore-io/authcore/internal/audit"
	"github.com/authcore-io/authcore/internal/metrics"
	"github.com/authcore-io/authcore/store"
)

// ForgotPassword issues a password-reset code to the address. An unknown
// address is a silent no-op.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return err
	}
	return e.issueAndNotify(ctx, user, store.PurposePasswordReset, user.Email)
}

// ResetPassword consumes the reset code, installs the new password, and
// revokes every session of the user. An unknown address fails with
// ErrOtpInvalid, indistinguishable from a wrong code.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrOtpInvalid
		}
		return err
	}

	if err := e.verifyOtp(ctx, user.ID, store.PurposePasswordReset, code); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}
	if err := e.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	e.metrics.Inc(metrics.PasswordReset)
	e.emit(ctx, audit.Event{Action: audit.ActionPasswordReset, UserID: user.ID, Success: true})

	return e.revokeAllSessions(ctx, user.ID, audit.ActionSessionRevokeAll)
}
