package authcore

import (
	"context"
	"errors"

	"github.com/authcore-io/authcore/internal/audit"
	"github.com/authcore-io/authcore/internal/metrics"
	"github.com/authcore-io/authcore/store"
)

// RequestEmailChange issues a confirmation code for moving the account to
// newEmail. The code is delivered to the CURRENT address: it proves
// control of the account, not of the new mailbox. Fails with
// ErrEmailInUse when newEmail already belongs to another account.
func (e *Engine) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := e.checkEmailAvailable(ctx, userID, newEmail); err != nil {
		return err
	}

	if err := e.issueAndNotify(ctx, user, store.PurposeEmailChange, user.Email); err != nil {
		return err
	}
	e.emit(ctx, audit.Event{Action: audit.ActionEmailChangeRequest, UserID: userID, Success: true})
	return nil
}

// ConfirmEmailChange consumes the code, moves the account to newEmail
// (marked verified), and revokes every session.
func (e *Engine) ConfirmEmailChange(ctx context.Context, userID, code, newEmail string) error {
	if _, err := e.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := e.checkEmailAvailable(ctx, userID, newEmail); err != nil {
		return err
	}

	if err := e.verifyOtp(ctx, userID, store.PurposeEmailChange, code); err != nil {
		return err
	}

	if err := e.store.UpdateEmail(ctx, userID, newEmail); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			// Lost a race with another account claiming the address.
			return ErrEmailInUse
		case errors.Is(err, store.ErrUserNotFound):
			return ErrUserNotFound
		}
		return err
	}

	e.metrics.Inc(metrics.EmailChanged)
	e.emit(ctx, audit.Event{Action: audit.ActionEmailChanged, UserID: userID, Success: true})

	return e.revokeAllSessions(ctx, userID, audit.ActionSessionRevokeAll)
}

func (e *Engine) checkEmailAvailable(ctx context.Context, userID, email string) error {
	owner, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if owner.ID == userID {
		return nil
	}
	return ErrEmailInUse
}
