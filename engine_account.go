package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/authcore-io/authcore/internal/audit"
	"github.com/authcore-io/authcore/internal/metrics"
	"github.com/authcore-io/authcore/store"
)

// ChangePassword replaces the user's password after verifying the current
// one, then revokes every session. Guardrails: ErrPasswordNotSet on
// accounts without local credentials, ErrInvalidCurrentPassword on
// mismatch, ErrPasswordSameAsOld when the new password verifies against
// the existing hash.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.PasswordHash == "" {
		return ErrPasswordNotSet
	}

	ok, err := e.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}
	if !ok {
		e.emit(ctx, audit.Event{Action: audit.ActionPasswordChange, UserID: userID, Error: "wrong current password"})
		return ErrInvalidCurrentPassword
	}

	same, err := e.hasher.Verify(newPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}
	if same {
		return ErrPasswordSameAsOld
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}
	if err := e.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	e.metrics.Inc(metrics.PasswordChanged)
	e.emit(ctx, audit.Event{Action: audit.ActionPasswordChange, UserID: userID, Success: true})

	return e.revokeAllSessions(ctx, userID, audit.ActionSessionRevokeAll)
}

// DeactivateAccount flips the account inactive and revokes every session.
// The record is kept; nothing in this engine deletes users.
func (e *Engine) DeactivateAccount(ctx context.Context, userID string) error {
	if err := e.store.SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	e.metrics.Inc(metrics.AccountDeactivated)
	e.emit(ctx, audit.Event{Action: audit.ActionDeactivate, UserID: userID, Success: true})

	return e.revokeAllSessions(ctx, userID, audit.ActionSessionRevokeAll)
}
