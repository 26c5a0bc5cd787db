package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/authcore-io/authcore/internal/audit"
	"github.com/authcore-io/authcore/internal/metrics"
	"github.com/authcore-io/authcore/store"
)

// Register creates an account with local credentials, assigns the default
// role, and issues an email-verification code to the new address.
// Registration never logs the user in; the caller gets the created
// identity only.
//
// When the verification email cannot be delivered, the account and code
// already exist: the summary is returned alongside an error matching
// ErrEmailSendFailure.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*UserSummary, error) {
	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}

	defaultRoleID, err := e.roles.DefaultRoleID(ctx)
	if err != nil {
		if errors.Is(err, store.ErrRoleNotFound) {
			return nil, ErrDefaultRoleNotFound
		}
		return nil, err
	}

	now := e.clock().UTC()
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		AuthProvider: "local",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			e.metrics.Inc(metrics.RegisterDuplicate)
			e.emit(ctx, audit.Event{Action: audit.ActionRegister, Error: "duplicate email"})
			return nil, ErrEmailExists
		}
		return nil, err
	}

	if err := e.store.AssignRole(ctx, user.ID, defaultRoleID); err != nil {
		if errors.Is(err, store.ErrRoleNotFound) {
			return nil, ErrDefaultRoleNotFound
		}
		return nil, err
	}

	e.metrics.Inc(metrics.RegisterSuccess)
	e.emit(ctx, audit.Event{Action: audit.ActionRegister, UserID: user.ID, Success: true})

	roleNames, err := e.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	summary := summaryOf(user, roleNames)

	if err := e.issueAndNotify(ctx, user, store.PurposeEmailVerify, user.Email); err != nil {
		return &summary, err
	}
	return &summary, nil
}
