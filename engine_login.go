package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/authcore-io/authcore/internal/audit"
	"github.com/authcore-io/authcore/internal/metrics"
	"github.com/authcore-io/authcore/store"
)

// Login verifies local credentials and opens a session bound to
// userAgent. Unknown email, missing password hash, and wrong password all
// surface as ErrInvalidCredentials; a deactivated account surfaces as
// ErrAccountDeactivated regardless of password correctness.
func (e *Engine) Login(ctx context.Context, email, plaintext, userAgent string) (*LoginResult, error) {
	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			e.metrics.Inc(metrics.LoginFailure)
			e.emit(ctx, audit.Event{Action: audit.ActionLogin, Error: "unknown email"})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		e.metrics.Inc(metrics.LoginFailure)
		e.emit(ctx, audit.Event{Action: audit.ActionLogin, UserID: user.ID, Error: "no local credentials"})
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		e.metrics.Inc(metrics.LoginDeactivated)
		e.emit(ctx, audit.Event{Action: audit.ActionLogin, UserID: user.ID, Error: "account deactivated"})
		return nil, ErrAccountDeactivated
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}
	if !ok {
		e.metrics.Inc(metrics.LoginFailure)
		e.emit(ctx, audit.Event{Action: audit.ActionLogin, UserID: user.ID, Error: "wrong password"})
		return nil, ErrInvalidCredentials
	}

	accessToken, roleNames, err := e.accessTokenFor(ctx, user)
	if err != nil {
		return nil, err
	}

	grant, err := e.sessions.Issue(ctx, user.ID, userAgent)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(metrics.LoginSuccess)
	e.metrics.Inc(metrics.SessionCreated)
	e.emit(ctx, audit.Event{Action: audit.ActionLogin, UserID: user.ID, SessionID: grant.Session.ID, UserAgent: userAgent, Success: true})

	return &LoginResult{
		User:         summaryOf(user, roleNames),
		AccessToken:  accessToken,
		RefreshToken: grant.RefreshToken,
		SessionID:    grant.Session.ID,
	}, nil
}

// Refresh rotates rawToken into a fresh session and access token. A
// rotated-out or unknown token fails with ErrRefreshInvalid, though only
// the former counts as detected reuse; presenting a valid token from a
// different user agent fails with ErrSessionMismatch and leaves the
// session active.
func (e *Engine) Refresh(ctx context.Context, rawToken, userAgent string) (*LoginResult, error) {
	grant, old, err := e.sessions.Rotate(ctx, rawToken, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionRevoked):
			e.metrics.Inc(metrics.RefreshFailure)
			e.metrics.Inc(metrics.RefreshReuseDetected)
			e.emit(ctx, audit.Event{Action: audit.ActionRefreshReuse, UserAgent: userAgent, Error: "rotated-out token presented"})
			return nil, ErrRefreshInvalid
		case errors.Is(err, store.ErrSessionNotFound):
			e.metrics.Inc(metrics.RefreshFailure)
			e.emit(ctx, audit.Event{Action: audit.ActionRefresh, UserAgent: userAgent, Error: "no session for token"})
			return nil, ErrRefreshInvalid
		case errors.Is(err, store.ErrAgentMismatch):
			e.metrics.Inc(metrics.RefreshAgentMismatch)
			e.emit(ctx, audit.Event{Action: audit.ActionRefreshAgentMismatch, UserAgent: userAgent, Error: "user agent mismatch"})
			return nil, ErrSessionMismatch
		}
		return nil, err
	}

	user, err := e.store.GetUserByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			e.metrics.Inc(metrics.RefreshFailure)
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	accessToken, roleNames, err := e.accessTokenFor(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(metrics.RefreshSuccess)
	e.emit(ctx, audit.Event{Action: audit.ActionRefresh, UserID: user.ID, SessionID: grant.Session.ID, UserAgent: userAgent, Success: true})

	return &LoginResult{
		User:         summaryOf(user, roleNames),
		AccessToken:  accessToken,
		RefreshToken: grant.RefreshToken,
		SessionID:    grant.Session.ID,
	}, nil
}

// Logout revokes the session holding rawToken. Idempotent: unknown and
// already-revoked tokens succeed silently.
func (e *Engine) Logout(ctx context.Context, rawToken string) error {
	if err := e.sessions.RevokeByToken(ctx, rawToken); err != nil {
		return err
	}
	e.metrics.Inc(metrics.Logout)
	e.emit(ctx, audit.Event{Action: audit.ActionLogout, Success: true})
	return nil
}
