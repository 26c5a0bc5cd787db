package authcore

import "errors"

var (
	// ErrEmailExists is returned by Register when the email is taken.
	ErrEmailExists = errors.New("email already registered")
	// ErrEmailInUse is returned by the email-change flow when the
	// candidate address belongs to another account.
	ErrEmailInUse = errors.New("email already in use")
	// ErrInvalidCredentials covers unknown email, missing password hash,
	// and wrong password without distinguishing them.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDeactivated is returned on login to a deactivated account.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrTokenInvalid covers malformed, tampered, and expired access
	// tokens.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrRefreshInvalid covers unknown, expired, revoked, and
	// rotated-out refresh tokens, including replay after rotation.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrSessionMismatch is returned when a refresh token is presented
	// from a different client context than it was issued to. The session
	// stays active.
	ErrSessionMismatch = errors.New("refresh token presented from a different client context")
	// ErrOtpInvalid covers wrong, expired, and already-used codes
	// without distinguishing them.
	ErrOtpInvalid = errors.New("invalid one-time code")
	// ErrOtpRateLimited is returned while the reissue cooldown runs.
	ErrOtpRateLimited = errors.New("one-time code recently issued, retry later")
	// ErrOtpDailyLimitExceeded is returned once the rolling daily
	// issuance cap is reached.
	ErrOtpDailyLimitExceeded = errors.New("daily one-time code limit exceeded")
	// ErrSessionNotFound is returned by a targeted revoke when the
	// session is absent, already revoked, or owned by someone else.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPasswordNotSet is returned by ChangePassword on accounts
	// without local credentials.
	ErrPasswordNotSet = errors.New("account has no password set")
	// ErrInvalidCurrentPassword is returned by ChangePassword when the
	// presented current password does not verify.
	ErrInvalidCurrentPassword = errors.New("current password incorrect")
	// ErrPasswordSameAsOld is returned by ChangePassword when the new
	// password verifies against the existing hash.
	ErrPasswordSameAsOld = errors.New("new password must differ from current password")
	// ErrUserNotFound is returned by operations addressing a user id
	// that no longer resolves.
	ErrUserNotFound = errors.New("user not found")
	// ErrDefaultRoleNotFound signals a misconfigured role directory.
	ErrDefaultRoleNotFound = errors.New("default role not found")
	// ErrEmailSendFailure wraps Notifier delivery failures. The state
	// change it reports on has already committed.
	ErrEmailSendFailure = errors.New("email delivery failed")
	// ErrHashingFailure wraps failures of the password hashing
	// primitive.
	ErrHashingFailure = errors.New("password hashing failed")
)
