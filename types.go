package authcore

import "time"

// RegisterInput carries a registration request. Field validation beyond
// email uniqueness is the caller's concern.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserSummary is the identity shape returned to callers. It never carries
// credentials.
type UserSummary struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	EmailVerified bool
	Roles         []string
	CreatedAt     time.Time
}

// LoginResult is the outcome of a successful login or refresh. The
// refresh token is the raw secret: hand it to the end user once and never
// log it.
type LoginResult struct {
	User         UserSummary
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// SessionInfo describes one active session for enumeration.
type SessionInfo struct {
	ID        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}
