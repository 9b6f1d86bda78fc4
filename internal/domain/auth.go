package domain

import "time"

// TokenPair is the result of a successful login. Both values are always set.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshSession binds a hashed refresh credential to a user.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Revoked reports whether the session was explicitly terminated.
func (s *RefreshSession) Revoked() bool {
	return s.RevokedAt != nil
}

// Expired reports whether the session is past its lifetime at now.
func (s *RefreshSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// GoogleProfile is the identity resolved from a Google code exchange.
type GoogleProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
