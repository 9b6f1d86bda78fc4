package domain

import "time"

// User is an account that can hold sessions. PasswordHash is empty for
// accounts created through Google sign-in.
type User struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	GoogleID      *string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}
