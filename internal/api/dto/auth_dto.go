package dto

import "time"

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPairResponse is returned by login and the OAuth callback. The values
// are identical to the cookies set on the same response.
type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is returned by refresh.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// UserResponse is the public projection of a registered account.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
