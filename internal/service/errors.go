package service

import "errors"

var (
	// ErrInvalidCredentials: unknown email, wrong password or a password login
	// against an account created through Google.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken: registration for an email that already has an account.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidInput: registration payload fails basic validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidRefreshToken: the refresh credential is unknown or its user is gone.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrRefreshTokenExpired: the refresh credential is past its lifetime.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrRefreshTokenRevoked: the refresh credential was revoked by logout.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")

	// ErrOAuthNotConfigured: Google client credentials are absent.
	ErrOAuthNotConfigured = errors.New("oauth provider not configured")

	// ErrOAuthExchange: the provider rejected the code or the profile could not be read.
	ErrOAuthExchange = errors.New("oauth exchange failed")

	// ErrEmailNotVerified: the provider reports the email as unverified.
	ErrEmailNotVerified = errors.New("email not verified")
)
