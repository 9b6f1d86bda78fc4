package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/repository"
)

// OAuthProvider is the provider side of the Google consent flow.
type OAuthProvider interface {
	ConsentURL() (string, error)
	Exchange(ctx context.Context, code string) (*domain.GoogleProfile, error)
}

// AuthService verifies identities and mints, validates and revokes credentials.
// It is the only component that creates or destroys refresh sessions.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.RefreshSessionRepository
	cache      repository.SessionCache
	google     OAuthProvider
	dispatcher events.Dispatcher
	logger     *zap.Logger
	tokenMgr   *auth.TokenManager
	bcryptCost int
	refreshTTL time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
// Cache, Google and Dispatcher are optional.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.RefreshSessionRepository
	Cache       repository.SessionCache
	Google      OAuthProvider
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		cache:      deps.Cache,
		google:     deps.Google,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Session.AccessTokenTTL),
		bcryptCost: cfg.Auth.BcryptCost,
		refreshTTL: cfg.Session.RefreshTokenTTL,
		now:        time.Now,
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a password account.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	const op = "service.auth.Register"

	normEmail, err := normalizeEmail(email)
	if err != nil || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	if _, err := s.users.GetByEmail(ctx, normEmail); err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &domain.User{
		Email:        normEmail,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.Event{Type: events.EventUserRegistered, UserID: user.ID})
	return user, nil
}

// Login verifies a password and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	const op = "service.auth.Login"

	normEmail, err := normalizeEmail(email)
	if err != nil || password == "" {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !user.HasPassword() {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issuePair(ctx, user, events.LoginMethodPassword)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Refresh validates a refresh credential and returns a new access token.
// The refresh credential itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "service.auth.Refresh"

	if refreshToken == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}
	hash := auth.HashRefreshToken(refreshToken)

	if s.cache != nil {
		revoked, err := s.cache.IsRevoked(ctx, hash)
		if err != nil {
			s.logger.Warn("session cache lookup failed", zap.String("op", op), zap.Error(err))
		} else if revoked {
			return "", fmt.Errorf("%s: %w", op, ErrRefreshTokenRevoked)
		}
	}

	session, err := s.sessions.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if session.Revoked() {
		return "", fmt.Errorf("%s: %w", op, ErrRefreshTokenRevoked)
	}
	if session.Expired(s.now()) {
		return "", fmt.Errorf("%s: %w", op, ErrRefreshTokenExpired)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	accessToken, _, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.Event{Type: events.EventSessionRefreshed, UserID: user.ID})
	return accessToken, nil
}

// Logout revokes the session behind refreshToken. An empty token is a no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	const op = "service.auth.Logout"

	if refreshToken == "" {
		s.publish(ctx, events.Event{Type: events.EventSessionEnded, Payload: events.SessionEndedPayload{}})
		return nil
	}
	hash := auth.HashRefreshToken(refreshToken)

	revoked, err := s.sessions.Revoke(ctx, hash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil && revoked {
		if err := s.cache.MarkRevoked(ctx, hash, s.refreshTTL); err != nil {
			s.logger.Warn("session cache write failed", zap.String("op", op), zap.Error(err))
		}
	}

	s.publish(ctx, events.Event{
		Type:    events.EventSessionEnded,
		Payload: events.SessionEndedPayload{HadToken: true, Revoked: revoked},
	})
	return nil
}

// GoogleConsentURL returns the provider consent page URL.
func (s *AuthService) GoogleConsentURL() (string, error) {
	const op = "service.auth.GoogleConsentURL"

	if s.google == nil {
		return "", fmt.Errorf("%s: %w", op, ErrOAuthNotConfigured)
	}
	u, err := s.google.ConsentURL()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GoogleCallback exchanges an authorization code, resolves the account and
// issues a token pair exactly like Login.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (domain.TokenPair, error) {
	const op = "service.auth.GoogleCallback"

	if s.google == nil {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, ErrOAuthNotConfigured)
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, errors.Join(ErrOAuthExchange, err))
	}
	if !profile.EmailVerified {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, ErrEmailNotVerified)
	}

	user, err := s.resolveGoogleUser(ctx, profile)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issuePair(ctx, user, events.LoginMethodGoogle)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// resolveGoogleUser finds the account by Google subject, then by email
// (linking it), and creates one as a last resort. Linking an account whose
// email was never verified drops its password.
func (s *AuthService) resolveGoogleUser(ctx context.Context, profile *domain.GoogleProfile) (*domain.User, error) {
	user, err := s.users.GetByGoogleID(ctx, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return nil, ErrOAuthExchange
	}

	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.LinkGoogle(ctx, user.ID, profile.Subject); err != nil {
			return nil, err
		}
		if !user.EmailVerified {
			user.PasswordHash = ""
		}
		subject := profile.Subject
		user.GoogleID = &subject
		user.EmailVerified = true
		return user, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	subject := profile.Subject
	user = &domain.User{
		Email:         email,
		Name:          profile.Name,
		GoogleID:      &subject,
		EmailVerified: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return nil, err
		}
		// Lost a race with a concurrent callback or registration.
		existing, lookupErr := s.users.GetByGoogleID(ctx, profile.Subject)
		if lookupErr != nil {
			return nil, ErrEmailTaken
		}
		return existing, nil
	}
	s.publish(ctx, events.Event{Type: events.EventUserRegistered, UserID: user.ID})
	return user, nil
}

// issuePair signs the access token and persists the refresh session. Nothing
// is returned unless both succeed.
func (s *AuthService) issuePair(ctx context.Context, user *domain.User, method events.LoginMethod) (domain.TokenPair, error) {
	accessToken, _, err := s.tokenMgr.GenerateToken(user.ID, user.Email)
	if err != nil {
		return domain.TokenPair{}, err
	}

	plain, hash, err := auth.NewRefreshToken()
	if err != nil {
		return domain.TokenPair{}, err
	}

	session := &domain.RefreshSession{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.TokenPair{}, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventSessionStarted,
		UserID:  user.ID,
		Payload: events.SessionStartedPayload{Method: method, SessionID: session.ID},
	})
	return domain.TokenPair{AccessToken: accessToken, RefreshToken: plain}, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Debug("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidInput
	}
	return strings.ToLower(email), nil
}
