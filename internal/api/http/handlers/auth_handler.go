package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/api/dto"
	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/observability"
	"github.com/spec-kit/session-service/internal/service"
	apperrors "github.com/spec-kit/session-service/pkg/util/errorutil"
)

// ProtectedMessage is the body of GET /auth/protected.
const ProtectedMessage = "This is a protected route"

//go:generate mockgen -destination=../../../mocks/mock_credential_issuer.go -package=mocks github.com/spec-kit/session-service/internal/api/http/handlers CredentialIssuer

// CredentialIssuer verifies identities and mints, validates and revokes credentials.
type CredentialIssuer interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	GoogleConsentURL() (string, error)
	GoogleCallback(ctx context.Context, code string) (domain.TokenPair, error)
}

// AuthHandler exposes the session lifecycle endpoints.
type AuthHandler struct {
	issuer     CredentialIssuer
	cookies    *auth.CookiePolicy
	logger     *zap.Logger
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
}

// AuthHandlerDeps bundles optional collaborators.
type AuthHandlerDeps struct {
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher
}

// NewAuthHandler constructs handler.
func NewAuthHandler(issuer CredentialIssuer, cookies *auth.CookiePolicy, deps AuthHandlerDeps) *AuthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		issuer:     issuer,
		cookies:    cookies,
		logger:     logger,
		metrics:    deps.Metrics,
		dispatcher: deps.Dispatcher,
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	pair, err := h.issuer.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordTransition(observability.TransitionLogin, observability.OutcomeFailure)
		return mapAuthError(err)
	}

	h.metrics.RecordTransition(observability.TransitionLogin, observability.OutcomeSuccess)
	return h.respondWithPair(c, pair)
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, err := h.issuer.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		h.metrics.RecordTransition(observability.TransitionRegister, observability.OutcomeFailure)
		return mapAuthError(err)
	}

	h.metrics.RecordTransition(observability.TransitionRegister, observability.OutcomeSuccess)
	return c.Status(http.StatusCreated).JSON(dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

// Refresh handles POST /auth/refresh. The credential is read from the refresh
// cookie only. Once the issuer is involved, any failure clears both cookies
// before the error leaves the handler.
func (h *AuthHandler) Refresh(c *fiber.Ctx) (err error) {
	refreshToken := h.cookies.RefreshToken(c)
	if refreshToken == "" {
		h.metrics.RecordTransition(observability.TransitionRefresh, observability.OutcomeFailure)
		return apperrors.NewUnauthorized("missing refresh token", nil)
	}

	defer func() {
		if r := recover(); r != nil {
			h.cookies.ClearAll(c)
			panic(r)
		}
		if err != nil {
			h.cookies.ClearAll(c)
			h.metrics.RecordTransition(observability.TransitionRefresh, observability.OutcomeFailure)
		}
	}()

	accessToken, err := h.issuer.Refresh(c.UserContext(), refreshToken)
	if err != nil {
		return mapAuthError(err)
	}

	h.cookies.SetAccess(c, accessToken)
	h.metrics.RecordTransition(observability.TransitionRefresh, observability.OutcomeSuccess)
	return c.JSON(dto.RefreshResponse{AccessToken: accessToken})
}

// Logout handles POST /auth/logout. Both cookies are cleared whatever the
// issuer does; revoke failures are logged and never returned.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	defer h.cookies.ClearAll(c)

	if err := h.revoke(c.UserContext(), h.cookies.RefreshToken(c)); err != nil {
		h.logger.Warn("refresh token revoke failed", zap.Error(err))
		h.metrics.RecordTransition(observability.TransitionLogout, observability.OutcomeRevokeFailed)
		h.publish(c.UserContext(), events.Event{
			Type:    events.EventSessionRevokeFailed,
			Payload: events.RevokeFailedPayload{Reason: err.Error()},
		})
	} else {
		h.metrics.RecordTransition(observability.TransitionLogout, observability.OutcomeSuccess)
	}

	c.Status(http.StatusOK)
	return nil
}

func (h *AuthHandler) revoke(ctx context.Context, refreshToken string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("revoke panicked: %v", r)
		}
	}()
	return h.issuer.Logout(ctx, refreshToken)
}

// GoogleStart handles GET /auth/google.
func (h *AuthHandler) GoogleStart(c *fiber.Ctx) error {
	consentURL, err := h.issuer.GoogleConsentURL()
	if err != nil {
		h.metrics.RecordTransition(observability.TransitionOAuthStart, observability.OutcomeFailure)
		return mapAuthError(err)
	}
	h.metrics.RecordTransition(observability.TransitionOAuthStart, observability.OutcomeSuccess)
	return c.Redirect(consentURL, http.StatusSeeOther)
}

// GoogleCallback handles GET /auth/google/callback.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return apperrors.NewValidationError("code required", nil)
	}

	pair, err := h.issuer.GoogleCallback(c.UserContext(), code)
	if err != nil {
		h.metrics.RecordTransition(observability.TransitionOAuthCallback, observability.OutcomeFailure)
		return mapAuthError(err)
	}

	h.metrics.RecordTransition(observability.TransitionOAuthCallback, observability.OutcomeSuccess)
	return h.respondWithPair(c, pair)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthenticated", nil)
	}
	return c.JSON(identity)
}

// Protected handles GET /auth/protected.
func (h *AuthHandler) Protected(c *fiber.Ctx) error {
	return c.SendString(ProtectedMessage)
}

func (h *AuthHandler) respondWithPair(c *fiber.Ctx, pair domain.TokenPair) error {
	h.cookies.SetPair(c, pair)
	return c.JSON(dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHandler) publish(ctx context.Context, event events.Event) {
	if h.dispatcher == nil {
		return
	}
	_ = h.dispatcher.Publish(ctx, event)
}

// mapAuthError translates issuer errors into transport errors.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewUnauthorized("invalid credentials", err)
	case errors.Is(err, service.ErrEmailNotVerified):
		return apperrors.NewUnauthorized("email not verified", err)
	case errors.Is(err, service.ErrOAuthExchange):
		return apperrors.NewUnauthorized("oauth sign-in failed", err)
	case errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrRefreshTokenRevoked):
		return apperrors.NewUnauthorized("invalid or expired refresh token", err)
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.NewConflict("email already registered", err)
	case errors.Is(err, service.ErrInvalidInput):
		return apperrors.NewValidationError("invalid email or password", nil)
	case errors.Is(err, service.ErrOAuthNotConfigured):
		return apperrors.NewServiceUnavailable("oauth provider not configured", err)
	default:
		var de *apperrors.DomainError
		if errors.As(err, &de) {
			return de
		}
		return apperrors.NewInternalError(err)
	}
}
