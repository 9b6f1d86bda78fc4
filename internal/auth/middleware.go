package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/session-service/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// Identity represents the authenticated caller.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// AccessGuard validates the access credential and attaches an Identity.
type AccessGuard struct {
	tokens  *TokenManager
	cookies *CookiePolicy
}

// NewAccessGuard constructs middleware.
func NewAccessGuard(tokens *TokenManager, cookies *CookiePolicy) *AccessGuard {
	return &AccessGuard{tokens: tokens, cookies: cookies}
}

// Handle enforces authentication for protected routes. The access cookie is
// preferred; a bearer header is accepted for programmatic clients.
func (g *AccessGuard) Handle(c *fiber.Ctx) error {
	token := g.cookies.AccessToken(c)
	if token == "" {
		var err error
		if token, err = bearerToken(c.Get(fiber.HeaderAuthorization)); err != nil {
			return err
		}
	}

	identity, err := g.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token", err)
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing access token", nil)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header", nil)
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}
