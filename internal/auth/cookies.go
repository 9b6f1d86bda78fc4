package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/domain"
)

// Cookie names carrying the credentials.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// RefreshRoute is appended to the API path to scope the refresh cookie.
const RefreshRoute = "/auth/refresh"

// clearedAt is sent as the expiry of a cleared cookie.
var clearedAt = time.Unix(0, 0).UTC()

// CookieDescriptor holds the attributes a credential cookie is written with.
// Set and clear use the same descriptor, so only the expiry differs between them.
type CookieDescriptor struct {
	Name     string
	MaxAge   time.Duration
	HTTPOnly bool
	SameSite string
	Secure   bool
	Path     string
}

// Cookie renders the descriptor carrying value.
func (d CookieDescriptor) Cookie(value string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     d.Name,
		Value:    value,
		Path:     d.Path,
		MaxAge:   int(d.MaxAge / time.Second),
		HTTPOnly: d.HTTPOnly,
		SameSite: d.SameSite,
		Secure:   d.Secure,
	}
}

// Expired renders the descriptor without max-age and with an expiry in the past.
func (d CookieDescriptor) Expired() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     d.Name,
		Value:    "",
		Path:     d.Path,
		Expires:  clearedAt,
		HTTPOnly: d.HTTPOnly,
		SameSite: d.SameSite,
		Secure:   d.Secure,
	}
}

// CookiePolicy owns the access and refresh descriptors. It is built once at
// startup and only read afterwards.
type CookiePolicy struct {
	access  CookieDescriptor
	refresh CookieDescriptor
}

// NewCookiePolicy derives both descriptors from the session configuration.
func NewCookiePolicy(cfg config.SessionConfig) *CookiePolicy {
	secure := cfg.IsProduction()
	return &CookiePolicy{
		access: CookieDescriptor{
			Name:     AccessCookieName,
			MaxAge:   cfg.AccessTokenTTL,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteStrictMode,
			Secure:   secure,
			Path:     "/",
		},
		refresh: CookieDescriptor{
			Name:     RefreshCookieName,
			MaxAge:   cfg.RefreshTokenTTL,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteStrictMode,
			Secure:   secure,
			Path:     cfg.APIPath() + RefreshRoute,
		},
	}
}

// Access returns a copy of the access cookie descriptor.
func (p *CookiePolicy) Access() CookieDescriptor { return p.access }

// Refresh returns a copy of the refresh cookie descriptor.
func (p *CookiePolicy) Refresh() CookieDescriptor { return p.refresh }

// SetAccess writes the access cookie.
func (p *CookiePolicy) SetAccess(c *fiber.Ctx, token string) {
	c.Cookie(p.access.Cookie(token))
}

// SetPair writes both cookies from the same pair returned in the body.
func (p *CookiePolicy) SetPair(c *fiber.Ctx, pair domain.TokenPair) {
	c.Cookie(p.access.Cookie(pair.AccessToken))
	c.Cookie(p.refresh.Cookie(pair.RefreshToken))
}

// ClearAll expires both cookies.
func (p *CookiePolicy) ClearAll(c *fiber.Ctx) {
	c.Cookie(p.access.Expired())
	c.Cookie(p.refresh.Expired())
}

// RefreshToken reads the refresh credential from the inbound request.
func (p *CookiePolicy) RefreshToken(c *fiber.Ctx) string {
	return c.Cookies(p.refresh.Name)
}

// AccessToken reads the access credential from the inbound request.
func (p *CookiePolicy) AccessToken(c *fiber.Ctx) string {
	return c.Cookies(p.access.Name)
}
