// Package oauth bridges Google's consent flow: it builds the consent URL and
// turns an authorization code into a verified profile.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/domain"
)

// DefaultUserInfoURL is Google's OpenID Connect userinfo endpoint.
const DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ErrExchange wraps any failure between receiving the code and reading the profile.
var ErrExchange = errors.New("oauth exchange failed")

// GoogleProvider performs the provider side of the consent flow.
type GoogleProvider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider builds a provider from client credentials.
func NewGoogleProvider(cfg config.GoogleConfig) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: DefaultUserInfoURL,
	}
}

// WithEndpoints overrides the token and userinfo endpoints.
func (p *GoogleProvider) WithEndpoints(endpoint oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	p.cfg.Endpoint = endpoint
	p.userInfoURL = userInfoURL
	return p
}

// ConsentURL returns the URL the browser is redirected to.
func (p *GoogleProvider) ConsentURL() (string, error) {
	state, err := randomState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange trades code for provider tokens and reads the user's profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*domain.GoogleProfile, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Join(ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, errors.Join(ErrExchange, err)
	}
	resp, err := p.cfg.Client(ctx, token).Do(req)
	if err != nil {
		return nil, errors.Join(ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrExchange, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Join(ErrExchange, err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: incomplete profile", ErrExchange)
	}

	return &domain.GoogleProfile{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
	}, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
