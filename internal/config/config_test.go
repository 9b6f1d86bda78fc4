package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setSessionEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_EXPIRES_IN", "15m")
	t.Setenv("REFRESH_TOKEN_EXPIRES_IN", "7d")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("API_URL", "https://api.example.com/v1/")
}

func TestLoad_OK(t *testing.T) {
	setSessionEnv(t)
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 15*time.Minute, cfg.Session.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Session.RefreshTokenTTL)
	require.True(t, cfg.Session.IsProduction())
	require.Equal(t, "/v1", cfg.Session.APIPath())
	require.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	require.False(t, cfg.Google.Enabled())
}

func TestLoad_MissingRequiredKeys(t *testing.T) {
	setSessionEnv(t)
	t.Setenv("NODE_ENV", "")
	t.Setenv("API_URL", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "NODE_ENV")
	require.Contains(t, err.Error(), "API_URL")
}

func TestLoad_InvalidExpiry(t *testing.T) {
	setSessionEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRES_IN", "soon")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ACCESS_TOKEN_EXPIRES_IN")
}

func TestParseExpiry(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"900": 900 * time.Second,
		"15m": 15 * time.Minute,
		"1h":  time.Hour,
		"30d": 30 * 24 * time.Hour,
	}
	for raw, want := range cases {
		got, err := ParseExpiry(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	for _, bad := range []string{"", "0", "-5m", "xd", "abc"} {
		_, err := ParseExpiry(bad)
		require.Error(t, err, bad)
	}
}

func TestSessionConfig_APIPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", SessionConfig{APIURL: "http://localhost:3000"}.APIPath())
	require.Equal(t, "/api", SessionConfig{APIURL: "/api/"}.APIPath())
	require.Equal(t, "/api", SessionConfig{APIURL: "https://x.com/api"}.APIPath())
	require.False(t, SessionConfig{Env: "staging"}.IsProduction())
}
