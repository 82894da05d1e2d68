package middleware

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/todo-api/internal/auth"
	"github.com/taskhive/todo-api/internal/config"
	"github.com/taskhive/todo-api/internal/models"
)

func newAuthTestApp(t *testing.T) (*fiber.App, *config.JWTConfig, *auth.TokenIssuer) {
	t.Helper()

	cfg := &config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "todo-api-test",
		Audience: "todo-client-test",
		TTL:      time.Hour,
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mw, err := NewAuthMiddleware(cfg, logger)
	require.NoError(t, err)

	issuer, err := auth.NewTokenIssuer(cfg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(mw.Authenticate())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":  OwnerID(c),
			"username": Username(c),
		})
	})

	return app, cfg, issuer
}

func TestAuthenticate_MissingOrMalformedHeader(t *testing.T) {
	app, _, _ := newAuthTestApp(t)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"bearer without token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	app, _, issuer := newAuthTestApp(t)

	token, _, err := issuer.Issue(&models.User{ID: 42, Username: "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":42,"username":"alice"}`, string(body))
}

func TestAuthenticate_UnparsableIdentityClaim(t *testing.T) {
	app, cfg, _ := newAuthTestApp(t)

	// Well-signed token with a malformed id claim must be rejected, not
	// mapped to a default owner.
	now := time.Now()
	claims := jwt.MapClaims{
		"id":  "definitely-not-a-number",
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"nbf": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	app, cfg, _ := newAuthTestApp(t)

	now := time.Now()
	claims := jwt.MapClaims{
		"id":  "42",
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"nbf": now.Add(-2 * time.Hour).Unix(),
		"exp": now.Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOwnerID_OutsideAuthenticate(t *testing.T) {
	app := fiber.New()
	app.Get("/open", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": OwnerID(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":0}`, string(body))
}
