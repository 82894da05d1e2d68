package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskhive/todo-api/internal/auth"
	"github.com/taskhive/todo-api/internal/config"
	"github.com/taskhive/todo-api/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
)

const (
	localUserID   = "user_id"
	localUsername = "username"
)

// AuthMiddleware guards protected routes. Self-issued HS256 tokens are
// verified against the injected signing config; when a JWKS endpoint is
// configured, RS256/ES256 tokens from the external issuer are accepted
// instead.
type AuthMiddleware struct {
	config   *config.JWTConfig
	verifier *auth.TokenVerifier
	logger   *logrus.Logger
	jwkCache *jwk.Cache
}

func NewAuthMiddleware(cfg *config.JWTConfig, logger *logrus.Logger) (*AuthMiddleware, error) {
	verifier, err := auth.NewTokenVerifier(cfg)
	if err != nil {
		return nil, err
	}

	m := &AuthMiddleware{
		config:   cfg,
		verifier: verifier,
		logger:   logger,
	}

	if cfg.JWKSEndpoint != "" {
		cache := jwk.NewCache(context.Background())
		if err := cache.Register(cfg.JWKSEndpoint, jwk.WithMinRefreshInterval(cfg.CacheTTL)); err != nil {
			return nil, fmt.Errorf("failed to register JWKS endpoint: %w", err)
		}

		// Pre-fetch the keys
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := cache.Refresh(ctx, cfg.JWKSEndpoint); err != nil {
			logger.WithError(err).Warn("Failed to pre-fetch JWKS, will try during first request")
		}

		m.jwkCache = cache
	}

	return m, nil
}

// Authenticate is the JWT authentication middleware for protected routes.
func (a *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Extract token from Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return a.unauthorizedError(c, "MISSING_AUTHORIZATION", "Authorization header is required")
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return a.unauthorizedError(c, "INVALID_TOKEN_FORMAT", "Authorization header must be Bearer token")
		}

		tokenString := authHeader[len(bearerPrefix):]
		if tokenString == "" {
			return a.unauthorizedError(c, "MISSING_TOKEN", "Token is required")
		}

		identity, err := a.validateToken(c.Context(), tokenString)
		if err != nil {
			metrics.RecordAuthFailure("token")
			a.logger.WithError(err).WithField("path", c.Path()).Debug("Token validation failed")
			return a.unauthorizedError(c, "INVALID_TOKEN", "Token validation failed")
		}

		c.Locals(localUserID, identity.UserID)
		c.Locals(localUsername, identity.Name)

		return c.Next()
	}
}

// validateToken validates the bearer token and extracts the identity.
func (a *AuthMiddleware) validateToken(ctx context.Context, tokenString string) (*auth.Identity, error) {
	if a.jwkCache != nil {
		return a.validateWithJWKS(ctx, tokenString)
	}
	return a.verifier.Verify(tokenString)
}

// validateWithJWKS verifies a token against the external issuer's key set.
func (a *AuthMiddleware) validateWithJWKS(ctx context.Context, tokenString string) (*auth.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		keyID, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid not found in token header")
		}

		set, err := a.jwkCache.Get(ctx, a.config.JWKSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to get JWK set: %w", err)
		}

		key, found := set.LookupKeyID(keyID)
		if !found {
			return nil, fmt.Errorf("key with ID %s not found", keyID)
		}

		var verifyKey interface{}
		if err := key.Raw(&verifyKey); err != nil {
			return nil, fmt.Errorf("failed to get raw key: %w", err)
		}

		return verifyKey, nil
	},
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(a.config.Issuer),
		jwt.WithAudience(a.config.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("failed to get token claims")
	}

	return auth.IdentityFromClaims(claims)
}

// unauthorizedError returns a standardized unauthorized error response
func (a *AuthMiddleware) unauthorizedError(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     code,
			"message":  message,
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}

// OwnerID returns the authenticated caller's user id. It never fails:
// on a request that did not pass Authenticate it returns 0, which no
// stored record can be owned by.
func OwnerID(c *fiber.Ctx) int64 {
	if userID, ok := c.Locals(localUserID).(int64); ok {
		return userID
	}
	return 0
}

// Username returns the authenticated caller's name claim, if any.
func Username(c *fiber.Ctx) string {
	if name, ok := c.Locals(localUsername).(string); ok {
		return name
	}
	return ""
}
