package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/todo-api/internal/config"
	"github.com/taskhive/todo-api/internal/models"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "todo-api-test",
		Audience: "todo-client-test",
		TTL:      time.Hour,
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	issuer, err := NewTokenIssuer(cfg)
	require.NoError(t, err)
	verifier, err := NewTokenVerifier(cfg)
	require.NoError(t, err)

	user := &models.User{ID: 42, Username: "alice"}
	token, expiresIn, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 3600, expiresIn)

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
	assert.Equal(t, "alice", identity.Name)
}

func TestTokenIssuer_EmptyUsernameDefaultsToUnknown(t *testing.T) {
	cfg := testJWTConfig()

	issuer, err := NewTokenIssuer(cfg)
	require.NoError(t, err)
	verifier, err := NewTokenVerifier(cfg)
	require.NoError(t, err)

	token, _, err := issuer.Issue(&models.User{ID: 7})
	require.NoError(t, err)

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", identity.Name)
}

func TestNewTokenIssuer_MissingSecret(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Secret = ""

	_, err := NewTokenIssuer(cfg)
	assert.Error(t, err)

	_, err = NewTokenVerifier(cfg)
	assert.Error(t, err)
}

func TestTokenVerifier_Expired(t *testing.T) {
	cfg := testJWTConfig()

	issuer, err := NewTokenIssuer(cfg)
	require.NoError(t, err)
	// Issue a token whose validity window closed an hour ago.
	issuer.clock = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := issuer.Issue(&models.User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	verifier, err := NewTokenVerifier(cfg)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_NotYetValid(t *testing.T) {
	cfg := testJWTConfig()

	issuer, err := NewTokenIssuer(cfg)
	require.NoError(t, err)
	issuer.clock = func() time.Time { return time.Now().Add(time.Hour) }

	token, _, err := issuer.Issue(&models.User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	verifier, err := NewTokenVerifier(cfg)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_WrongSecret(t *testing.T) {
	cfg := testJWTConfig()

	issuer, err := NewTokenIssuer(cfg)
	require.NoError(t, err)

	token, _, err := issuer.Issue(&models.User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.Secret = "another-secret"
	verifier, err := NewTokenVerifier(otherCfg)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_IssuerAndAudienceMismatch(t *testing.T) {
	cfg := testJWTConfig()

	issuer, err := NewTokenIssuer(cfg)
	require.NoError(t, err)
	token, _, err := issuer.Issue(&models.User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	badIssuer := testJWTConfig()
	badIssuer.Issuer = "someone-else"
	verifier, err := NewTokenVerifier(badIssuer)
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badAudience := testJWTConfig()
	badAudience.Audience = "someone-else"
	verifier, err = NewTokenVerifier(badAudience)
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_RejectsNoneAlgorithm(t *testing.T) {
	cfg := testJWTConfig()

	now := time.Now()
	claims := jwt.MapClaims{
		"id":  "1",
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"exp": now.Add(time.Hour).Unix(),
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	verifier, err := NewTokenVerifier(cfg)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_BadIdentityClaims(t *testing.T) {
	cfg := testJWTConfig()
	verifier, err := NewTokenVerifier(cfg)
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
		require.NoError(t, err)
		return token
	}

	base := func() jwt.MapClaims {
		now := time.Now()
		return jwt.MapClaims{
			"iss": cfg.Issuer,
			"aud": cfg.Audience,
			"nbf": now.Unix(),
			"exp": now.Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{"missing id claim", func(c jwt.MapClaims) {}},
		{"non-numeric id claim", func(c jwt.MapClaims) { c["id"] = "abc" }},
		{"non-string id claim", func(c jwt.MapClaims) { c["id"] = 12.0 }},
		{"zero id claim", func(c jwt.MapClaims) { c["id"] = "0" }},
		{"negative id claim", func(c jwt.MapClaims) { c["id"] = "-3" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := base()
			tt.mutate(claims)

			// A well-signed token with a broken identity claim is still
			// an invalid token, never a default identity.
			_, err := verifier.Verify(sign(claims))
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenVerifier_MissingExpiry(t *testing.T) {
	cfg := testJWTConfig()
	verifier, err := NewTokenVerifier(cfg)
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"id":  "1",
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_Garbage(t *testing.T) {
	verifier, err := NewTokenVerifier(testJWTConfig())
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := verifier.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
