package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/taskhive/todo-api/internal/config"
	"github.com/taskhive/todo-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken collapses every verification failure (bad signature,
// wrong issuer or audience, expired, malformed claims) into one outward
// signal so callers cannot probe why a token was rejected.
var ErrInvalidToken = errors.New("token validation failed")

// Identity is the verified claim set attached to a request after the
// bearer token checks out.
type Identity struct {
	UserID int64
	Name   string
}

// TokenIssuer mints signed bearer tokens for authenticated users.
type TokenIssuer struct {
	cfg   *config.JWTConfig
	clock func() time.Time
}

// NewTokenIssuer creates a token issuer. The signing key is checked
// here so a missing secret is a construction error, not a per-request one.
func NewTokenIssuer(cfg *config.JWTConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token issuer requires a signing secret")
	}
	return &TokenIssuer{cfg: cfg, clock: time.Now}, nil
}

// Issue builds and signs a token for the user. Returns the compact JWT
// and its validity window in seconds.
func (i *TokenIssuer) Issue(user *models.User) (string, int, error) {
	now := i.clock()
	expiresAt := now.Add(i.cfg.TTL)

	name := user.Username
	if name == "" {
		name = "Unknown"
	}

	claims := jwt.MapClaims{
		"id":   strconv.FormatInt(user.ID, 10),
		"name": name,
		"iss":  i.cfg.Issuer,
		"aud":  i.cfg.Audience,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, int(i.cfg.TTL.Seconds()), nil
}

// TokenVerifier validates self-issued HS256 tokens. Verification is
// pure computation against the injected config; it never touches
// storage.
type TokenVerifier struct {
	cfg   *config.JWTConfig
	clock func() time.Time
}

// NewTokenVerifier creates a verifier bound to the same signing config
// as the issuer.
func NewTokenVerifier(cfg *config.JWTConfig) (*TokenVerifier, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token verifier requires a signing secret")
	}
	return &TokenVerifier{cfg: cfg, clock: time.Now}, nil
}

// Verify checks signature, issuer, audience and the validity window,
// then extracts the identity claims. A missing or unparsable id claim
// is an authentication anomaly and fails hard; it is never defaulted.
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(v.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}

	return IdentityFromClaims(claims)
}

// IdentityFromClaims extracts the identity from an already-verified
// claim set. Shared by the HS256 verifier and the JWKS validation path.
func IdentityFromClaims(claims jwt.MapClaims) (*Identity, error) {
	raw, ok := claims["id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: id claim missing", ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: id claim %q is not a valid user id", ErrInvalidToken, raw)
	}

	identity := &Identity{UserID: userID}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}
