package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/taskhive/todo-api/internal/auth"
	"github.com/taskhive/todo-api/internal/metrics"
	"github.com/taskhive/todo-api/internal/models"
	"github.com/taskhive/todo-api/internal/store"
	apperrors "github.com/taskhive/todo-api/pkg/errors"
)

// AuthHandler handles login and registration.
type AuthHandler struct {
	users     store.UserStore
	passwords auth.PasswordScheme
	issuer    *auth.TokenIssuer
	logger    *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users store.UserStore, passwords auth.PasswordScheme, issuer *auth.TokenIssuer, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		passwords: passwords,
		issuer:    issuer,
		logger:    logger,
	}
}

// Login authenticates a user and returns a bearer token. The response
// never distinguishes an unknown username from a wrong password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.Credentials
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeBadRequest), "Invalid request body")
	}

	user, err := h.users.FindByUsername(c.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.WithError(err).Error("User lookup failed")
			return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Internal server error")
		}
		metrics.RecordAuthFailure("credentials")
		h.logger.WithField("username", req.Username).Warn("Login failed")
		return respondError(c, fiber.StatusUnauthorized, string(apperrors.CodeUnauthenticated), "Invalid username or password")
	}

	if err := h.passwords.Compare(user.Password, req.Password); err != nil {
		metrics.RecordAuthFailure("credentials")
		h.logger.WithField("username", req.Username).Warn("Login failed")
		return respondError(c, fiber.StatusUnauthorized, string(apperrors.CodeUnauthenticated), "Invalid username or password")
	}

	token, expiresIn, err := h.issuer.Issue(user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Failed to generate token")
	}

	metrics.RecordTokenIssued("login")
	h.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User logged in")

	return c.JSON(models.TokenResponse{Token: token, ExpiresIn: expiresIn})
}

// Register creates a user and, like login, returns a bearer token
// immediately.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.Credentials
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeBadRequest), "Invalid request body")
	}

	if req.Username == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeBadRequest), "Username and password are required")
	}

	taken, err := store.UsernameExists(c.Context(), h.users, req.Username)
	if err != nil {
		h.logger.WithError(err).Error("User lookup failed")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Internal server error")
	}
	if taken {
		return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeUserExists), "User already exists")
	}

	stored, err := h.passwords.Hash(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("Failed to process password")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Failed to process password")
	}

	user, err := h.users.Create(c.Context(), &models.User{
		Username: req.Username,
		Password: stored,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeUserExists), "User already exists")
		}
		h.logger.WithError(err).Error("Failed to create user")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Failed to create user")
	}

	token, expiresIn, err := h.issuer.Issue(user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Failed to generate token")
	}

	metrics.RecordTokenIssued("register")
	h.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	return c.JSON(models.TokenResponse{Token: token, ExpiresIn: expiresIn})
}
