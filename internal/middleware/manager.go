package middleware

import (
	"fmt"

	"github.com/taskhive/todo-api/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Manager holds all middleware instances. Idempotency and its Redis
// client are nil when the replay cache is disabled.
type Manager struct {
	Auth        *AuthMiddleware
	ErrorLogger *ErrorLoggerMiddleware
	Idempotency *IdempotencyMiddleware
	RedisClient *redis.Client
	Config      *config.Config
	Logger      *logrus.Logger
}

// NewManager creates a new middleware manager with all middleware initialized
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	authMiddleware, err := NewAuthMiddleware(&cfg.JWT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	m := &Manager{
		Auth:        authMiddleware,
		ErrorLogger: NewErrorLoggerMiddleware(logger),
		Config:      cfg,
		Logger:      logger,
	}

	if cfg.Idempotency.Enabled {
		redisClient, err := NewRedisClient(&cfg.Redis, &cfg.AWS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		m.RedisClient = redisClient
		m.Idempotency = NewIdempotencyMiddleware(redisClient, logger, cfg.Idempotency.TTL)
	}

	return m, nil
}

// Close closes all middleware resources
func (m *Manager) Close() error {
	if m.RedisClient != nil {
		return m.RedisClient.Close()
	}
	return nil
}
