package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskhive/todo-api/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IdempotencyMiddleware replays cached responses for repeated
// state-changing requests carrying the same Idempotency-Key. The header
// is optional; requests without it pass straight through.
type IdempotencyMiddleware struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	ttl         time.Duration
}

type idempotencyRecord struct {
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        string    `json:"body"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewIdempotencyMiddleware(redisClient *redis.Client, logger *logrus.Logger, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		redisClient: redisClient,
		logger:      logger,
		ttl:         ttl,
	}
}

// Handle caches successful responses keyed by Idempotency-Key and
// replays them for duplicates. A duplicate key with a different request
// body is a conflict.
func (i *IdempotencyMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isIdempotentMethod(c.Method()) {
			return c.Next()
		}

		idempotencyKey := c.Get("Idempotency-Key")
		if idempotencyKey == "" {
			return c.Next()
		}

		if _, err := uuid.Parse(idempotencyKey); err != nil {
			return i.badRequestError(c, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key must be a valid UUID")
		}

		ctx := c.Context()
		redisKey := fmt.Sprintf("idempotency:%s", idempotencyKey)
		fingerprint := i.generateFingerprint(c)

		existing, err := i.getRecord(ctx, redisKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			i.logger.WithError(err).Error("Failed to get idempotency record")
			// Continue with request rather than failing
		}

		if existing != nil {
			if existing.Fingerprint != fingerprint {
				metrics.RecordIdempotencyHit("conflict")
				return i.conflictError(c, "IDEMPOTENCY_CONFLICT", "Request differs from original request with same Idempotency-Key")
			}

			metrics.RecordIdempotencyHit("hit")
			c.Set("Content-Type", existing.ContentType)
			c.Set("X-Idempotency-Replay", "true")
			return c.Status(existing.StatusCode).SendString(existing.Body)
		}

		metrics.RecordIdempotencyHit("miss")

		err = c.Next()

		// Only cache successful responses
		statusCode := c.Response().StatusCode()
		if err == nil && statusCode >= 200 && statusCode < 300 {
			record := idempotencyRecord{
				StatusCode:  statusCode,
				ContentType: string(c.Response().Header.ContentType()),
				Body:        string(c.Response().Body()),
				Fingerprint: fingerprint,
				CreatedAt:   time.Now().UTC(),
			}
			if storeErr := i.storeRecord(ctx, redisKey, &record); storeErr != nil {
				i.logger.WithError(storeErr).Error("Failed to store idempotency record")
			}
		}

		return err
	}
}

// generateFingerprint hashes method, path and body so a reused key with
// a different request can be detected.
func (i *IdempotencyMiddleware) generateFingerprint(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte(c.Path()))
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}

func (i *IdempotencyMiddleware) getRecord(ctx context.Context, key string) (*idempotencyRecord, error) {
	raw, err := i.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	return &record, nil
}

func (i *IdempotencyMiddleware) storeRecord(ctx context.Context, key string, record *idempotencyRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return i.redisClient.Set(ctx, key, raw, i.ttl).Err()
}

func isIdempotentMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	default:
		return false
	}
}

func (i *IdempotencyMiddleware) badRequestError(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     code,
			"message":  message,
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}

func (i *IdempotencyMiddleware) conflictError(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     code,
			"message":  message,
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}
