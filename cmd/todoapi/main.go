package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/taskhive/todo-api/internal/auth"
	"github.com/taskhive/todo-api/internal/config"
	"github.com/taskhive/todo-api/internal/logging"
	"github.com/taskhive/todo-api/internal/metrics"
	"github.com/taskhive/todo-api/internal/middleware"
	"github.com/taskhive/todo-api/internal/routes"
	"github.com/taskhive/todo-api/internal/store"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration; a missing signing key or bad token metadata
	// dies here, never at request time.
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logging.New(cfg)

	// Initialize metrics
	if err := metrics.Init(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize metrics")
	}

	// Initialize tracing
	tracingShutdown, err := middleware.InitTracing(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to setup tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracing")
		}
	}()

	// Token issuer and password scheme share the validated config.
	issuer, err := auth.NewTokenIssuer(&cfg.JWT)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create token issuer")
	}

	passwords, err := auth.SchemeFromName(cfg.Auth.PasswordScheme)
	if err != nil {
		logger.WithError(err).Fatal("Failed to resolve password scheme")
	}
	if cfg.Auth.PasswordScheme == "plaintext" {
		logger.Warn("Plaintext password scheme is enabled; set AUTH_PASSWORD_SCHEME=bcrypt for production")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Todo API",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": code,
			}).Error("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":     "INTERNAL_ERROR",
					"message":  "Internal server error",
					"trace_id": c.Get("X-Request-ID"),
				},
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Requested-With,Idempotency-Key",
		MaxAge:       86400,
	}))
	if cfg.Observability.TracingEnabled {
		app.Use(otelfiber.Middleware())
	}

	// Initialize middleware manager
	middlewareManager, err := middleware.NewManager(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize middleware manager")
	}
	defer middlewareManager.Close()

	// Initialize the persistence backend
	users, items, storeHealth, err := initializeStores(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}

	// Setup routes
	routes.Setup(app, routes.Deps{
		Config:      cfg,
		Logger:      logger,
		Middleware:  middlewareManager,
		Users:       users,
		Items:       items,
		Issuer:      issuer,
		Passwords:   passwords,
		StoreHealth: storeHealth,
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Gracefully shutting down...")
		if err := app.Shutdown(); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	// Start server
	logger.WithField("port", cfg.Server.Port).Info("Starting Todo API server")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}

func initializeStores(cfg *config.Config, logger *logrus.Logger) (store.UserStore, store.ItemStore, func(context.Context) error, error) {
	if cfg.Store.Backend == "memory" {
		logger.Warn("Using in-memory store; data will not survive a restart")
		mem := store.NewMemory()
		return mem.Users(), mem.Items(), mem.Ping, nil
	}

	dynamoClient, err := initializeDynamoDB(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	users := store.NewDynamoUserStore(dynamoClient, &cfg.DynamoDB, logger)
	items := store.NewDynamoItemStore(dynamoClient, &cfg.DynamoDB, logger)
	return users, items, users.Ping, nil
}

func initializeDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	ctx := context.Background()

	// Load AWS config
	var awsCfg aws.Config
	var err error

	if cfg.AWS.Profile != "" {
		// Use specific profile for local development
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithSharedConfigProfile(cfg.AWS.Profile),
		)
	} else {
		// In Kubernetes the SDK picks up IRSA credentials automatically
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	logger.WithFields(logrus.Fields{
		"region":      cfg.DynamoDB.Region,
		"users_table": cfg.DynamoDB.UsersTableName,
		"items_table": cfg.DynamoDB.ItemsTableName,
	}).Info("DynamoDB client initialized")

	return dynamoClient, nil
}
