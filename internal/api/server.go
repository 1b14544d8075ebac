package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	config "github.com/maheshrc27/tupae-api/configs"
	"github.com/maheshrc27/tupae-api/internal/api/handlers"
	"github.com/maheshrc27/tupae-api/internal/api/middleware"
	"github.com/maheshrc27/tupae-api/internal/metrics"
	"github.com/maheshrc27/tupae-api/internal/service"
	"go.uber.org/zap"
)

const (
	rateLimitMax    = 100
	rateLimitWindow = 15 * time.Minute
	bodyLimit       = 110 * 1024 * 1024
)

type Services struct {
	Auth  service.AuthService
	Users service.UserService
	Keys  service.ApiKeyService
	Posts service.PostService

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

// NewApp builds the fiber application with every route mounted.
func NewApp(cfg config.Config, s Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(logger.New())
	app.Use(middleware.Metrics(s.Metrics))
	// Credentials are only allowed for an explicit origin.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.FrontendURL != "" && cfg.FrontendURL != "*",
		MaxAge:           3600,
	}))

	if s.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.MetricsHandler))
	}

	auth := handlers.NewAuthHandler(cfg, s.Auth)
	app.Get("/auth/google", auth.Login)
	app.Get("/auth/google/callback", auth.LoginCallbackHandler)
	app.Post("/auth/logout", auth.Logout)

	api := app.Group("/api")
	api.Use(limiter.New(limiter.Config{
		Max:        rateLimitMax,
		Expiration: rateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later",
			})
		},
	}))
	api.Get("/health", handlers.Health)

	authMiddleware := middleware.NewAuthMiddleware(cfg, s.Auth, s.Keys)
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(cfg, s.Users)
	api.Get("/user/info", user.GetUserInfo)
	api.Delete("/user/account", user.RemoveAccount)

	apiKeys := handlers.NewApiKeyHandler(s.Keys)
	api.Post("/keys", apiKeys.CreateApiKey)
	api.Get("/keys", apiKeys.ListKeys)
	api.Delete("/keys/:id", apiKeys.RemoveApiKey)

	handlers.NewPostHandler(s.Posts).Register(api)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	zap.S().Errorw("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
}
