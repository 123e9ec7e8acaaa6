// Package server assembles the authd fiber application.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	auth "github.com/dhaaraai/go-auth"
	"github.com/dhaaraai/go-auth/internal/config"
)

// Server bundles the fiber app with the services it serves
type Server struct {
	App     *fiber.App
	Auther  *auth.Auther
	Users   *auth.Users
	Tokens  *auth.TokenServiceImpl
	Metrics *auth.Metrics
}

// New wires the store, token service, authenticator, middleware and
// routes. reg receives the auth collectors and backs /metrics.
func New(settings *config.Settings, db *bun.DB, logger *slog.Logger, reg *prometheus.Registry) (*Server, error) {
	if err := settings.Auth.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	metrics := auth.NewMetrics(reg)
	users := auth.NewUsersRepository(db)
	loader := auth.NewPrincipalLoader(users, logger)
	tokens := auth.NewTokenServiceFromConfig(settings.Auth, logger)

	auther := auth.NewAuthenticator(users, tokens, auth.NewBcryptCredentialStore(settings.Auth.BcryptCost)).
		WithLogger(logger).
		WithDeterministicIDs(settings.Auth.DeterministicIDs).
		WithActivitySink(auth.ActivitySinks{metrics, activityLogger(logger)})

	app := fiber.New(fiber.Config{
		AppName:               "authd",
		DisableStartupMessage: true,
		ReadTimeout:           settings.Server.ReadTimeout,
		WriteTimeout:          settings.Server.WriteTimeout,
		ErrorHandler:          auth.NewErrorHandler(logger, settings.Debug),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: settings.Debug}))
	app.Use(requestid.New(requestid.Config{ContextKey: auth.RequestIDLocalsKey}))
	app.Use(auth.MarkRequestStart())
	app.Use(auth.NewAuthenticationMiddleware(settings.Auth, tokens, loader, logger, metrics.ObserveOutcome))
	app.Use(requestLogger(logger))

	app.Get("/healthz", healthz(db)).Name("healthz.get")
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))).Name("metrics.get")

	api := app.Group(settings.Server.BasePath)
	auth.RegisterAuthRoutes(api, auther,
		auth.WithControllerLogger(logger),
		auth.WithControllerDebug(settings.Debug),
	)
	api.Put("/users/:id/role", auth.RequireRole(auth.RoleAdmin), updateRole(users)).Name("auth.users.role.put")

	return &Server{
		App:     app,
		Auther:  auther,
		Users:   users,
		Tokens:  tokens,
		Metrics: metrics,
	}, nil
}

// requestLogger runs after the authentication middleware so the log
// handler can attach the principal from the user context.
func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var rich *goerrors.Error
			var fe *fiber.Error
			switch {
			case goerrors.As(err, &rich):
				status = auth.StatusForError(rich)
			case goerrors.As(err, &fe):
				status = fe.Code
			default:
				status = fiber.StatusInternalServerError
			}
		}

		logger.InfoContext(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
			"request_id", c.Locals(auth.RequestIDLocalsKey),
		)
		return err
	}
}

func activityLogger(logger *slog.Logger) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		logger.InfoContext(ctx, "auth activity",
			"event", string(event.EventType),
			"user_id", event.UserID,
			"metadata", event.Metadata,
		)
		return nil
	})
}

func healthz(db *bun.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// RoleRequest is the body of the role update endpoint
type RoleRequest struct {
	Role string `json:"role"`
}

func updateRole(users *auth.Users) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
		}

		var req RoleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		role, ok := auth.ParseRole(req.Role)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown role")
		}

		user, err := users.UpdateRole(c.UserContext(), id, role)
		if err != nil {
			return err
		}
		return c.JSON(user.Sanitized())
	}
}
