package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/censo-gate/censo_gate/internal/census"
	"github.com/censo-gate/censo_gate/internal/config"
	"github.com/censo-gate/censo_gate/internal/middleware"
	"github.com/censo-gate/censo_gate/internal/notification"
	"github.com/censo-gate/censo_gate/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Services
	var store verification.Store
	if d.DB != nil {
		store = verification.NewPostgresStore(d.DB)
	} else {
		store = verification.NewMemoryStore()
	}

	client := census.NewClient(census.Config{
		URL: d.Cfg.CensusURL,
		Credentials: census.Credentials{
			Client:   d.Cfg.CensusClient,
			Org:      d.Cfg.CensusOrg,
			Entity:   d.Cfg.CensusEntity,
			User:     d.Cfg.CensusUser,
			Password: d.Cfg.CensusPassword,
			Key:      d.Cfg.CensusKey,
		},
		Timeout: d.Cfg.CensusTimeout,
	}, d.Logger)

	digest := census.NewDigest(d.Cfg.FingerprintSecret)
	notifier := notification.NewLoggerNotifier(d.Logger)
	svc := verification.NewService(store, client, digest, notifier, d.Logger)

	// API routes
	api := app.Group("/api/v1")

	publicMiddleware := []fiber.Handler{middleware.SubmissionRateLimit(d.Cache, 5)}
	if d.Cache != nil {
		publicMiddleware = append(
			[]fiber.Handler{middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)},
			publicMiddleware...,
		)
	}
	public := api.Group("", publicMiddleware...)
	RegisterVerificationRoutes(public, svc)

	admin := api.Group("/admin", middleware.AdminAuth(d.Cfg.AdminTokenHash))
	RegisterAdminRoutes(admin, svc, d.Cfg.RecheckConcurrency)

	return nil
}
