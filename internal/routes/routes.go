package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerbus/ledgerbus/internal/config"
	"github.com/ledgerbus/ledgerbus/internal/events"
	"github.com/ledgerbus/ledgerbus/internal/history"
	"github.com/ledgerbus/ledgerbus/internal/ledger"
	"github.com/ledgerbus/ledgerbus/internal/middleware"
	"github.com/ledgerbus/ledgerbus/internal/profile"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher events.Publisher
	Profiles  profile.Client
	Logger    *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewMemoryStore()
	}
	numbers := ledger.NewNumberGenerator(store, d.Cfg.NumberAttempts)
	ledgerSvc := ledger.NewService(store, numbers, d.Publisher, d.Profiles, d.Logger)
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	var historyRepo history.Repository
	if d.DB != nil {
		historyRepo = history.NewPostgresRepository(d.DB)
	} else {
		historyRepo = history.NewMemoryRepository()
	}
	historySvc := history.NewService(historyRepo, d.Publisher)
	historyHandler := history.NewHandler(historySvc)

	api := app.Group("/api/v1")
	RegisterAccountRoutes(api, ledgerHandler)
	RegisterTransactionRoutes(api, historyHandler)

	return nil
}
