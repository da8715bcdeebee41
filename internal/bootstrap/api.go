package bootstrap

import (
	"billsync/adapter/in/http"
	"billsync/config"
	"billsync/infra/middleware"
	"billsync/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "billsync-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),

		// go-json: faster JSON codec than encoding/json
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,
		BodyLimit:       1 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Health checks
	healthHandler := http.NewHealthHandler(deps.DB, deps.MongoDB, deps.MailProvider)
	healthHandler.Register(app)

	// API routes
	api := app.Group("/api")

	syncHandler := http.NewSyncHandler(deps.Engine)
	syncHandler.Register(api)

	// Development-only probe endpoints
	if !cfg.IsProduction() {
		RegisterDevRoutes(app, deps)
		logger.Info("Development probe routes enabled")
	}

	// Background scheduler
	if deps.Scheduler != nil {
		deps.Scheduler.Start()
		schedulerStop := deps.Scheduler.Stop
		prev := cleanup
		cleanup = func() {
			schedulerStop()
			prev()
		}
	}

	return app, cleanup, nil
}
