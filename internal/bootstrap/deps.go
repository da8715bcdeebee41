// Package bootstrap wires configuration, adapters and services together.
package bootstrap

import (
	"context"
	"os"
	"time"

	"billsync/adapter/in/worker"
	"billsync/adapter/out/mongodb"
	"billsync/adapter/out/persistence"
	"billsync/adapter/out/provider/gmail"
	"billsync/config"
	"billsync/core/port/out"
	"billsync/core/service/extract"
	"billsync/core/service/sync"
	"billsync/infra/database"
	"billsync/pkg/apperr"
	"billsync/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	MongoDB *mongo.Client

	// Repositories
	PaymentRepo *persistence.PaymentAdapter
	BillRepo    *persistence.BillAdapter
	BodyArchive *mongodb.BodyArchiveAdapter

	// Providers
	MailProvider *gmail.Adapter

	// Services
	LLMExtractor *extract.LLMExtractor
	Engine       *sync.Engine

	// Background
	Scheduler *worker.SyncScheduler
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, nil, apperr.ConfigError("DATABASE_URL is required")
	}

	// Database (pgxpool, used by readiness checks)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx, used by the record adapters)
	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	deps.PaymentRepo = persistence.NewPaymentAdapter(sqlDB)
	deps.BillRepo = persistence.NewBillAdapter(sqlDB)

	// MongoDB body archive (optional)
	var archive out.BodyArchive
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			logger.WithError(err).Warn("MongoDB connection failed, body archive disabled")
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			deps.BodyArchive = mongodb.NewBodyArchiveAdapter(mongoClient.Database(cfg.MongoDBName))
			archive = deps.BodyArchive

			idxCtx, idxCancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := deps.BodyArchive.EnsureIndexes(idxCtx); err != nil {
				logger.WithError(err).Warn("Failed to ensure body archive indexes")
			}
			idxCancel()
		}
	}

	// Gmail provider
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" || cfg.GoogleRefreshToken == "" {
		cleanup()
		return nil, nil, apperr.ConfigError("Google OAuth credentials are required")
	}
	mailProvider, err := gmail.NewAdapter(context.Background(), gmail.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.MailProvider = mailProvider

	// Extraction service
	deps.LLMExtractor = extract.NewLLMExtractor(extract.LLMConfig{
		APIKey:       cfg.GroqAPIKey,
		BaseURL:      cfg.LLMBaseURL,
		Model:        cfg.LLMModel,
		Temperature:  cfg.LLMTemperature,
		MaxBodyChars: cfg.LLMMaxBodyLen,
		TimeoutSec:   cfg.LLMTimeoutSec,
	})

	// Sync engine
	deps.Engine = sync.NewEngine(
		mailProvider,
		deps.PaymentRepo,
		deps.BillRepo,
		archive,
		deps.LLMExtractor,
		sync.Config{
			PaymentSender:  cfg.PaymentSender,
			PaymentSubject: cfg.PaymentSubject,
			BillSubject:    cfg.BillSubject,
			DefaultLimit:   cfg.SyncDefaultLimit,
			MaxLimit:       cfg.SyncMaxLimit,
			CallTimeout:    time.Duration(cfg.SyncCallTimeoutSec) * time.Second,
		},
	)

	// Background scheduler (optional)
	if cfg.SchedulerEnabled {
		zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		deps.Scheduler = worker.NewSyncScheduler(deps.Engine, cfg.SchedulerInterval, zlog)
	}

	return deps, cleanup, nil
}
