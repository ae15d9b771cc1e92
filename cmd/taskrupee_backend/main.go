package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/TaskRupee/task_rupee_app/internal/core/services"
	"github.com/TaskRupee/task_rupee_app/internal/handlers"
	"github.com/TaskRupee/task_rupee_app/internal/jobs"
	"github.com/TaskRupee/task_rupee_app/internal/middleware"
	"github.com/TaskRupee/task_rupee_app/internal/notifications"
	"github.com/TaskRupee/task_rupee_app/internal/platform/config"
	"github.com/TaskRupee/task_rupee_app/internal/repositories/database/pgsql"
	"github.com/TaskRupee/task_rupee_app/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"
)

// @title TaskRupee Backend API
// @version 1.0
// @description Ledger and workflow core for the TaskRupee membership platform.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	runMigrations(cfg, logger)

	// River queue migrations run against the same database
	riverMigrator, err := rivermigrate.New(riverpgxv5.New(dbPool), nil)
	if err != nil {
		logger.Error("Failed to create River migrator", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if _, err := riverMigrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		logger.Error("River migrate up failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("River migrations applied.")

	// Notification emitter: AMQP when configured, no-op otherwise. A broker
	// outage at startup degrades to discarded notifications, never a crash.
	var notifier portssvc.Notifier = portssvc.NopNotifier{}
	if cfg.AMQPURL != "" {
		publisher, err := notifications.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker, notifications disabled", slog.String("error", err.Error()))
		} else {
			defer publisher.Close()
			notifier = publisher
			logger.Info("AMQP notification publisher connected.")
		}
	}

	repos := pgsql.NewRepositoryProvider(dbPool)
	serviceContainer, withdrawalSvc := services.NewServiceContainer(*repos, notifier)

	// Settlement worker and queue client. The insert closure is bound after
	// the client exists because the client needs the worker, and the worker
	// needs the withdrawal service.
	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewSettlementWorker(withdrawalSvc))

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.SettlementMaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		logger.Error("Failed to create River client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	withdrawalSvc.BindSettlementEnqueuer(func(ctx context.Context, tx pgx.Tx, args jobs.SettlementArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	})

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			logger.Error("River client stopped", slog.String("error", err.Error()))
		}
	}()

	// Periodic jobs
	scheduler := jobs.NewScheduler(serviceContainer.Account, logger, cfg.TierExpirySchedule)
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, cors)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	submitLimiter := newSubmitLimiter(cfg, logger)

	handlers.RegisterRoutes(r, cfg, serviceContainer, submitLimiter)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies the schema migrations over a short-lived database/sql
// connection; the pgx pool stays dedicated to the application.
func runMigrations(cfg *config.Config, logger *slog.Logger) {
	logger.Info("Running database migrations...")
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := migrationDB.Ping(); err != nil {
		logger.Error("Failed to ping database for migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
		os.Exit(1)
	}
	if dbErr != nil {
		logger.Error("Migration database error", slog.String("error", dbErr.Error()))
		os.Exit(1)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
}

// newSubmitLimiter builds the per-IP rate limiter guarding withdrawal
// submission. A bad format disables the limiter rather than failing startup.
func newSubmitLimiter(cfg *config.Config, logger *slog.Logger) *limiter.Limiter {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid RATE_LIMIT format, submission rate limiting disabled", slog.String("error", err.Error()))
		return nil
	}
	return limiter.New(limitermem.NewStore(), rate)
}
