package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"smart-email/internal/ai"
	"smart-email/internal/config"
	"smart-email/internal/handler"
	"smart-email/internal/logger"
	"smart-email/internal/mailbox"
	"smart-email/internal/repository"
	"smart-email/internal/repository/memory"
	"smart-email/internal/repository/postgres"
	"smart-email/internal/repository/sqlite"
	"smart-email/internal/router"
	"smart-email/internal/service"
	"smart-email/internal/token"
	"smart-email/internal/tools"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type repositories struct {
	users  repository.UserRepository
	creds  repository.CredentialRepository
	emails repository.EmailRepository
	close  func() error
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	appLogger := logger.NewWithLevel(cfg.LogLevel)
	defer appLogger.Sync()

	repos, err := openRepositories(cfg, appLogger)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer repos.close()

	// Classification: backend -> optional cache -> circuit breaker -> router
	backend := ai.New(ai.Options{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIKey,
		Model:    cfg.AIModel,
		Timeout:  cfg.AITimeout,
	}, appLogger)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Warn("Redis unreachable, classification cache will miss:", err)
		}
		cancel()

		backend = ai.NewCachedClient(backend, rdb, cfg.ClassifyCacheTTL, appLogger)
		appLogger.Info("Classification cache enabled at", cfg.RedisAddr)
	}

	backend = ai.NewBreakerClient(backend, ai.BreakerSettings{
		Name:             "classifier",
		FailureThreshold: uint32(cfg.BreakerFailureThreshold),
		Timeout:          cfg.BreakerTimeout,
	})

	toolRouter := tools.NewRouter(backend, appLogger.With("component", "tools"))

	// Mailbox access
	tokens := token.NewManager(
		repos.creds,
		token.NewGoogleRefresher(cfg.GoogleClientID, cfg.GoogleClientSecret),
		appLogger.With("component", "token"),
	)
	fetcher := mailbox.NewFetcher(
		mailbox.NewTLSConnector(cfg.IMAPAddr, cfg.IMAPDialTimeout),
		tokens,
		appLogger.With("component", "mailbox"),
	)

	// Initialize services
	authService := service.NewAuthService(repos.users, repos.creds, appLogger)
	emailService := service.NewEmailService(
		repos.emails,
		repos.users,
		repos.creds,
		fetcher,
		toolRouter,
		cfg.ClassifyConcurrency,
		appLogger.With("component", "ingestion"),
	)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	store := handler.NewSessionStore([]byte(cfg.SessionSecret), cfg.Env == "production")
	authHandler := handler.NewAuthHandler(authService, store, cfg, e.Logger)
	emailHandler := handler.NewEmailHandler(emailService, authHandler, cfg.DefaultPageSize, cfg.MaxPageSize, e.Logger)
	toolHandler := handler.NewToolHandler(toolRouter, e.Logger)

	router.SetupRoutes(e, authHandler, emailHandler, toolHandler, cfg.MCPSecret)

	// Start server
	appLogger.Info("Starting server on port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		appLogger.Error("Failed to start server:", err)
	}
}

// openRepositories picks PostgreSQL when DATABASE_URL is set, SQLite when
// SQLITE_PATH is set, and in-memory storage otherwise.
func openRepositories(cfg *config.Config, appLogger *logger.Logger) (*repositories, error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.InitializeDatabase(db); err != nil {
			db.Close()
			return nil, err
		}
		appLogger.Info("Using PostgreSQL repositories")
		return &repositories{
			users:  postgres.NewPostgresUserRepository(db),
			creds:  postgres.NewPostgresCredentialRepository(db),
			emails: postgres.NewPostgresEmailRepository(db),
			close:  db.Close,
		}, nil

	case cfg.SQLitePath != "":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
		appLogger.Info("Using SQLite repositories at", cfg.SQLitePath)
		return &repositories{
			users:  sqlite.NewUserRepository(db),
			creds:  sqlite.NewCredentialRepository(db),
			emails: sqlite.NewEmailRepository(db),
			close:  db.Close,
		}, nil

	default:
		appLogger.Info("Using in-memory repositories")
		return &repositories{
			users:  memory.NewInMemoryUserRepository(),
			creds:  memory.NewInMemoryCredentialRepository(),
			emails: memory.NewInMemoryEmailRepository(),
			close:  func() error { return nil },
		}, nil
	}
}
