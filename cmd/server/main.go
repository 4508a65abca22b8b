package main

import (
	"context"   // Context for startup and shutdown
	"errors"    // Error matching
	"io/fs"     // Locale file system
	"net/http"  // HTTP server
	"os"        // Locale directory override
	"os/signal" // Shutdown signals
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"accrual_system/internal/accrual"    // Wallet accrual scheduler
	"accrual_system/internal/admin"      // Admin mutations
	"accrual_system/internal/api"        // Custom package for API handlers
	"accrual_system/internal/config"     // Custom package for configuration
	"accrual_system/internal/db"         // SQL backends
	"accrual_system/internal/domain"     // Domain models
	"accrual_system/internal/i18n"       // Message translation
	"accrual_system/internal/ledger"     // Ledger store
	"accrual_system/internal/middleware" // Custom package for middleware
	"accrual_system/internal/service"    // Command dispatch
	"accrual_system/internal/session"    // Session management
	"accrual_system/internal/storage"    // Blob backends

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// setupLogger configures logrus from cfg
func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true}) // Human-readable logs
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine-readable logs in production
	}
	level, err := logrus.ParseLevel(cfg.LogLevel) // Parse configured level
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// openBlob connects the configured ledger backend
func openBlob(ctx context.Context, cfg *config.Config) (storage.Blob, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logrus.Warn("Using in-memory store, data is lost on exit")
		return storage.NewMemoryBlob(), nil
	case config.BackendRedis:
		// Setup Redis client
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return storage.NewRedisBlob(redisClient, cfg.StoreKey), nil
	case config.BackendMySQL, config.BackendPostgres:
		gdb, err := db.Open(cfg) // Connect to the SQL database
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(gdb); err != nil {
			return nil, err
		}
		return storage.NewSQLBlob(gdb, cfg.StoreKey), nil
	default:
		return nil, errors.New("unknown STORE_BACKEND " + cfg.StoreBackend)
	}
}

// locales returns the locale files, preferring cfg.LocalesDir when set
func locales(cfg *config.Config) fs.FS {
	if cfg.LocalesDir != "" {
		return os.DirFS(cfg.LocalesDir)
	}
	return i18n.Locales()
}

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	setupLogger(cfg)           // Setup logger

	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err) // Refuse to start misconfigured
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blob, err := openBlob(ctx, cfg) // Ledger persistence
	if err != nil {
		logrus.Fatalf("failed to open store: %v", err)
	}
	mode, err := ledger.ParseMode(cfg.ConsistencyMode) // Conflict handling
	if err != nil {
		logrus.Fatal(err)
	}
	store := ledger.NewStore(blob, ledger.Options{Mode: mode, Retries: cfg.WriteRetries})

	// Seed the administrator on first start
	hash, err := session.HashPassword(cfg.AdminPassword)
	if err != nil {
		logrus.Fatalf("failed to hash admin password: %v", err)
	}
	seeded, err := store.Init(ctx, domain.User{Email: cfg.AdminEmail, Username: cfg.AdminUsername, Password: hash}, cfg.DefaultLang)
	if err != nil {
		logrus.Fatalf("failed to initialize store: %v", err)
	}
	if seeded {
		logrus.WithField("email", cfg.AdminEmail).Info("Seeded administrator")
	}

	tr := i18n.New(locales(cfg), store) // Translator
	if _, err := tr.Restore(ctx); err != nil {
		logrus.Fatalf("failed to load locale: %v", err)
	}

	// Every accrual tick and mutation is reported here
	notify := accrual.NotifierFunc(func(u domain.User) {
		logrus.WithFields(logrus.Fields{"user_id": u.ID, "balance": u.TotalBalance()}).Debug("Dashboard refreshed")
	})
	sched := accrual.New(store, accrual.Config{
		Rate:     cfg.EarnRate,     // Credit per tick
		Interval: cfg.EarnInterval, // Tick interval
		Notifier: notify,           // Refresh hook
	})
	svc := service.New(store, session.NewManager(store), sched,
		admin.NewMutator(store, func() int64 { return time.Now().UnixMilli() }),
		notify,
		service.Config{MinWithdrawal: cfg.MinWithdrawal},
	)
	defer svc.Close() // Stop accrual on exit

	// Resume a persisted session
	if sess, err := svc.Resume(ctx); err == nil {
		logrus.WithField("user_id", sess.UserID()).Info("Resumed session")
	} else if !errors.Is(err, domain.ErrNoSession) {
		logrus.WithError(err).Warn("could not resume session")
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.New()                                    // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger()) // Panic recovery and request logging

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	api.RegisterRoutes(r, svc, store, tr, cfg.JWTSecret) // Mount endpoints

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done() // Wait for a shutdown signal
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
