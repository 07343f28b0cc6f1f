package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/civicpulse/civicpulse/internal"
	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/email"
	"github.com/civicpulse/civicpulse/internal/handler"
	"github.com/civicpulse/civicpulse/internal/jobs"
	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/civicpulse/civicpulse/internal/middleware"
	"github.com/civicpulse/civicpulse/internal/otp"
	"github.com/civicpulse/civicpulse/internal/realtime"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/civicpulse/civicpulse/internal/scheduler"
	"github.com/civicpulse/civicpulse/internal/service"
	"github.com/civicpulse/civicpulse/internal/storage"
	"github.com/civicpulse/civicpulse/internal/worker"
)

// attachmentURLExpiry bounds presigned links when R2 has no public domain.
const attachmentURLExpiry = time.Hour

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	store := repository.NewStore(db)

	// Redis backs one-time codes and live push when configured; a single
	// process falls back to in-memory equivalents.
	var (
		codeStore otp.Store
		broker    realtime.Broker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		codeStore = otp.NewRedisStore(rdb)
		broker = realtime.NewRedisBroker(rdb, logger)
		logger.Info("Redis ready")
	} else {
		codeStore = otp.NewMemoryStore()
		broker = realtime.NewHub()
		logger.Warn("REDIS_URL not set, using in-process code store and notification hub")
	}

	// Attachment storage
	files, err := storage.New(storage.Config{
		Provider: cfg.StorageProvider,
		Local: storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Outbound mail
	mailer, err := newEmailService(cfg, logger)
	if err != nil {
		return fmt.Errorf("email initialization failed: %w", err)
	}

	// Initialize services
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return fmt.Errorf("token issuer initialization failed: %w", err)
	}

	var codeSender otp.Sender = otp.MailSender{Email: mailer}
	if cfg.IsDevelopment() {
		codeSender = otp.LogSender{Logger: logger}
	}
	codes := otp.NewService(codeStore, codeSender, cfg.OTPTTL, logger)

	attachments := service.NewAttachmentStore(files, service.NewImagingProcessor(), attachmentURLExpiry, logger)
	notifier := service.NewNotifier(store, logger,
		service.WithPublisher(broker),
		service.WithMailMirror(cfg.MailNotificationsEnabled),
	)
	complaintService := service.NewComplaintService(
		store,
		service.NewAuditLog(store, logger),
		notifier,
		service.NewOfficerMetrics(logger),
		attachments,
		cfg.GeofenceRadiusMeters,
		logger,
	)
	categoryService := service.NewCategoryService(store, logger)
	userService := service.NewUserService(store, cfg.BaseURL, logger)
	accountService := service.NewAccountService(userService, store, codes, logger)

	if cfg.SeedAdminEmail != "" {
		if err := seedAdmin(ctx, userService, cfg, logger); err != nil {
			return err
		}
	}

	// Background job worker
	var jobWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig().WithOverrides(worker.Config{
			Concurrency:  cfg.WorkerConcurrency,
			PollInterval: cfg.WorkerPollInterval,
			JobTimeout:   cfg.WorkerJobTimeout,
		})

		jobWorker, err = worker.New(store, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		jobWorker.Register(jobs.NewSendEmailHandler(mailer, cfg.MailProvider, logger))
		jobWorker.Start(ctx)
	}

	// Maintenance schedule
	var recoverer scheduler.JobRecoverer
	if jobWorker != nil {
		recoverer = jobWorker
	}
	maintenance := scheduler.New(store, codes, recoverer, scheduler.DefaultConfig(), logger)
	if err := maintenance.Start(ctx); err != nil {
		return fmt.Errorf("scheduler initialization failed: %w", err)
	}

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(tokens, logger)
	authLimiter := middleware.NewAuthRateLimiter(logger)
	defer authLimiter.Close()
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus scrape endpoint
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Locally stored attachments
	if local, ok := files.(*storage.LocalStorage); ok {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.BasePath()))))
	}

	handler.NewAuthHandler(accountService, userService, tokens, authLimiter, logger).
		RegisterRoutes(mux, handler.AuthRoutes{
			RequireUser: requireUser,
			LimitLogin:  authLimiter.LimitLogin,
			LimitSignup: authLimiter.LimitSignup,
			LimitCodes:  authLimiter.LimitCodes,
		})
	handler.NewComplaintHandler(complaintService, categoryService, attachments, logger).
		RegisterRoutes(mux, requireUser, authMw.RequireRole)
	handler.NewUserHandler(userService, logger).
		RegisterRoutes(mux, requireUser, authMw.RequireRole)
	handler.NewNotificationHandler(ctx, notifier, broker, tokens, logger).
		RegisterRoutes(mux, requireUser)

	// Global middleware, outermost first
	global := middleware.Stack(
		metrics.Middleware,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		middleware.NewSecurityHeadersMiddleware(!cfg.IsDevelopment()).Handler,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           global(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	maintenance.Stop()
	if jobWorker != nil {
		jobWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func newEmailService(cfg *internal.Config, logger *slog.Logger) (email.EmailService, error) {
	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, err
	}

	switch cfg.MailProvider {
	case "sendgrid":
		sg, err := email.NewSendGridEmailService(email.SendGridConfig{
			APIKey:   cfg.SendGridAPIKey,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, cfg.OpsMailbox, renderer, logger)
		if err != nil {
			return nil, err
		}
		return sg, nil
	default:
		return email.NewSMTPEmailService(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, cfg.OpsMailbox, renderer, logger), nil
	}
}

func seedAdmin(ctx context.Context, users service.UserService, cfg *internal.Config, logger *slog.Logger) error {
	if cfg.SeedAdminPassword == "" {
		return errors.New("SEED_ADMIN_PASSWORD is required when SEED_ADMIN_EMAIL is set")
	}
	admin, created, err := users.SeedAdmin(ctx, cfg.SeedAdminName, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		logger.Info("Seeded administrator", "user_id", admin.ID, "email", admin.Email)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
