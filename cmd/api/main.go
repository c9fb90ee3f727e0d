package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/ai"
	"outreach_backend/internal/auth"
	"outreach_backend/internal/calllog"
	calllogrepo "outreach_backend/internal/calllog/repository"
	"outreach_backend/internal/channels"
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/http/router"
	"outreach_backend/internal/leads"
	"outreach_backend/internal/notification"
	"outreach_backend/internal/recordings"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/voice"
	"outreach_backend/migrations"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	redisClient, closeRedis := initRedis(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	taskClient, closeTaskClient := initTaskClient(cfg, log)
	if closeTaskClient != nil {
		defer closeTaskClient()
	}

	generator := initGenerator(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Call log reconciler receives conversation turns and provider status
	// callbacks from the voice module and converges them into call history.
	callLogRepo := calllogrepo.New(pool)
	reconciler := calllog.NewReconciler(callLogRepo, log)

	var archiver *recordings.Archiver
	if cfg.IsMinIOEnabled() {
		archiver, err = recordings.NewArchiver(cfg, cfg, callLogRepo, log)
		if err != nil {
			log.Error("failed to initialize recording archiver", "error", err)
			panic("failed to initialize recording archiver: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure recordings bucket", 5, 2*time.Second, func() error {
			return archiver.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure recordings bucket exists", "error", err)
			panic("failed to ensure recordings bucket exists: " + err.Error())
		}
		log.Info("recording archiver initialized", "bucket", cfg.GetMinioBucketRecordings())
	}

	authModule, err := auth.NewModule(ctx, pool, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize auth module", "error", err)
		panic("failed to initialize auth module: " + err.Error())
	}

	leadsModule := leads.NewModule(pool, eventBus, val, log, cfg.GetDefaultPreferredExam(), nil)

	syncer := channels.NewSyncer(
		leadsModule.Service(),
		log,
		channels.NewFacebookFetcher(cfg, log),
		channels.NewGoogleAdsFetcher(cfg, log),
	)
	if syncer.HasEnabledChannels() {
		leadsModule.SetSyncer(syncer)
	}

	voiceModule, err := voice.NewModule(pool, redisClient, cfg, leadsModule.Service(), reconciler, generator, eventBus, log)
	if err != nil {
		log.Error("failed to initialize voice module", "error", err)
		panic("failed to initialize voice module: " + err.Error())
	}

	// Leads and voice depend on each other: a created lead triggers an
	// outbound call, and a connected call updates the lead. Wire the
	// originator after both modules exist.
	leadsModule.SetOriginator(voiceModule.Service())

	// Recording archival runs on the worker; the voice module only enqueues.
	if taskClient != nil && archiver != nil {
		voiceModule.Service().SetArchiver(taskClient)
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	if notificationModule := notification.NewModule(cfg, eventBus, log); notificationModule != nil {
		log.Info("demo notifications enabled", "counsellor", cfg.GetCounsellorEmail())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			leadsModule,
			voiceModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(cfg config.SchedulerConfig, log *logger.Logger) (*redis.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; session locking disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		return nil, nil
	}

	client := redis.NewClient(opt)
	return client, func() {
		_ = client.Close()
	}
}

func initTaskClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background tasks disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initGenerator(ctx context.Context, cfg config.AIConfig, log *logger.Logger) ai.Generator {
	if cfg.GetGeminiAPIKey() == "" {
		log.Warn("GEMINI_API_KEY not configured; calls fall back to scripted closing")
		return nil
	}

	gen, err := ai.NewGeminiGenerator(ctx, cfg.GetGeminiAPIKey(), cfg.GetGeminiModel(), cfg.GetReplyTimeout())
	if err != nil {
		log.Error("failed to initialize reply generator", "error", err)
		return nil
	}

	log.Info("reply generator initialized", "model", cfg.GetGeminiModel())
	return gen
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
