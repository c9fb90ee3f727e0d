package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	calllogrepo "outreach_backend/internal/calllog/repository"
	"outreach_backend/internal/channels"
	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/leads/service"
	"outreach_backend/internal/recordings"
	"outreach_backend/internal/scheduler"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The worker owns everything that must not block a live phone line: ad
// channel polling, recording archival and the stale session sweep. It shares
// the database with the API process and talks to it only through Redis.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if cfg.GetRedisURL() == "" {
		log.Error("REDIS_URL is required for the worker")
		panic("REDIS_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	// The worker resolves synced leads with the same service the API uses,
	// but without an originator: answer webhooks point at the API's public
	// URL, so dialing stays an API concern.
	resolver := service.New(repository.New(pool), log, cfg.GetDefaultPreferredExam())

	syncer := channels.NewSyncer(
		resolver,
		log,
		channels.NewFacebookFetcher(cfg, log),
		channels.NewGoogleAdsFetcher(cfg, log),
	)

	var archiver *recordings.Archiver
	if cfg.IsMinIOEnabled() {
		archiver, err = recordings.NewArchiver(cfg, cfg, calllogrepo.New(pool), log)
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
	}

	worker, err := scheduler.NewWorker(cfg, pool, syncer, archiver, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer client.Close()

	poller := scheduler.NewPoller(client, cfg, log)
	go poller.Run(ctx)

	worker.Run(ctx)
	log.Info("worker stopped")
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
