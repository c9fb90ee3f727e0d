package scheduler

import (
	"context"
	"fmt"
	"time"

	"outreach_backend/internal/channels"
	"outreach_backend/internal/recordings"
	voicerepo "outreach_backend/internal/voice/repository"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// staleSessionCutoff is how long an active session may sit untouched before
// the sweeper fails it. Webhook-driven calls never go quiet this long.
const staleSessionCutoff = 30 * time.Minute

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	syncer   *channels.Syncer
	archiver *recordings.Archiver
	sessions *voicerepo.Repository
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, syncer *channels.Syncer, archiver *recordings.Archiver, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		syncer:   syncer,
		archiver: archiver,
		sessions: voicerepo.New(pool),
		log:      log,
	}

	mux.HandleFunc(TaskChannelSync, w.handleChannelSync)
	mux.HandleFunc(TaskRecordingArchive, w.handleRecordingArchive)
	mux.HandleFunc(TaskSessionSweep, w.handleSessionSweep)

	return w, nil
}

func (w *Worker) handleChannelSync(ctx context.Context, task *asynq.Task) error {
	if w.syncer == nil {
		return nil
	}

	payload, err := ParseChannelSyncPayload(task)
	if err != nil {
		return err
	}

	results := w.syncer.Sync(ctx, payload.Channels)
	for _, result := range results {
		if result.Error != "" {
			w.log.Warn("scheduled sync channel failed",
				"channel", result.Channel,
				"error", result.Error,
			)
		}
	}
	return nil
}

func (w *Worker) handleRecordingArchive(ctx context.Context, task *asynq.Task) error {
	if w.archiver == nil {
		return nil
	}

	payload, err := ParseRecordingArchivePayload(task)
	if err != nil {
		return err
	}

	callLogID, err := uuid.Parse(payload.CallLogID)
	if err != nil {
		return err
	}

	return w.archiver.Archive(ctx, callLogID, payload.RecordingURL)
}

// handleSessionSweep fails active sessions whose calls ended without a
// terminal status callback ever arriving.
func (w *Worker) handleSessionSweep(ctx context.Context, task *asynq.Task) error {
	cutoff := time.Now().Add(-staleSessionCutoff)
	stale, err := w.sessions.ListStale(ctx, cutoff, 50)
	if err != nil {
		return err
	}

	for _, session := range stale {
		if _, _, err := w.sessions.Complete(ctx, session.ID, voicerepo.StatusFailed); err != nil {
			w.log.DatabaseError("sweep stale session", err)
			continue
		}
		w.log.CallEvent("swept_stale", session.ID.String(), session.StepIndex)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
