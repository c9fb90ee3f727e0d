package scheduler

import (
	"context"
	"time"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

const sweepInterval = time.Minute

// Poller periodically enqueues the recurring jobs: ad-channel sync at the
// configured interval and the stale session sweep every minute.
type Poller struct {
	client       *Client
	syncInterval time.Duration
	log          *logger.Logger
}

func NewPoller(client *Client, cfg config.SchedulerConfig, log *logger.Logger) *Poller {
	interval := cfg.GetSyncPollInterval()
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Poller{
		client:       client,
		syncInterval: interval,
		log:          log,
	}
}

func (p *Poller) Run(ctx context.Context) {
	if p == nil || p.client == nil {
		return
	}

	syncTicker := time.NewTicker(p.syncInterval)
	defer syncTicker.Stop()
	sweepTicker := time.NewTicker(sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			if err := p.client.EnqueueChannelSync(ctx, nil); err != nil {
				p.log.Error("enqueue channel sync failed", "error", err)
			}
		case <-sweepTicker.C:
			if err := p.client.EnqueueSessionSweep(ctx); err != nil {
				p.log.Error("enqueue session sweep failed", "error", err)
			}
		}
	}
}
