package scheduler

import (
	"context"
	"fmt"

	"outreach_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueArchive implements the voice module's RecordingArchiver port.
func (c *Client) EnqueueArchive(ctx context.Context, callLogID uuid.UUID, recordingURL string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewRecordingArchiveTask(RecordingArchivePayload{
		CallLogID:    callLogID.String(),
		RecordingURL: recordingURL,
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

// EnqueueChannelSync queues one sync run across the given channels.
func (c *Client) EnqueueChannelSync(ctx context.Context, channels []string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewChannelSyncTask(ChannelSyncPayload{Channels: channels})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// EnqueueSessionSweep queues one pass over stale active call sessions.
func (c *Client) EnqueueSessionSweep(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	_, err := c.client.EnqueueContext(ctx, NewSessionSweepTask(), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
