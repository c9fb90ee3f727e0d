// Package recordings copies provider call recordings into our own object
// storage. Providers expire recordings; the archived copy is the durable one.
package recordings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// CallLogStore is the slice of the calllog repository the archiver needs.
type CallLogStore interface {
	SetArchivedRecordingKey(ctx context.Context, id uuid.UUID, key string) error
}

type Archiver struct {
	client     *minio.Client
	bucket     string
	store      CallLogStore
	http       *http.Client
	accountSID string
	authToken  string
	log        *logger.Logger
}

// NewArchiver builds the MinIO-backed archiver. Returns nil when object
// storage is not configured; callers treat a nil archiver as disabled.
func NewArchiver(storageCfg config.StorageConfig, telephonyCfg config.TelephonyConfig, store CallLogStore, log *logger.Logger) (*Archiver, error) {
	if !storageCfg.IsMinIOEnabled() {
		return nil, nil
	}

	client, err := minio.New(storageCfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(storageCfg.GetMinIOAccessKey(), storageCfg.GetMinIOSecretKey(), ""),
		Secure: storageCfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Archiver{
		client:     client,
		bucket:     storageCfg.GetMinioBucketRecordings(),
		store:      store,
		http:       &http.Client{Timeout: 60 * time.Second},
		accountSID: telephonyCfg.GetTwilioAccountSID(),
		authToken:  telephonyCfg.GetTwilioAuthToken(),
		log:        log,
	}, nil
}

// EnsureBucket creates the recordings bucket if it doesn't exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// Archive downloads the recording and streams it into the bucket, then
// stamps the object key on the call log.
func (a *Archiver) Archive(ctx context.Context, callLogID uuid.UUID, recordingURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL+".mp3", nil)
	if err != nil {
		return err
	}
	// Provider recording URLs require the account credentials.
	req.SetBasicAuth(a.accountSID, a.authToken)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("download recording: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("recording download returned %d: %s", resp.StatusCode, string(body))
	}

	key := fmt.Sprintf("recordings/%s/%s.mp3", time.Now().UTC().Format("2006/01/02"), callLogID)
	_, err = a.client.PutObject(ctx, a.bucket, key, resp.Body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return fmt.Errorf("store recording: %w", err)
	}

	if err := a.store.SetArchivedRecordingKey(ctx, callLogID, key); err != nil {
		return fmt.Errorf("stamp archived key: %w", err)
	}

	a.log.Info("recording archived", "call_log_id", callLogID.String(), "key", key)
	return nil
}

// PresignedURL returns a short-lived download link for an archived recording.
func (a *Archiver) PresignedURL(ctx context.Context, key string) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, 15*time.Minute, nil)
	if err != nil {
		return "", fmt.Errorf("presign recording: %w", err)
	}
	return u.String(), nil
}
