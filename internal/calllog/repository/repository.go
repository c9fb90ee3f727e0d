package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("call log not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CallLog struct {
	ID                   uuid.UUID
	LeadID               uuid.UUID
	Direction            string
	Status               string
	ProviderCallSID      *string
	Transcript           *string
	Outcome              *string
	DemoAccepted         *bool
	DurationSec          *int
	RecordingURL         *string
	ArchivedRecordingKey *string
	GatherData           []byte
	FollowUpAt           *time.Time
	Notes                *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type UpsertParams struct {
	LeadID          uuid.UUID
	Direction       string
	Status          string
	ProviderCallSID *string
	Transcript      *string
	Outcome         *string
	DemoAccepted    *bool
	GatherData      []byte
}

// StatusParams carries the provider progress fields applied by SID.
type StatusParams struct {
	ProviderCallSID string
	Status          string
	DurationSec     *int
	RecordingURL    *string
	Notes           *string
}

const callLogColumns = `
	id, lead_id, direction, status, provider_call_sid, transcript, outcome,
	demo_accepted, duration, recording_url, archived_recording_key,
	gather_data, follow_up_at, notes, created_at, updated_at
`

func scanCallLog(row pgx.Row) (CallLog, error) {
	var cl CallLog
	err := row.Scan(
		&cl.ID, &cl.LeadID, &cl.Direction, &cl.Status, &cl.ProviderCallSID,
		&cl.Transcript, &cl.Outcome, &cl.DemoAccepted, &cl.DurationSec,
		&cl.RecordingURL, &cl.ArchivedRecordingKey, &cl.GatherData,
		&cl.FollowUpAt, &cl.Notes, &cl.CreatedAt, &cl.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CallLog{}, ErrNotFound
	}
	return cl, err
}

// Upsert converges on one row per provider call SID. Repeat writes for the
// same call update in place; later writes never blank out fields an earlier
// one filled (COALESCE keeps the old value when the new one is NULL). Rows
// without a SID insert plainly; the provider failed before assigning one.
func (r *Repository) Upsert(ctx context.Context, params UpsertParams) (CallLog, error) {
	if params.ProviderCallSID == nil {
		return r.insert(ctx, params)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO call_logs (
			lead_id, direction, status, provider_call_sid, transcript,
			outcome, demo_accepted, gather_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_call_sid) WHERE provider_call_sid IS NOT NULL
		DO UPDATE SET
			status = EXCLUDED.status,
			transcript = COALESCE(EXCLUDED.transcript, call_logs.transcript),
			outcome = COALESCE(EXCLUDED.outcome, call_logs.outcome),
			demo_accepted = COALESCE(EXCLUDED.demo_accepted, call_logs.demo_accepted),
			gather_data = COALESCE(EXCLUDED.gather_data, call_logs.gather_data),
			updated_at = now()
		RETURNING `+callLogColumns,
		params.LeadID, params.Direction, params.Status, params.ProviderCallSID,
		params.Transcript, params.Outcome, params.DemoAccepted, params.GatherData,
	)
	return scanCallLog(row)
}

func (r *Repository) insert(ctx context.Context, params UpsertParams) (CallLog, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO call_logs (
			lead_id, direction, status, provider_call_sid, transcript,
			outcome, demo_accepted, gather_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+callLogColumns,
		params.LeadID, params.Direction, params.Status, params.ProviderCallSID,
		params.Transcript, params.Outcome, params.DemoAccepted, params.GatherData,
	)
	return scanCallLog(row)
}

// UpdateBySID applies provider progress data to the row owned by a call SID.
// Only status, duration, recording URL and notes move; transcript and
// outcome stay with Upsert.
func (r *Repository) UpdateBySID(ctx context.Context, params StatusParams) (CallLog, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE call_logs SET
			status = $2,
			duration = COALESCE($3, duration),
			recording_url = COALESCE($4, recording_url),
			notes = COALESCE($5, notes),
			updated_at = now()
		WHERE provider_call_sid = $1
		RETURNING `+callLogColumns,
		params.ProviderCallSID, params.Status, params.DurationSec,
		params.RecordingURL, params.Notes,
	)
	return scanCallLog(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (CallLog, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+callLogColumns+` FROM call_logs WHERE id = $1`, id)
	return scanCallLog(row)
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]CallLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+callLogColumns+` FROM call_logs
		WHERE lead_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]CallLog, 0)
	for rows.Next() {
		cl, err := scanCallLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, cl)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return logs, nil
}

// SetArchivedRecordingKey records where the archived copy of the recording
// landed in object storage.
func (r *Repository) SetArchivedRecordingKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_logs SET archived_recording_key = $2, updated_at = now() WHERE id = $1
	`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
