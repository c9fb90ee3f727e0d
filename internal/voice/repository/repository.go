package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"outreach_backend/internal/ai"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("call session not found")

// Session statuses.
const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Call directions.
const (
	DirectionOutbound = "OUTBOUND"
	DirectionInbound  = "INBOUND"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Session is one telephone conversation. All state lives here because the
// webhook handlers are stateless; every turn loads, mutates and persists the
// session row.
type Session struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	Direction       string
	Status          string
	StepIndex       int
	History         []ai.Turn
	LastPrompt      *string
	LastResponse    *string
	ProviderCallSID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s Session) Terminal() bool {
	return s.Status != StatusActive
}

const sessionColumns = `
	id, lead_id, direction, status, step_index, history,
	last_prompt, last_response, provider_call_sid, created_at, updated_at
`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	var history []byte
	err := row.Scan(
		&s.ID, &s.LeadID, &s.Direction, &s.Status, &s.StepIndex, &history,
		&s.LastPrompt, &s.LastResponse, &s.ProviderCallSID, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if err := json.Unmarshal(history, &s.History); err != nil {
		return Session{}, err
	}
	return s, nil
}

type CreateSessionParams struct {
	LeadID          uuid.UUID
	Direction       string
	ProviderCallSID *string
}

func (r *Repository) Create(ctx context.Context, params CreateSessionParams) (Session, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO call_sessions (lead_id, direction, provider_call_sid)
		VALUES ($1, $2, $3)
		RETURNING `+sessionColumns,
		params.LeadID, params.Direction, params.ProviderCallSID,
	)
	return scanSession(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM call_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *Repository) GetByProviderCallSID(ctx context.Context, callSID string) (Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM call_sessions
		WHERE provider_call_sid = $1
		ORDER BY created_at DESC LIMIT 1
	`, callSID)
	return scanSession(row)
}

func (r *Repository) SetProviderCallSID(ctx context.Context, id uuid.UUID, callSID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_sessions SET provider_call_sid = $2, updated_at = now() WHERE id = $1
	`, id, callSID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveTurn persists the full conversational state in one statement. It must
// succeed before any TwiML carrying the new prompt leaves the handler.
func (r *Repository) SaveTurn(ctx context.Context, s Session) (Session, error) {
	history, err := json.Marshal(s.History)
	if err != nil {
		return Session{}, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE call_sessions SET
			status = $2, step_index = $3, history = $4,
			last_prompt = $5, last_response = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+sessionColumns,
		s.ID, s.Status, s.StepIndex, history, s.LastPrompt, s.LastResponse,
	)
	return scanSession(row)
}

// Complete marks the session terminal. Completing an already terminal
// session is a no-op so duplicate status callbacks stay idempotent.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, status string) (Session, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE call_sessions SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+sessionColumns,
		id, status, StatusActive,
	)
	s, err := scanSession(row)
	if errors.Is(err, ErrNotFound) {
		// Either missing or already terminal; disambiguate.
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return Session{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

// ListStale returns active sessions untouched since the cutoff. The sweeper
// fails these; the provider never sent a terminal callback.
func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM call_sessions
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC LIMIT $3
	`, StatusActive, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return sessions, nil
}
