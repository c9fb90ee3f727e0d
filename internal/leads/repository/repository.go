package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// ErrDuplicateIdentity is returned when an insert collides with an existing
// lead on a unique identity column (phone or source/source_id). Callers
// re-resolve and merge instead of failing the ingest.
var ErrDuplicateIdentity = errors.New("lead identity already exists")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID              uuid.UUID
	Source          string
	SourceID        *string
	FirstName       string
	LastName        *string
	Phone           string
	Email           *string
	City            *string
	StudentGrade    *string
	PreferredExam   string
	GuardianName    *string
	StudentName     *string
	CampaignName    *string
	AdGroupName     *string
	Metadata        []byte
	Status          string
	CallCount       int
	LastContactedAt *time.Time
	DemoScheduledAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateLeadParams struct {
	Source        string
	SourceID      *string
	FirstName     string
	LastName      *string
	Phone         string
	Email         *string
	City          *string
	StudentGrade  *string
	PreferredExam string
	GuardianName  *string
	StudentName   *string
	CampaignName  *string
	AdGroupName   *string
	Metadata      []byte
	Status        string
}

type UpdateLeadParams struct {
	Source        string
	SourceID      *string
	FirstName     string
	LastName      *string
	Phone         string
	Email         *string
	City          *string
	StudentGrade  *string
	PreferredExam string
	GuardianName  *string
	StudentName   *string
	CampaignName  *string
	AdGroupName   *string
	Metadata      []byte
	Status        string
}

const leadColumns = `
	id, source, source_id, first_name, last_name, phone, email, city,
	student_grade, preferred_exam, guardian_name, student_name,
	campaign_name, ad_group_name, metadata, status, call_count,
	last_contacted_at, demo_scheduled_at, created_at, updated_at
`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Source, &l.SourceID, &l.FirstName, &l.LastName, &l.Phone, &l.Email, &l.City,
		&l.StudentGrade, &l.PreferredExam, &l.GuardianName, &l.StudentName,
		&l.CampaignName, &l.AdGroupName, &l.Metadata, &l.Status, &l.CallCount,
		&l.LastContactedAt, &l.DemoScheduledAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func (r *Repository) GetByPhone(ctx context.Context, phone string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE phone = $1`, phone)
	return scanLead(row)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE email = $1
		ORDER BY created_at ASC LIMIT 1
	`, email)
	return scanLead(row)
}

func (r *Repository) GetBySourceID(ctx context.Context, source, sourceID string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE source = $1 AND source_id = $2
	`, source, sourceID)
	return scanLead(row)
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			source, source_id, first_name, last_name, phone, email, city,
			student_grade, preferred_exam, guardian_name, student_name,
			campaign_name, ad_group_name, metadata, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+leadColumns,
		params.Source, params.SourceID, params.FirstName, params.LastName,
		params.Phone, params.Email, params.City, params.StudentGrade,
		params.PreferredExam, params.GuardianName, params.StudentName,
		params.CampaignName, params.AdGroupName, params.Metadata, params.Status,
	)
	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Lead{}, ErrDuplicateIdentity
		}
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			source = $2, source_id = $3, first_name = $4, last_name = $5,
			phone = $6, email = $7, city = $8, student_grade = $9,
			preferred_exam = $10, guardian_name = $11, student_name = $12,
			campaign_name = $13, ad_group_name = $14, metadata = $15,
			status = $16, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id,
		params.Source, params.SourceID, params.FirstName, params.LastName,
		params.Phone, params.Email, params.City, params.StudentGrade,
		params.PreferredExam, params.GuardianName, params.StudentName,
		params.CampaignName, params.AdGroupName, params.Metadata, params.Status,
	)
	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Lead{}, ErrDuplicateIdentity
		}
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, status,
	)
	return scanLead(row)
}

// MarkCalled bumps the call counter and stamps the contact time in one
// statement so concurrent webhook handlers never lose an increment.
func (r *Repository) MarkCalled(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET call_count = call_count + 1, last_contacted_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id,
	)
	return scanLead(row)
}

// MarkContacted advances the lead to CONTACTED and refreshes the contact
// time. Used on inbound calls, which count as an active touch regardless of
// the lead's prior pipeline stage.
func (r *Repository) MarkContacted(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET status = 'CONTACTED', last_contacted_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id,
	)
	return scanLead(row)
}

// ScheduleDemo moves the lead to DEMO_SCHEDULED and stamps both the demo and
// contact timestamps.
func (r *Repository) ScheduleDemo(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET status = 'DEMO_SCHEDULED', demo_scheduled_at = now(),
			last_contacted_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id,
	)
	return scanLead(row)
}

type ListParams struct {
	Status *string
	Source *string
	Limit  int
	Offset int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1
	if params.Status != nil {
		where += ` AND status = $` + strconv.Itoa(argPos)
		args = append(args, *params.Status)
		argPos++
	}
	if params.Source != nil {
		where += ` AND source = $` + strconv.Itoa(argPos)
		args = append(args, *params.Source)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return leads, total, nil
}
