package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type StatusCounts struct {
	Total    int
	ByStatus map[string]int
}

func (r *Repository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return StatusCounts{}, err
	}
	defer rows.Close()

	counts := StatusCounts{ByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, err
		}
		counts.ByStatus[status] = n
		counts.Total += n
	}
	if rows.Err() != nil {
		return StatusCounts{}, rows.Err()
	}
	return counts, nil
}

// CountCallsSince counts call logs created at or after the given time.
func (r *Repository) CountCallsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM call_logs WHERE created_at >= $1`, since).Scan(&n)
	return n, err
}

// CountDemosSince counts leads that moved to DEMO_SCHEDULED at or after the
// given time, using updated_at as the transition stamp.
func (r *Repository) CountDemosSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM leads WHERE status = 'DEMO_SCHEDULED' AND updated_at >= $1
	`, since).Scan(&n)
	return n, err
}

type RecentCall struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Direction   string
	Status      string
	DurationSec *int
	CreatedAt   time.Time
}

// ListRecentCalls returns up to perLead recent call logs for each of the
// given leads, newest first.
func (r *Repository) ListRecentCalls(ctx context.Context, leadIDs []uuid.UUID, perLead int) (map[uuid.UUID][]RecentCall, error) {
	if len(leadIDs) == 0 {
		return map[uuid.UUID][]RecentCall{}, nil
	}
	if perLead <= 0 {
		perLead = 3
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, direction, status, duration, created_at
		FROM (
			SELECT id, lead_id, direction, status, duration, created_at,
				row_number() OVER (PARTITION BY lead_id ORDER BY created_at DESC) AS rn
			FROM call_logs
			WHERE lead_id = ANY($1)
		) ranked
		WHERE rn <= $2
		ORDER BY lead_id, created_at DESC
	`, leadIDs, perLead)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]RecentCall)
	for rows.Next() {
		var c RecentCall
		if err := rows.Scan(&c.ID, &c.LeadID, &c.Direction, &c.Status, &c.DurationSec, &c.CreatedAt); err != nil {
			return nil, err
		}
		out[c.LeadID] = append(out[c.LeadID], c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
