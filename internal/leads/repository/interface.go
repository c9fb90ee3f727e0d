package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetByPhone(ctx context.Context, phone string) (Lead, error)
	GetByEmail(ctx context.Context, email string) (Lead, error)
	GetBySourceID(ctx context.Context, source, sourceID string) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadWriter provides write operations for lead ingestion and lifecycle.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Lead, error)
	MarkCalled(ctx context.Context, id uuid.UUID) (Lead, error)
	MarkContacted(ctx context.Context, id uuid.UUID) (Lead, error)
	ScheduleDemo(ctx context.Context, id uuid.UUID) (Lead, error)
}

// MetricsReader provides access to dashboard counters.
type MetricsReader interface {
	CountByStatus(ctx context.Context) (StatusCounts, error)
	CountCallsSince(ctx context.Context, since time.Time) (int, error)
	CountDemosSince(ctx context.Context, since time.Time) (int, error)
	ListRecentCalls(ctx context.Context, leadIDs []uuid.UUID, perLead int) (map[uuid.UUID][]RecentCall, error)
}

// FullRepository combines all lead persistence capabilities.
type FullRepository interface {
	LeadReader
	LeadWriter
	MetricsReader
}

var _ FullRepository = (*Repository)(nil)
