// Package leads provides the lead ingestion bounded context module.
// It owns identity resolution, dedup/merge and the dashboard summary.
package leads

import (
	"context"

	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/leads/handler"
	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/leads/service"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
// The voice originator is wired in later via SetOriginator because the voice
// module is constructed after this one.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger, defaultExam string, syncer handler.Syncer) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log, defaultExam)

	svc.SetLeadCreatedHook(func(ctx context.Context, leadID uuid.UUID, lead repository.Lead) {
		eventBus.Publish(ctx, events.LeadCreated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Name:      lead.FirstName,
			Phone:     lead.Phone,
			Source:    lead.Source,
		})
	})

	return &Module{
		handler: handler.New(svc, val, syncer),
		svc:     svc,
	}
}

// Service exposes the resolver for modules that ingest leads out of band
// (inbound calls, channel sync).
func (m *Module) Service() *service.Service {
	return m.svc
}

// SetOriginator enables automatic and operator-triggered outbound dialing.
func (m *Module) SetOriginator(o service.CallOriginator) {
	m.svc.SetOriginator(o)
}

// SetSyncer enables the on-demand channel sync endpoint.
func (m *Module) SetSyncer(s handler.Syncer) {
	m.handler.SetSyncer(s)
}

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	leadGroup := rc.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadGroup)

	callGroup := rc.Protected.Group("/calls")
	m.handler.RegisterCallRoutes(callGroup)
}

func (m *Module) Name() string { return "leads" }
