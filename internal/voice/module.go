// Package voice provides the telephony bounded context module: outbound
// call origination, the webhook-driven conversation loop and status
// reconciliation.
package voice

import (
	"context"

	"outreach_backend/internal/ai"
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	leadrepo "outreach_backend/internal/leads/repository"
	leadservice "outreach_backend/internal/leads/service"
	"outreach_backend/internal/voice/handler"
	"outreach_backend/internal/voice/playbook"
	"outreach_backend/internal/voice/repository"
	"outreach_backend/internal/voice/service"
	"outreach_backend/internal/voice/twilio"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the voice bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

func NewModule(
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	cfg config.TelephonyConfig,
	leads *leadservice.Service,
	recorder service.CallRecorder,
	gen ai.Generator,
	eventBus events.Bus,
	log *logger.Logger,
) (*Module, error) {
	pb, err := playbook.Load(cfg.GetVoicePlaybookPath())
	if err != nil {
		return nil, err
	}

	var placer service.CallPlacer
	if client := twilio.NewClient(cfg, log); client != nil {
		placer = client
	}

	var locker service.SessionLocker
	if redisClient != nil {
		locker = service.NewRedisLocker(redisClient)
	}

	svc := service.New(
		service.Config{
			Playbook:      pb,
			PublicBaseURL: cfg.GetPublicBaseURL(),
			TurnCap:       cfg.GetVoiceTurnCap(),
		},
		repository.New(pool),
		&leadDirectory{leads: leads},
		placer,
		recorder,
		gen,
		locker,
		&busSink{bus: eventBus},
		log,
	)

	return &Module{
		handler: handler.New(svc),
		svc:     svc,
	}, nil
}

// Service exposes the call flow for the leads module's originator port and
// the scheduler's stale session sweeper.
func (m *Module) Service() *service.Service {
	return m.svc
}

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.Webhooks.Group("/voice"))
}

// leadDirectory adapts the leads service to the voice port.
type leadDirectory struct {
	leads *leadservice.Service
}

func (d *leadDirectory) Get(ctx context.Context, id uuid.UUID) (service.Lead, error) {
	lead, err := d.leads.Get(ctx, id)
	if err != nil {
		return service.Lead{}, err
	}
	return toVoiceLead(lead), nil
}

func (d *leadDirectory) ResolveInbound(ctx context.Context, phone string) (service.Lead, bool, error) {
	lead, created, err := d.leads.ResolveInboundCaller(ctx, phone)
	if err != nil {
		return service.Lead{}, false, err
	}
	return toVoiceLead(lead), created, nil
}

func (d *leadDirectory) RecordCallPlaced(ctx context.Context, id uuid.UUID) error {
	_, err := d.leads.RecordCallPlaced(ctx, id)
	return err
}

func (d *leadDirectory) MarkDemoScheduled(ctx context.Context, id uuid.UUID) (bool, error) {
	_, changed, err := d.leads.MarkDemoScheduled(ctx, id)
	return changed, err
}

func toVoiceLead(lead leadrepo.Lead) service.Lead {
	return service.Lead{
		ID:            lead.ID,
		FirstName:     lead.FirstName,
		GuardianName:  deref(lead.GuardianName),
		StudentName:   deref(lead.StudentName),
		StudentGrade:  deref(lead.StudentGrade),
		City:          deref(lead.City),
		Phone:         lead.Phone,
		PreferredExam: lead.PreferredExam,
		Status:        lead.Status,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// busSink publishes call flow notifications on the event bus.
type busSink struct {
	bus events.Bus
}

func (b *busSink) DemoScheduled(ctx context.Context, leadID, sessionID uuid.UUID, leadName, phone string) {
	b.bus.Publish(ctx, events.DemoScheduled{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		LeadName:  leadName,
		Phone:     phone,
		SessionID: sessionID,
	})
}

func (b *busSink) CallCompleted(ctx context.Context, leadID, sessionID uuid.UUID, turns int) {
	b.bus.Publish(ctx, events.CallCompleted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		SessionID: sessionID,
		Turns:     turns,
	})
}

func (m *Module) Name() string { return "voice" }
