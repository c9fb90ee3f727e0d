package notification

import (
	"context"

	"outreach_backend/internal/events"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Module wires the demo notifier to the event bus. It registers no HTTP
// routes; everything happens on DemoScheduled events.
type Module struct {
	notifier *DemoNotifier
}

func NewModule(cfg config.EmailConfig, eventBus events.Bus, log *logger.Logger) *Module {
	if !cfg.IsEmailEnabled() {
		log.Info("email notifications disabled")
		return nil
	}

	notifier := NewDemoNotifier(NewSMTPSender(cfg), cfg.GetCounsellorEmail(), cfg.GetDashboardBaseURL(), log)

	eventBus.Subscribe(events.DemoScheduled{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.DemoScheduled)
		if !ok {
			return nil
		}
		if err := notifier.Notify(ctx, e); err != nil {
			log.UpstreamError("smtp", err)
		}
		return nil
	}))

	return &Module{notifier: notifier}
}
