package service

import (
	"context"
	"errors"

	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/leads/transport"
	"outreach_backend/platform/phone"

	"github.com/google/uuid"
)

// The methods in this file back the ports other modules (voice, channels)
// consume. They keep lead lifecycle rules in one place.

// RecordCallPlaced bumps the call counter, refreshes the contact time and
// promotes a fresh lead to CONTACTED once the first call goes out.
func (s *Service) RecordCallPlaced(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.MarkCalled(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, ErrLeadNotFound
		}
		return repository.Lead{}, err
	}
	if lead.Status == string(transport.LeadStatusNew) {
		return s.repo.UpdateStatus(ctx, id, string(transport.LeadStatusContacted))
	}
	return lead, nil
}

// MarkDemoScheduled records a demo acceptance detected during a call,
// stamping the demo and contact timestamps. The returned bool reports
// whether this call performed the transition; repeat acceptances and leads
// already past the demo stage are no-ops.
func (s *Service) MarkDemoScheduled(ctx context.Context, id uuid.UUID) (repository.Lead, bool, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return repository.Lead{}, false, err
	}
	switch lead.Status {
	case string(transport.LeadStatusDemoScheduled), string(transport.LeadStatusEnrolled):
		return lead, false, nil
	}
	updated, err := s.repo.ScheduleDemo(ctx, id)
	if err != nil {
		return repository.Lead{}, false, err
	}
	return updated, true, nil
}

// ResolveInboundCaller maps an inbound caller number to a lead. Unknown
// numbers become new CONTACTED leads named after the number; known callers
// are advanced to CONTACTED with a fresh contact time whatever their prior
// stage, since picking up the phone is always an active touch.
func (s *Service) ResolveInboundCaller(ctx context.Context, rawPhone string) (repository.Lead, bool, error) {
	normalized := phone.NormalizeE164(rawPhone)
	if normalized == "" {
		return repository.Lead{}, false, ErrInvalidPhone
	}

	existing, err := s.repo.GetByPhone(ctx, normalized)
	if err == nil {
		touched, err := s.repo.MarkContacted(ctx, existing.ID)
		return touched, false, err
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, false, err
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Source:        string(transport.LeadSourceUnknown),
		FirstName:     normalized,
		Phone:         normalized,
		PreferredExam: s.defaultExam,
		Status:        string(transport.LeadStatusContacted),
	})
	if err != nil {
		return repository.Lead{}, false, err
	}
	if s.publish != nil {
		s.publish(ctx, lead.ID, lead)
	}
	return lead, true, nil
}
