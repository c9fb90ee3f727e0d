package service

import (
	"context"
	"time"

	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/leads/transport"

	"github.com/google/uuid"
)

const recentLeadLimit = 10

// Summary builds the dashboard snapshot: status counters, today's activity
// and the latest leads with their recent calls attached.
func (s *Service) Summary(ctx context.Context) (transport.SummaryResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return transport.SummaryResponse{}, err
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	callsToday, err := s.repo.CountCallsSince(ctx, startOfDay)
	if err != nil {
		return transport.SummaryResponse{}, err
	}
	demosToday, err := s.repo.CountDemosSince(ctx, startOfDay)
	if err != nil {
		return transport.SummaryResponse{}, err
	}

	recent, _, err := s.repo.List(ctx, repository.ListParams{Limit: recentLeadLimit})
	if err != nil {
		return transport.SummaryResponse{}, err
	}

	ids := make([]uuid.UUID, 0, len(recent))
	for _, lead := range recent {
		ids = append(ids, lead.ID)
	}
	callsByLead, err := s.repo.ListRecentCalls(ctx, ids, 3)
	if err != nil {
		return transport.SummaryResponse{}, err
	}

	recentLeads := make([]transport.LeadWithCalls, 0, len(recent))
	for _, lead := range recent {
		entry := transport.LeadWithCalls{
			LeadResponse: ToLeadResponse(lead),
			RecentCalls:  make([]transport.CallLogEntry, 0, 3),
		}
		for _, c := range callsByLead[lead.ID] {
			entry.RecentCalls = append(entry.RecentCalls, transport.CallLogEntry{
				ID:          c.ID,
				Direction:   c.Direction,
				Status:      c.Status,
				DurationSec: c.DurationSec,
				CreatedAt:   c.CreatedAt,
			})
		}
		recentLeads = append(recentLeads, entry)
	}

	return transport.SummaryResponse{
		Total:       counts.Total,
		ByStatus:    counts.ByStatus,
		DemosToday:  demosToday,
		CallsToday:  callsToday,
		RecentLeads: recentLeads,
		GeneratedAt: now,
	}, nil
}

func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              lead.ID,
		Source:          lead.Source,
		SourceID:        lead.SourceID,
		FirstName:       lead.FirstName,
		LastName:        lead.LastName,
		Phone:           lead.Phone,
		Email:           lead.Email,
		City:            lead.City,
		StudentGrade:    lead.StudentGrade,
		PreferredExam:   lead.PreferredExam,
		GuardianName:    lead.GuardianName,
		StudentName:     lead.StudentName,
		CampaignName:    lead.CampaignName,
		AdGroupName:     lead.AdGroupName,
		Status:          transport.LeadStatus(lead.Status),
		CallCount:       lead.CallCount,
		LastContactedAt: lead.LastContactedAt,
		DemoScheduledAt: lead.DemoScheduledAt,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}
