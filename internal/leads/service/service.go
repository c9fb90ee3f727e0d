package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"outreach_backend/internal/leads/repository"
	"outreach_backend/internal/leads/transport"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound = errors.New("lead not found")
	ErrInvalidPhone = errors.New("lead phone number is missing or invalid")
)

// NormalizedLeadInput is the channel-agnostic ingest payload. Every source
// (manual entry, Facebook, Google Ads, inbound calls) maps into this shape
// before hitting the resolver.
type NormalizedLeadInput struct {
	Source        string
	SourceID      string
	FirstName     string
	LastName      string
	Phone         string
	Email         string
	City          string
	StudentGrade  string
	PreferredExam string
	GuardianName  string
	StudentName   string
	CampaignName  string
	AdGroupName   string
	Metadata      json.RawMessage
}

// CallOriginator places an outbound call to a lead. Implemented by the voice
// module; nil when telephony is disabled.
type CallOriginator interface {
	Originate(ctx context.Context, leadID uuid.UUID) (string, error)
}

type Service struct {
	repo        repository.FullRepository
	originator  CallOriginator
	publish     func(ctx context.Context, leadID uuid.UUID, lead repository.Lead)
	log         *logger.Logger
	defaultExam string
	autoDial    bool
}

func New(repo repository.FullRepository, log *logger.Logger, defaultExam string) *Service {
	return &Service{
		repo:        repo,
		log:         log,
		defaultExam: defaultExam,
	}
}

// SetOriginator wires the voice module in after construction. The voice
// module itself depends on this service for inbound caller resolution, so
// the dial-back port cannot be passed to New.
func (s *Service) SetOriginator(o CallOriginator) {
	s.originator = o
	s.autoDial = o != nil
}

// SetLeadCreatedHook registers a callback fired after a brand new lead is
// persisted. Used to publish domain events without importing the bus here.
func (s *Service) SetLeadCreatedHook(fn func(ctx context.Context, leadID uuid.UUID, lead repository.Lead)) {
	s.publish = fn
}

// Resolve finds an existing lead for the input identity or creates a new one.
// Matching precedence: (source, sourceId) first, then phone, then email. When
// the input matches different leads on different identities the strongest
// match wins and the collision is logged for manual review.
func (s *Service) Resolve(ctx context.Context, input NormalizedLeadInput) (repository.Lead, bool, error) {
	normalized := phone.NormalizeE164(input.Phone)
	if normalized == "" {
		return repository.Lead{}, false, ErrInvalidPhone
	}
	input.Phone = normalized

	if input.PreferredExam == "" {
		input.PreferredExam = s.defaultExam
	}
	if input.Source == "" {
		input.Source = string(transport.LeadSourceManual)
	}

	lead, found, err := s.match(ctx, input)
	if err != nil {
		return repository.Lead{}, false, err
	}
	if found {
		merged, err := s.merge(ctx, lead, input)
		return merged, false, err
	}

	created, err := s.create(ctx, input)
	if err == nil {
		return created, true, nil
	}

	// A concurrent ingest of the same identity can win the insert race.
	// Re-resolve and merge into whatever row got there first.
	if errors.Is(err, repository.ErrDuplicateIdentity) {
		lead, found, matchErr := s.match(ctx, input)
		if matchErr != nil {
			return repository.Lead{}, false, matchErr
		}
		if found {
			merged, mergeErr := s.merge(ctx, lead, input)
			return merged, false, mergeErr
		}
	}
	return repository.Lead{}, false, err
}

func (s *Service) match(ctx context.Context, input NormalizedLeadInput) (repository.Lead, bool, error) {
	var matches []repository.Lead

	if input.SourceID != "" {
		lead, err := s.repo.GetBySourceID(ctx, input.Source, input.SourceID)
		if err == nil {
			matches = append(matches, lead)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, false, err
		}
	}

	lead, err := s.repo.GetByPhone(ctx, input.Phone)
	if err == nil {
		matches = append(matches, lead)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, false, err
	}

	if input.Email != "" {
		lead, err := s.repo.GetByEmail(ctx, input.Email)
		if err == nil {
			matches = append(matches, lead)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, false, err
		}
	}

	if len(matches) == 0 {
		return repository.Lead{}, false, nil
	}

	winner := matches[0]
	for _, m := range matches[1:] {
		if m.ID != winner.ID {
			s.log.Warn("lead identity collision",
				slog.String("winner_id", winner.ID.String()),
				slog.String("loser_id", m.ID.String()),
				slog.String("source", input.Source),
			)
		}
	}
	return winner, true, nil
}

// merge overlays non-empty input fields on the stored lead. Empty input
// fields never erase stored data, with two exceptions: source always takes
// the incoming channel so attribution follows the latest touch, and metadata
// replaces the stored payload wholesale when the input carries one.
func (s *Service) merge(ctx context.Context, lead repository.Lead, input NormalizedLeadInput) (repository.Lead, error) {
	params := repository.UpdateLeadParams{
		Source:        input.Source,
		SourceID:      lead.SourceID,
		FirstName:     lead.FirstName,
		LastName:      lead.LastName,
		Phone:         input.Phone,
		Email:         lead.Email,
		City:          lead.City,
		StudentGrade:  lead.StudentGrade,
		PreferredExam: lead.PreferredExam,
		GuardianName:  lead.GuardianName,
		StudentName:   lead.StudentName,
		CampaignName:  lead.CampaignName,
		AdGroupName:   lead.AdGroupName,
		Metadata:      lead.Metadata,
		Status:        lead.Status,
	}
	if input.SourceID != "" {
		params.SourceID = &input.SourceID
	}
	if input.FirstName != "" {
		params.FirstName = input.FirstName
	}
	if input.LastName != "" {
		params.LastName = &input.LastName
	}
	if input.Email != "" {
		params.Email = &input.Email
	}
	if input.City != "" {
		params.City = &input.City
	}
	if input.StudentGrade != "" {
		params.StudentGrade = &input.StudentGrade
	}
	if input.PreferredExam != "" {
		params.PreferredExam = input.PreferredExam
	}
	if input.GuardianName != "" {
		params.GuardianName = &input.GuardianName
	}
	if input.StudentName != "" {
		params.StudentName = &input.StudentName
	}
	if input.CampaignName != "" {
		params.CampaignName = &input.CampaignName
	}
	if input.AdGroupName != "" {
		params.AdGroupName = &input.AdGroupName
	}
	if len(input.Metadata) > 0 {
		params.Metadata = input.Metadata
	}
	if lead.Status == string(transport.LeadStatusNew) {
		params.Status = string(transport.LeadStatusContacted)
	}

	updated, err := s.repo.Update(ctx, lead.ID, params)
	if errors.Is(err, repository.ErrDuplicateIdentity) {
		// The merged phone now belongs to another lead. Keep the stored
		// phone rather than failing the ingest.
		params.Phone = lead.Phone
		updated, err = s.repo.Update(ctx, lead.ID, params)
	}
	return updated, err
}

func (s *Service) create(ctx context.Context, input NormalizedLeadInput) (repository.Lead, error) {
	params := repository.CreateLeadParams{
		Source:        input.Source,
		FirstName:     input.FirstName,
		Phone:         input.Phone,
		PreferredExam: input.PreferredExam,
		Metadata:      input.Metadata,
		Status:        string(transport.LeadStatusNew),
	}
	if input.FirstName == "" {
		params.FirstName = "Unknown"
	}
	if input.SourceID != "" {
		params.SourceID = &input.SourceID
	}
	if input.LastName != "" {
		params.LastName = &input.LastName
	}
	if input.Email != "" {
		params.Email = &input.Email
	}
	if input.City != "" {
		params.City = &input.City
	}
	if input.StudentGrade != "" {
		params.StudentGrade = &input.StudentGrade
	}
	if input.GuardianName != "" {
		params.GuardianName = &input.GuardianName
	}
	if input.StudentName != "" {
		params.StudentName = &input.StudentName
	}
	if input.CampaignName != "" {
		params.CampaignName = &input.CampaignName
	}
	if input.AdGroupName != "" {
		params.AdGroupName = &input.AdGroupName
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return repository.Lead{}, err
	}

	if s.publish != nil {
		s.publish(ctx, lead.ID, lead)
	}
	if s.autoDial {
		s.dialAsync(lead.ID)
	}
	return lead, nil
}

// dialAsync kicks off the welcome call without blocking the ingest path.
func (s *Service) dialAsync(leadID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := s.originator.Originate(ctx, leadID); err != nil {
			s.log.Error("auto dial failed",
				slog.String("lead_id", leadID.String()),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, ErrLeadNotFound
	}
	return lead, err
}

func (s *Service) List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status transport.LeadStatus) (repository.Lead, error) {
	lead, err := s.repo.UpdateStatus(ctx, id, string(status))
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// TriggerOutbound places a call to an existing lead on operator request.
func (s *Service) TriggerOutbound(ctx context.Context, leadID uuid.UUID) (string, error) {
	if s.originator == nil {
		return "", errors.New("telephony is not configured")
	}
	if _, err := s.Get(ctx, leadID); err != nil {
		return "", err
	}
	return s.originator.Originate(ctx, leadID)
}
