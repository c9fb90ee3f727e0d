// Package calllog reconciles conversation turns and provider status
// callbacks into durable call history. Writes arrive at-least-once and out
// of order; all of them converge on one row per provider call SID.
package calllog

import (
	"context"
	"encoding/json"

	"outreach_backend/internal/calllog/repository"
	voiceservice "outreach_backend/internal/voice/service"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

// Call outcomes stored on the log row.
const (
	OutcomeDemoScheduled = "DEMO_SCHEDULED"
	OutcomeConversation  = "CONVERSATION"
	OutcomeNoAnswer      = "NO_ANSWER"
	OutcomeFailed        = "FAILED"
)

// Store is what the reconciler needs from persistence, satisfied by
// repository.Repository.
type Store interface {
	Upsert(ctx context.Context, params repository.UpsertParams) (repository.CallLog, error)
	UpdateBySID(ctx context.Context, params repository.StatusParams) (repository.CallLog, error)
}

type Reconciler struct {
	store Store
	log   *logger.Logger
}

func NewReconciler(store Store, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Reconcile implements the voice module's CallRecorder port. It runs once
// per conversation turn and once from the terminal status callback, so the
// log row tracks the transcript even when callbacks never arrive.
func (r *Reconciler) Reconcile(ctx context.Context, params voiceservice.ReconcileParams) (uuid.UUID, error) {
	upsert := repository.UpsertParams{
		LeadID:    params.LeadID,
		Direction: params.Direction,
		Status:    params.CallStatus,
	}
	if params.ProviderCallSID != "" {
		sid := params.ProviderCallSID
		upsert.ProviderCallSID = &sid
	}
	if params.Transcript != "" {
		transcript := params.Transcript
		upsert.Transcript = &transcript
	}
	if len(params.Turns) > 0 {
		if data, err := json.Marshal(params.Turns); err == nil {
			upsert.GatherData = data
		}
	}

	// Mid-call turns only ever raise demo_accepted; the final pass settles
	// it either way alongside the outcome.
	if params.DemoAccepted {
		accepted := true
		upsert.DemoAccepted = &accepted
	}
	if isTerminal(params.CallStatus) {
		outcome := classifyOutcome(params)
		upsert.Outcome = &outcome
		accepted := params.DemoAccepted
		upsert.DemoAccepted = &accepted
	}

	cl, err := r.store.Upsert(ctx, upsert)
	if err != nil {
		return uuid.Nil, err
	}

	r.log.Info("call log reconciled",
		"call_log_id", cl.ID.String(),
		"lead_id", cl.LeadID.String(),
		"status", cl.Status,
	)
	return cl.ID, nil
}

// RecordStatus applies the provider's duration, recording URL and status to
// the row owned by the call SID.
func (r *Reconciler) RecordStatus(ctx context.Context, params voiceservice.StatusUpdateParams) error {
	notes := "Status: " + params.Status
	_, err := r.store.UpdateBySID(ctx, repository.StatusParams{
		ProviderCallSID: params.ProviderCallSID,
		Status:          params.Status,
		DurationSec:     params.DurationSec,
		RecordingURL:    params.RecordingURL,
		Notes:           &notes,
	})
	return err
}

func isTerminal(callStatus string) bool {
	switch callStatus {
	case "completed", "busy", "no-answer", "failed", "canceled":
		return true
	}
	return false
}

func classifyOutcome(params voiceservice.ReconcileParams) string {
	if params.DemoAccepted {
		return OutcomeDemoScheduled
	}
	switch params.CallStatus {
	case "completed":
		if params.Transcript == "" {
			return OutcomeNoAnswer
		}
		return OutcomeConversation
	case "busy", "no-answer":
		return OutcomeNoAnswer
	default:
		return OutcomeFailed
	}
}
