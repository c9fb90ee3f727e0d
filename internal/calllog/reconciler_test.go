package calllog

import (
	"context"
	"strings"
	"testing"

	"outreach_backend/internal/ai"
	"outreach_backend/internal/calllog/repository"
	voiceservice "outreach_backend/internal/voice/service"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore keys rows by provider call SID, mirroring the partial unique
// index the real table converges on.
type fakeStore struct {
	bySID  map[string]repository.CallLog
	orphan []repository.CallLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{bySID: map[string]repository.CallLog{}}
}

func coalesceStr(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

func coalesceBool(a, b *bool) *bool {
	if a != nil {
		return a
	}
	return b
}

func (f *fakeStore) Upsert(_ context.Context, params repository.UpsertParams) (repository.CallLog, error) {
	if params.ProviderCallSID == nil {
		cl := repository.CallLog{
			ID:           uuid.New(),
			LeadID:       params.LeadID,
			Direction:    params.Direction,
			Status:       params.Status,
			Transcript:   params.Transcript,
			Outcome:      params.Outcome,
			DemoAccepted: params.DemoAccepted,
			GatherData:   params.GatherData,
		}
		f.orphan = append(f.orphan, cl)
		return cl, nil
	}

	cl, ok := f.bySID[*params.ProviderCallSID]
	if !ok {
		cl = repository.CallLog{ID: uuid.New(), LeadID: params.LeadID, Direction: params.Direction, ProviderCallSID: params.ProviderCallSID}
	}
	cl.Status = params.Status
	cl.Transcript = coalesceStr(params.Transcript, cl.Transcript)
	cl.Outcome = coalesceStr(params.Outcome, cl.Outcome)
	cl.DemoAccepted = coalesceBool(params.DemoAccepted, cl.DemoAccepted)
	if params.GatherData != nil {
		cl.GatherData = params.GatherData
	}
	f.bySID[*params.ProviderCallSID] = cl
	return cl, nil
}

func (f *fakeStore) UpdateBySID(_ context.Context, params repository.StatusParams) (repository.CallLog, error) {
	cl, ok := f.bySID[params.ProviderCallSID]
	if !ok {
		return repository.CallLog{}, repository.ErrNotFound
	}
	cl.Status = params.Status
	if params.DurationSec != nil {
		cl.DurationSec = params.DurationSec
	}
	if params.RecordingURL != nil {
		cl.RecordingURL = params.RecordingURL
	}
	if params.Notes != nil {
		cl.Notes = params.Notes
	}
	f.bySID[params.ProviderCallSID] = cl
	return cl, nil
}

func newTestReconciler() (*Reconciler, *fakeStore) {
	store := newFakeStore()
	return NewReconciler(store, logger.New("development")), store
}

func TestReconcileConvergesOnOneRowPerSID(t *testing.T) {
	r, store := newTestReconciler()
	leadID := uuid.New()

	first, err := r.Reconcile(context.Background(), voiceservice.ReconcileParams{
		LeadID:          leadID,
		ProviderCallSID: "CA100",
		Direction:       "OUTBOUND",
		CallStatus:      "in-progress",
		Transcript:      "assistant: hello\nuser: tell me more",
		Turns: []ai.Turn{
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "tell me more"},
		},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	second, err := r.Reconcile(context.Background(), voiceservice.ReconcileParams{
		LeadID:          leadID,
		ProviderCallSID: "CA100",
		Direction:       "OUTBOUND",
		CallStatus:      "completed",
		Transcript:      "assistant: hello\nuser: tell me more\nassistant: we offer demos",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if first != second {
		t.Errorf("call log IDs %s and %s differ, writes for one SID must converge", first, second)
	}
	if len(store.bySID) != 1 {
		t.Fatalf("rows = %d, want 1", len(store.bySID))
	}
	row := store.bySID["CA100"]
	if row.Status != "completed" {
		t.Errorf("Status = %q, the later write wins", row.Status)
	}
	if row.Transcript == nil || !strings.Contains(*row.Transcript, "we offer demos") {
		t.Error("converged row must carry the latest transcript")
	}
	if row.GatherData == nil {
		t.Error("the turn payload from the earlier write must survive a later write without one")
	}
}

func TestReconcileMidCallTurnLeavesOutcomeOpen(t *testing.T) {
	r, store := newTestReconciler()

	_, err := r.Reconcile(context.Background(), voiceservice.ReconcileParams{
		LeadID:          uuid.New(),
		ProviderCallSID: "CA200",
		Direction:       "OUTBOUND",
		CallStatus:      "in-progress",
		Transcript:      "assistant: hello",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	row := store.bySID["CA200"]
	if row.Outcome != nil {
		t.Errorf("Outcome = %q, mid-call turns must not settle an outcome", *row.Outcome)
	}
	if row.DemoAccepted != nil {
		t.Error("DemoAccepted must stay unset until a turn accepts or the call ends")
	}
}

func TestReconcileAcceptingTurnRaisesDemoFlag(t *testing.T) {
	r, store := newTestReconciler()

	_, err := r.Reconcile(context.Background(), voiceservice.ReconcileParams{
		LeadID:          uuid.New(),
		ProviderCallSID: "CA300",
		Direction:       "OUTBOUND",
		CallStatus:      "in-progress",
		Transcript:      "user: yes demo",
		DemoAccepted:    true,
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	row := store.bySID["CA300"]
	if row.DemoAccepted == nil || !*row.DemoAccepted {
		t.Error("the accepting turn must raise demo_accepted")
	}
}

func TestReconcileTerminalSettlesOutcome(t *testing.T) {
	tests := []struct {
		name   string
		params voiceservice.ReconcileParams
		want   string
	}{
		{
			name:   "demo acceptance wins over everything",
			params: voiceservice.ReconcileParams{CallStatus: "completed", Transcript: "user: yes demo", DemoAccepted: true},
			want:   OutcomeDemoScheduled,
		},
		{
			name:   "completed call with a transcript",
			params: voiceservice.ReconcileParams{CallStatus: "completed", Transcript: "assistant: hello\nuser: busy now"},
			want:   OutcomeConversation,
		},
		{
			name:   "completed but nobody spoke",
			params: voiceservice.ReconcileParams{CallStatus: "completed"},
			want:   OutcomeNoAnswer,
		},
		{
			name:   "busy line",
			params: voiceservice.ReconcileParams{CallStatus: "busy"},
			want:   OutcomeNoAnswer,
		},
		{
			name:   "no answer",
			params: voiceservice.ReconcileParams{CallStatus: "no-answer"},
			want:   OutcomeNoAnswer,
		},
		{
			name:   "provider failure",
			params: voiceservice.ReconcileParams{CallStatus: "failed"},
			want:   OutcomeFailed,
		},
		{
			name:   "canceled before connect",
			params: voiceservice.ReconcileParams{CallStatus: "canceled"},
			want:   OutcomeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestReconciler()
			tt.params.LeadID = uuid.New()
			tt.params.ProviderCallSID = "CA400"
			tt.params.Direction = "OUTBOUND"

			if _, err := r.Reconcile(context.Background(), tt.params); err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			row := store.bySID["CA400"]
			if row.Outcome == nil || *row.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %q", row.Outcome, tt.want)
			}
			if row.DemoAccepted == nil {
				t.Error("a terminal write must settle demo_accepted either way")
			}
		})
	}
}

func TestReconcileWithoutSIDInsertsOrphanRow(t *testing.T) {
	r, store := newTestReconciler()

	_, err := r.Reconcile(context.Background(), voiceservice.ReconcileParams{
		LeadID:     uuid.New(),
		Direction:  "OUTBOUND",
		CallStatus: "failed",
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(store.orphan) != 1 {
		t.Errorf("orphan rows = %d, a call that never got a SID still gets a record", len(store.orphan))
	}
}

func TestRecordStatusUpdatesProgressFields(t *testing.T) {
	r, store := newTestReconciler()
	leadID := uuid.New()

	if _, err := r.Reconcile(context.Background(), voiceservice.ReconcileParams{
		LeadID:          leadID,
		ProviderCallSID: "CA500",
		Direction:       "OUTBOUND",
		CallStatus:      "in-progress",
		Transcript:      "assistant: hello",
	}); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	duration := 95
	recording := "https://api.twilio.com/recordings/RE1"
	err := r.RecordStatus(context.Background(), voiceservice.StatusUpdateParams{
		ProviderCallSID: "CA500",
		Status:          "completed",
		DurationSec:     &duration,
		RecordingURL:    &recording,
	})
	if err != nil {
		t.Fatalf("RecordStatus() error = %v", err)
	}

	row := store.bySID["CA500"]
	if row.DurationSec == nil || *row.DurationSec != 95 {
		t.Error("duration not applied")
	}
	if row.RecordingURL == nil || *row.RecordingURL != recording {
		t.Error("recording URL not applied")
	}
	if row.Notes == nil || *row.Notes != "Status: completed" {
		t.Errorf("Notes = %v, want the status note", row.Notes)
	}
	if row.Transcript == nil || *row.Transcript != "assistant: hello" {
		t.Error("a status update must not touch the transcript")
	}
}
