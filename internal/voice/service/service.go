// Package service drives the call conversation state machine. Every webhook
// turn loads the session from Postgres, advances it and persists it before
// the response document leaves the process; no conversational state lives in
// memory between turns.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"outreach_backend/internal/ai"
	"outreach_backend/internal/voice/playbook"
	"outreach_backend/internal/voice/repository"
	"outreach_backend/internal/voice/transport"
	"outreach_backend/internal/voice/twilio"
	"outreach_backend/internal/voice/twiml"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

var ErrSessionNotFound = repository.ErrNotFound

// Lead is the slice of lead state the call flow needs.
type Lead struct {
	ID            uuid.UUID
	FirstName     string
	GuardianName  string
	StudentName   string
	StudentGrade  string
	City          string
	Phone         string
	PreferredExam string
	Status        string
}

// DisplayName is the name the counsellor voice addresses: the guardian when
// known, else the lead's first name.
func (l Lead) DisplayName() string {
	if l.GuardianName != "" {
		return l.GuardianName
	}
	return l.FirstName
}

// LeadDirectory is the port into the leads module.
type LeadDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (Lead, error)
	ResolveInbound(ctx context.Context, phone string) (Lead, bool, error)
	RecordCallPlaced(ctx context.Context, id uuid.UUID) error
	MarkDemoScheduled(ctx context.Context, id uuid.UUID) (bool, error)
}

// CallPlacer originates calls at the provider.
type CallPlacer interface {
	PlaceCall(ctx context.Context, params twilio.PlaceCallParams) (string, error)
}

// CallRecorder is the port into the call log reconciler. Reconcile converges
// the durable log row for a call on every turn; RecordStatus applies the
// provider's asynchronous progress data to the row owned by a call SID.
type CallRecorder interface {
	Reconcile(ctx context.Context, params ReconcileParams) (uuid.UUID, error)
	RecordStatus(ctx context.Context, params StatusUpdateParams) error
}

// ReconcileParams is the call log upsert payload: one per conversation turn
// and one final pass from the terminal status callback.
type ReconcileParams struct {
	LeadID          uuid.UUID
	ProviderCallSID string
	Direction       string
	CallStatus      string
	Transcript      string
	DemoAccepted    bool
	Turns           []ai.Turn
}

// StatusUpdateParams carries the provider's progress callback fields. It
// never touches transcript or outcome; those belong to Reconcile.
type StatusUpdateParams struct {
	ProviderCallSID string
	Status          string
	DurationSec     *int
	RecordingURL    *string
}

// SessionStore is the persistence port, satisfied by repository.Repository.
type SessionStore interface {
	Create(ctx context.Context, params repository.CreateSessionParams) (repository.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Session, error)
	GetByProviderCallSID(ctx context.Context, callSID string) (repository.Session, error)
	SetProviderCallSID(ctx context.Context, id uuid.UUID, callSID string) error
	SaveTurn(ctx context.Context, s repository.Session) (repository.Session, error)
	Complete(ctx context.Context, id uuid.UUID, status string) (repository.Session, bool, error)
}

// EventSink receives domain notifications from the call flow.
type EventSink interface {
	DemoScheduled(ctx context.Context, leadID, sessionID uuid.UUID, leadName, phone string)
	CallCompleted(ctx context.Context, leadID, sessionID uuid.UUID, turns int)
}

// RecordingArchiver queues recording downloads. Optional.
type RecordingArchiver interface {
	EnqueueArchive(ctx context.Context, callLogID uuid.UUID, recordingURL string) error
}

type Service struct {
	sessions SessionStore
	leads    LeadDirectory
	placer   CallPlacer
	recorder CallRecorder
	gen      ai.Generator
	locker   SessionLocker
	events   EventSink
	archiver RecordingArchiver
	pb       playbook.Playbook
	baseURL  string
	turnCap  int
	log      *logger.Logger
}

type Config struct {
	Playbook      playbook.Playbook
	PublicBaseURL string
	TurnCap       int
}

func New(cfg Config, sessions SessionStore, leads LeadDirectory, placer CallPlacer, recorder CallRecorder, gen ai.Generator, locker SessionLocker, events EventSink, log *logger.Logger) *Service {
	turnCap := cfg.TurnCap
	if turnCap <= 0 {
		turnCap = 6
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Service{
		sessions: sessions,
		leads:    leads,
		placer:   placer,
		recorder: recorder,
		gen:      gen,
		locker:   locker,
		events:   events,
		pb:       cfg.Playbook,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		turnCap:  turnCap,
		log:      log,
	}
}

// SetArchiver wires the recording archival queue in after construction.
func (s *Service) SetArchiver(a RecordingArchiver) {
	s.archiver = a
}

func (s *Service) answerURL(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s/webhooks/voice/outbound?session=%s", s.baseURL, sessionID)
}

func (s *Service) continueURL(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s/webhooks/voice/continue?session=%s", s.baseURL, sessionID)
}

func (s *Service) statusURL(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s/webhooks/voice/status?session=%s", s.baseURL, sessionID)
}

// Originate places an outbound call to the lead and creates the session the
// answer webhook will pick up. Satisfies the leads module's originator port.
func (s *Service) Originate(ctx context.Context, leadID uuid.UUID) (string, error) {
	if s.placer == nil {
		return "", errors.New("telephony is not configured")
	}

	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return "", err
	}

	session, err := s.sessions.Create(ctx, repository.CreateSessionParams{
		LeadID:    leadID,
		Direction: repository.DirectionOutbound,
	})
	if err != nil {
		return "", err
	}

	callSID, err := s.placer.PlaceCall(ctx, twilio.PlaceCallParams{
		To:                lead.Phone,
		VoiceURL:          s.answerURL(session.ID),
		StatusCallbackURL: s.statusURL(session.ID),
		RecordCall:        true,
	})
	if err != nil {
		if _, _, cerr := s.sessions.Complete(ctx, session.ID, repository.StatusFailed); cerr != nil {
			s.log.DatabaseError("complete failed session", cerr)
		}
		return "", fmt.Errorf("place call: %w", err)
	}

	if err := s.sessions.SetProviderCallSID(ctx, session.ID, callSID); err != nil {
		s.log.DatabaseError("set provider call sid", err)
	}
	if err := s.leads.RecordCallPlaced(ctx, leadID); err != nil {
		s.log.DatabaseError("record call placed", err)
	}

	s.log.CallEvent("originated", session.ID.String(), 0)
	return callSID, nil
}

// AnswerOutbound handles the provider hitting the answer URL of an outbound
// call. It speaks the generated opening line and opens the first gather.
func (s *Service) AnswerOutbound(ctx context.Context, sessionID uuid.UUID, form transport.VoiceWebhookForm) string {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		s.log.UpstreamError("telephony", fmt.Errorf("answer for unknown session %s: %w", sessionID, err))
		return s.goodbye()
	}
	if session.Terminal() {
		return s.goodbye()
	}

	if session.ProviderCallSID == nil && form.CallSid != "" {
		if err := s.sessions.SetProviderCallSID(ctx, session.ID, form.CallSid); err != nil {
			s.log.DatabaseError("set provider call sid", err)
		}
	}

	lead, err := s.leads.Get(ctx, session.LeadID)
	if err != nil {
		s.log.DatabaseError("load lead for answer", err)
		return s.goodbye()
	}

	seed := fmt.Sprintf(
		"Lead details:\nName: %s\nStudent: %s\nGrade: %s\nPreferred Exam: %s\nCity: %s\n\nStart the conversation with a friendly greeting.",
		lead.DisplayName(), orElse(lead.StudentName, "Not provided"),
		orElse(lead.StudentGrade, "Not provided"), lead.PreferredExam,
		orElse(lead.City, "Unknown"),
	)
	line := s.openingLine(ctx, lead, seed, s.pb.RenderGreeting(lead.DisplayName(), lead.PreferredExam))
	return s.speakAndGather(ctx, session, line)
}

// AcceptInbound handles a caller dialing in. Unknown numbers become new
// CONTACTED leads named after the caller's number before the conversation
// starts.
func (s *Service) AcceptInbound(ctx context.Context, form transport.VoiceWebhookForm) string {
	lead, created, err := s.leads.ResolveInbound(ctx, form.From)
	if err != nil {
		s.log.UpstreamError("leads", fmt.Errorf("resolve inbound caller: %w", err))
		return s.goodbye()
	}

	var callSID *string
	if form.CallSid != "" {
		callSID = &form.CallSid
	}
	session, err := s.sessions.Create(ctx, repository.CreateSessionParams{
		LeadID:          lead.ID,
		Direction:       repository.DirectionInbound,
		ProviderCallSID: callSID,
	})
	if err != nil {
		s.log.DatabaseError("create inbound session", err)
		return s.goodbye()
	}

	fallback := s.pb.InboundGreeting
	if !created && lead.FirstName != "" && lead.FirstName != lead.Phone {
		fallback = s.pb.RenderGreeting(lead.DisplayName(), lead.PreferredExam)
	}
	seed := fmt.Sprintf(
		"Inbound call from %s. Lead name: %s. Provide a warm greeting and ask how you can help.",
		lead.Phone, lead.DisplayName(),
	)
	line := s.openingLine(ctx, lead, seed, fallback)
	s.log.CallEvent("inbound_accepted", session.ID.String(), 0)
	return s.speakAndGather(ctx, session, line)
}

// openingLine asks the generator for the first spoken line, seeding it with
// the lead profile. The seed framing turn is never stored on the session; a
// missing or failing generator falls back to the scripted line.
func (s *Service) openingLine(ctx context.Context, lead Lead, seed, fallback string) string {
	if s.gen == nil {
		return fallback
	}
	line, err := s.gen.Reply(ctx, []ai.Turn{{Role: "user", Content: seed}}, lead.DisplayName(), lead.PreferredExam)
	if err != nil {
		s.log.UpstreamError("ai", err)
		return fallback
	}
	return line
}

// Continue advances the conversation with the caller's transcribed speech.
// Empty speech means no speech was detected; the call ends on this turn.
func (s *Service) Continue(ctx context.Context, sessionID uuid.UUID, form transport.VoiceWebhookForm) string {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionBusy) {
			// Another turn is in flight. Reprompt without touching state.
			return twiml.New(s.pb.Voice, s.pb.Language).
				GatherSpeech(s.pb.Reprompt, s.continueURL(sessionID)).
				Hangup().
				Render()
		}
		s.log.UpstreamError("redis", err)
		return s.goodbye()
	}
	defer release()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		s.log.UpstreamError("telephony", fmt.Errorf("continue for unknown session %s: %w", sessionID, err))
		return s.goodbye()
	}
	if session.Terminal() {
		return s.goodbye()
	}

	speech := form.SpeechResult
	if speech != "" {
		session.History = append(session.History, ai.Turn{Role: "user", Content: speech})
		session.LastResponse = &speech
	}
	if session.ProviderCallSID == nil && form.CallSid != "" {
		if err := s.sessions.SetProviderCallSID(ctx, session.ID, form.CallSid); err != nil {
			s.log.DatabaseError("set provider call sid", err)
		} else {
			sid := form.CallSid
			session.ProviderCallSID = &sid
		}
	}

	lead, err := s.leads.Get(ctx, session.LeadID)
	if err != nil {
		s.log.DatabaseError("load lead for reply", err)
		return s.closeWith(ctx, session, s.pb.Apology)
	}

	outcome := playbook.OutcomeNone
	if speech != "" {
		outcome = s.pb.MatchOutcome(speech)
	}
	if outcome == playbook.OutcomeDemoAccepted {
		s.scheduleDemo(ctx, session, lead)
	}

	reply, err := s.nextReply(ctx, session, lead)
	if err != nil {
		// The caller is waiting on a live line; close gracefully rather
		// than stall.
		s.log.UpstreamError("ai", err)
		line := s.pb.Apology
		if outcome == playbook.OutcomeDemoAccepted {
			line = s.pb.DemoConfirmation
		}
		return s.closeWith(ctx, session, line)
	}

	session.History = append(session.History, ai.Turn{Role: "assistant", Content: reply})
	session.LastPrompt = &reply

	// Silence ends the call, as does reaching the turn cap or an explicit
	// decline; a demo acceptance keeps the conversation going.
	shouldHangup := session.StepIndex+1 >= s.turnCap ||
		speech == "" ||
		outcome == playbook.OutcomeDeclined
	session.StepIndex++
	if shouldHangup {
		session.Status = repository.StatusCompleted
	}

	if _, err := s.sessions.SaveTurn(ctx, session); err != nil {
		s.log.DatabaseError("save turn", err)
		return s.goodbye()
	}
	s.reconcileTurn(ctx, session)
	s.log.CallEvent("caller_turn", session.ID.String(), session.StepIndex)

	if shouldHangup {
		return twiml.New(s.pb.Voice, s.pb.Language).
			Say(s.pb.Closing).
			Hangup().
			Render()
	}
	return twiml.New(s.pb.Voice, s.pb.Language).
		GatherSpeech(reply, s.continueURL(session.ID)).
		Redirect(s.continueURL(session.ID)).
		Render()
}

func (s *Service) nextReply(ctx context.Context, session repository.Session, lead Lead) (string, error) {
	if s.gen == nil {
		return "", errors.New("reply generation is not configured")
	}
	return s.gen.Reply(ctx, session.History, lead.DisplayName(), lead.PreferredExam)
}

// scheduleDemo records a detected demo acceptance on the lead. The leads
// module reports whether this call performed the transition so repeat
// acceptances fire the notification once.
func (s *Service) scheduleDemo(ctx context.Context, session repository.Session, lead Lead) {
	changed, err := s.leads.MarkDemoScheduled(ctx, session.LeadID)
	if err != nil {
		s.log.DatabaseError("mark demo scheduled", err)
		return
	}
	if changed {
		s.events.DemoScheduled(ctx, lead.ID, session.ID, lead.DisplayName(), lead.Phone)
		s.log.CallEvent("demo_scheduled", session.ID.String(), session.StepIndex)
	}
}

// reconcileTurn upserts the call log with the transcript so far. A lost
// status callback then still leaves a durable record of the conversation.
func (s *Service) reconcileTurn(ctx context.Context, session repository.Session) {
	params := ReconcileParams{
		LeadID:       session.LeadID,
		Direction:    session.Direction,
		CallStatus:   "in-progress",
		Transcript:   renderTranscript(session.History),
		DemoAccepted: transcriptAcceptedDemo(session, s.pb),
		Turns:        session.History,
	}
	if session.ProviderCallSID != nil {
		params.ProviderCallSID = *session.ProviderCallSID
	}
	if _, err := s.recorder.Reconcile(ctx, params); err != nil {
		s.log.DatabaseError("reconcile call log", err)
	}
}

// HandleStatus processes provider lifecycle callbacks. Terminal statuses
// complete the session, converge the call log and apply the duration and
// recording data; duplicates converge on the same row.
func (s *Service) HandleStatus(ctx context.Context, sessionID uuid.UUID, form transport.VoiceWebhookForm) {
	if !isTerminalCallStatus(form.CallStatus) {
		return
	}

	session, err := s.lookupForStatus(ctx, sessionID, form.CallSid)
	if err != nil {
		s.log.UpstreamError("telephony", fmt.Errorf("status callback for unknown call %q: %w", form.CallSid, err))
		return
	}

	finalStatus := repository.StatusCompleted
	if form.CallStatus != "completed" {
		finalStatus = repository.StatusFailed
	}
	session, transitioned, err := s.sessions.Complete(ctx, session.ID, finalStatus)
	if err != nil {
		s.log.DatabaseError("complete session", err)
		return
	}

	sid := form.CallSid
	if session.ProviderCallSID != nil {
		sid = *session.ProviderCallSID
	}

	callLogID, err := s.recorder.Reconcile(ctx, ReconcileParams{
		LeadID:          session.LeadID,
		ProviderCallSID: sid,
		Direction:       session.Direction,
		CallStatus:      form.CallStatus,
		Transcript:      renderTranscript(session.History),
		DemoAccepted:    transcriptAcceptedDemo(session, s.pb),
		Turns:           session.History,
	})
	if err != nil {
		s.log.DatabaseError("reconcile call log", err)
		return
	}

	if sid != "" {
		update := StatusUpdateParams{ProviderCallSID: sid, Status: form.CallStatus}
		if sec, err := strconv.Atoi(form.CallDuration); err == nil {
			update.DurationSec = &sec
		}
		if form.RecordingUrl != "" {
			update.RecordingURL = &form.RecordingUrl
		}
		if err := s.recorder.RecordStatus(ctx, update); err != nil {
			s.log.DatabaseError("record call status", err)
		}
	}

	if s.archiver != nil && form.RecordingUrl != "" {
		if err := s.archiver.EnqueueArchive(ctx, callLogID, form.RecordingUrl); err != nil {
			s.log.UpstreamError("scheduler", err)
		}
	}

	if transitioned {
		s.events.CallCompleted(ctx, session.LeadID, session.ID, session.StepIndex)
		s.log.CallEvent("completed", session.ID.String(), session.StepIndex)
	}
}

func (s *Service) lookupForStatus(ctx context.Context, sessionID uuid.UUID, callSID string) (repository.Session, error) {
	if sessionID != uuid.Nil {
		return s.sessions.GetByID(ctx, sessionID)
	}
	if callSID == "" {
		return repository.Session{}, ErrSessionNotFound
	}
	return s.sessions.GetByProviderCallSID(ctx, callSID)
}

// speakAndGather persists the assistant line and only then renders it.
func (s *Service) speakAndGather(ctx context.Context, session repository.Session, line string) string {
	session.History = append(session.History, ai.Turn{Role: "assistant", Content: line})
	session.LastPrompt = &line

	if _, err := s.sessions.SaveTurn(ctx, session); err != nil {
		s.log.DatabaseError("save turn", err)
		return s.goodbye()
	}

	return twiml.New(s.pb.Voice, s.pb.Language).
		GatherSpeech(line, s.continueURL(session.ID)).
		Redirect(s.continueURL(session.ID)).
		Render()
}

// closeWith persists the final line, marks the session done, converges the
// call log and hangs up.
func (s *Service) closeWith(ctx context.Context, session repository.Session, line string) string {
	session.History = append(session.History, ai.Turn{Role: "assistant", Content: line})
	session.LastPrompt = &line
	session.Status = repository.StatusCompleted

	if _, err := s.sessions.SaveTurn(ctx, session); err != nil {
		s.log.DatabaseError("save closing turn", err)
		return s.goodbye()
	}
	s.reconcileTurn(ctx, session)

	return twiml.New(s.pb.Voice, s.pb.Language).
		Say(line).
		Hangup().
		Render()
}

func (s *Service) goodbye() string {
	return twiml.New(s.pb.Voice, s.pb.Language).
		Say(s.pb.Closing).
		Hangup().
		Render()
}

func isTerminalCallStatus(status string) bool {
	switch status {
	case "completed", "busy", "no-answer", "failed", "canceled":
		return true
	}
	return false
}

func orElse(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func renderTranscript(history []ai.Turn) string {
	var b strings.Builder
	for i, turn := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}
	return b.String()
}

// parseTranscript is the inverse of renderTranscript: it recovers the turn
// sequence from the role-prefixed line rendering. Lines without a role
// prefix are continuations of the previous turn.
func parseTranscript(transcript string) []ai.Turn {
	if transcript == "" {
		return nil
	}
	var turns []ai.Turn
	for _, line := range strings.Split(transcript, "\n") {
		role, content, found := strings.Cut(line, ": ")
		if found && (role == "user" || role == "assistant") {
			turns = append(turns, ai.Turn{Role: role, Content: content})
			continue
		}
		if len(turns) > 0 {
			turns[len(turns)-1].Content += "\n" + line
		}
	}
	return turns
}

// transcriptAcceptedDemo re-derives the demo outcome from the stored history
// so the call log converges even when the status callback arrives on a
// replica that never saw the accepting turn.
func transcriptAcceptedDemo(session repository.Session, pb playbook.Playbook) bool {
	for _, turn := range session.History {
		if turn.Role != "user" {
			continue
		}
		if pb.MatchOutcome(turn.Content) == playbook.OutcomeDemoAccepted {
			return true
		}
	}
	return false
}
