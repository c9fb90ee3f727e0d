// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"outreach_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when the resolver creates a brand-new lead.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	Source string    `json:"source"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// =============================================================================
// Voice Domain Events
// =============================================================================

// DemoScheduled is published when outcome detection marks a lead as having
// accepted a demo class during a call.
type DemoScheduled struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	LeadName  string    `json:"leadName"`
	Phone     string    `json:"phone"`
	SessionID uuid.UUID `json:"sessionId"`
}

func (e DemoScheduled) EventName() string { return "voice.demo_scheduled" }

// CallCompleted is published when a call session reaches its terminal state.
type CallCompleted struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	SessionID uuid.UUID `json:"sessionId"`
	Turns     int       `json:"turns"`
}

func (e CallCompleted) EventName() string { return "voice.call_completed" }
