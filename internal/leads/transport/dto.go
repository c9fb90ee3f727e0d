package transport

import (
	"time"

	"github.com/google/uuid"
)

// Enum values
type LeadSource string

const (
	LeadSourceManual    LeadSource = "MANUAL"
	LeadSourceFacebook  LeadSource = "FACEBOOK"
	LeadSourceGoogleAds LeadSource = "GOOGLE_ADS"
	LeadSourceWebsite   LeadSource = "WEBSITE"
	LeadSourceUnknown   LeadSource = "UNKNOWN"
)

type LeadStatus string

const (
	LeadStatusNew           LeadStatus = "NEW"
	LeadStatusContacted     LeadStatus = "CONTACTED"
	LeadStatusDemoScheduled LeadStatus = "DEMO_SCHEDULED"
	LeadStatusEnrolled      LeadStatus = "ENROLLED"
	LeadStatusLost          LeadStatus = "LOST"
)

// Request DTOs
type CreateLeadRequest struct {
	FirstName     string `json:"firstName" validate:"required,min=1,max=100"`
	LastName      string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Phone         string `json:"phone" validate:"required,min=5,max=20"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	City          string `json:"city,omitempty" validate:"omitempty,max=100"`
	StudentGrade  string `json:"studentGrade,omitempty" validate:"omitempty,max=50"`
	PreferredExam string `json:"preferredExam,omitempty" validate:"omitempty,max=100"`
	GuardianName  string `json:"guardianName,omitempty" validate:"omitempty,max=100"`
	StudentName   string `json:"studentName,omitempty" validate:"omitempty,max=100"`
	Source        string `json:"source,omitempty" validate:"omitempty,oneof=MANUAL FACEBOOK GOOGLE_ADS WEBSITE"`
	SourceID      string `json:"sourceId,omitempty" validate:"omitempty,max=100"`
}

type UpdateLeadStatusRequest struct {
	Status LeadStatus `json:"status" validate:"required,oneof=NEW CONTACTED DEMO_SCHEDULED ENROLLED LOST"`
}

type OutboundCallRequest struct {
	LeadID uuid.UUID `json:"leadId" validate:"required"`
}

type SyncRequest struct {
	Channels []string `json:"channels,omitempty" validate:"omitempty,dive,oneof=FACEBOOK GOOGLE_ADS"`
}

// Response DTOs
type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	Source          string     `json:"source"`
	SourceID        *string    `json:"sourceId,omitempty"`
	FirstName       string     `json:"firstName"`
	LastName        *string    `json:"lastName,omitempty"`
	Phone           string     `json:"phone"`
	Email           *string    `json:"email,omitempty"`
	City            *string    `json:"city,omitempty"`
	StudentGrade    *string    `json:"studentGrade,omitempty"`
	PreferredExam   string     `json:"preferredExam"`
	GuardianName    *string    `json:"guardianName,omitempty"`
	StudentName     *string    `json:"studentName,omitempty"`
	CampaignName    *string    `json:"campaignName,omitempty"`
	AdGroupName     *string    `json:"adGroupName,omitempty"`
	Status          LeadStatus `json:"status"`
	CallCount       int        `json:"callCount"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	DemoScheduledAt *time.Time `json:"demoScheduledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type ResolveLeadResponse struct {
	Lead    LeadResponse `json:"lead"`
	Created bool         `json:"created"`
}

type CallLogEntry struct {
	ID          uuid.UUID `json:"id"`
	Direction   string    `json:"direction"`
	Status      string    `json:"status"`
	DurationSec *int      `json:"durationSeconds,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type LeadWithCalls struct {
	LeadResponse
	RecentCalls []CallLogEntry `json:"recentCalls"`
}

type SummaryResponse struct {
	Total       int             `json:"total"`
	ByStatus    map[string]int  `json:"byStatus"`
	DemosToday  int             `json:"demosToday"`
	CallsToday  int             `json:"callsToday"`
	RecentLeads []LeadWithCalls `json:"recentLeads"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

type ListLeadsResponse struct {
	Leads []LeadResponse `json:"leads"`
	Total int            `json:"total"`
}

type SyncChannelResult struct {
	Channel string `json:"channel"`
	Fetched int    `json:"fetched"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Error   string `json:"error,omitempty"`
}

type SyncResponse struct {
	Results []SyncChannelResult `json:"results"`
}
