package channels

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"outreach_backend/internal/leads/repository"
	leadservice "outreach_backend/internal/leads/service"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

type testSyncConfig struct {
	fbToken   string
	fbForms   []string
	gadsURL   string
	gadsToken string
}

func (c testSyncConfig) GetFacebookAccessToken() string   { return c.fbToken }
func (c testSyncConfig) GetFacebookLeadFormIDs() []string { return c.fbForms }
func (c testSyncConfig) GetGoogleAdsAPIURL() string       { return c.gadsURL }
func (c testSyncConfig) GetGoogleAdsAPIToken() string     { return c.gadsToken }
func (c testSyncConfig) GetDefaultPreferredExam() string  { return "Sainik School" }
func (c testSyncConfig) IsFacebookSyncEnabled() bool      { return c.fbToken != "" }
func (c testSyncConfig) IsGoogleAdsSyncEnabled() bool     { return c.gadsURL != "" }

// memRepo is the minimal in-memory lead store the resolver needs.
type memRepo struct {
	leads map[uuid.UUID]repository.Lead
}

func newMemRepo() *memRepo {
	return &memRepo{leads: map[uuid.UUID]repository.Lead{}}
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := m.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (m *memRepo) GetByPhone(_ context.Context, phone string) (repository.Lead, error) {
	for _, lead := range m.leads {
		if lead.Phone == phone {
			return lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (repository.Lead, error) {
	for _, lead := range m.leads {
		if lead.Email != nil && *lead.Email == email {
			return lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (m *memRepo) GetBySourceID(_ context.Context, source, sourceID string) (repository.Lead, error) {
	for _, lead := range m.leads {
		if lead.Source == source && lead.SourceID != nil && *lead.SourceID == sourceID {
			return lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (m *memRepo) List(_ context.Context, _ repository.ListParams) ([]repository.Lead, int, error) {
	return nil, 0, nil
}

func (m *memRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	lead := repository.Lead{
		ID:            uuid.New(),
		FirstName:     params.FirstName,
		LastName:      params.LastName,
		Phone:         params.Phone,
		Email:         params.Email,
		City:          params.City,
		StudentGrade:  params.StudentGrade,
		PreferredExam: params.PreferredExam,
		GuardianName:  params.GuardianName,
		StudentName:   params.StudentName,
		CampaignName:  params.CampaignName,
		AdGroupName:   params.AdGroupName,
		Metadata:      params.Metadata,
		Source:        params.Source,
		SourceID:      params.SourceID,
		Status:        params.Status,
	}
	m.leads[lead.ID] = lead
	return lead, nil
}

func (m *memRepo) Update(_ context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, ok := m.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.FirstName = params.FirstName
	lead.Phone = params.Phone
	lead.Email = params.Email
	lead.City = params.City
	lead.StudentGrade = params.StudentGrade
	lead.GuardianName = params.GuardianName
	lead.StudentName = params.StudentName
	lead.CampaignName = params.CampaignName
	lead.AdGroupName = params.AdGroupName
	lead.Metadata = params.Metadata
	lead.Source = params.Source
	lead.SourceID = params.SourceID
	lead.Status = params.Status
	m.leads[id] = lead
	return lead, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) (repository.Lead, error) {
	lead := m.leads[id]
	lead.Status = status
	m.leads[id] = lead
	return lead, nil
}

func (m *memRepo) MarkCalled(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	return m.leads[id], nil
}

func (m *memRepo) MarkContacted(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead := m.leads[id]
	lead.Status = "CONTACTED"
	m.leads[id] = lead
	return lead, nil
}

func (m *memRepo) ScheduleDemo(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead := m.leads[id]
	lead.Status = "DEMO_SCHEDULED"
	m.leads[id] = lead
	return lead, nil
}

func (m *memRepo) CountByStatus(_ context.Context) (repository.StatusCounts, error) {
	return repository.StatusCounts{}, nil
}

func (m *memRepo) CountCallsSince(_ context.Context, _ time.Time) (int, error) { return 0, nil }
func (m *memRepo) CountDemosSince(_ context.Context, _ time.Time) (int, error) { return 0, nil }

func (m *memRepo) ListRecentCalls(_ context.Context, _ []uuid.UUID, _ int) (map[uuid.UUID][]repository.RecentCall, error) {
	return nil, nil
}

type stubFetcher struct {
	name    string
	enabled bool
	inputs  []leadservice.NormalizedLeadInput
	err     error
}

func (s stubFetcher) Name() string    { return s.name }
func (s stubFetcher) Enabled() bool   { return s.enabled }
func (s stubFetcher) Fetch(_ context.Context) ([]leadservice.NormalizedLeadInput, error) {
	return s.inputs, s.err
}

func newTestResolver() (*leadservice.Service, *memRepo) {
	repo := newMemRepo()
	return leadservice.New(repo, logger.New("development"), "Sainik School"), repo
}

func TestSyncCountsCreatedAndUpdated(t *testing.T) {
	resolver, repo := newTestResolver()
	_, _, err := resolver.Resolve(context.Background(), leadservice.NormalizedLeadInput{
		FirstName: "Ravi",
		Phone:     "+919876543210",
	})
	if err != nil {
		t.Fatal(err)
	}

	syncer := NewSyncer(resolver, logger.New("development"), stubFetcher{
		name:    "FACEBOOK",
		enabled: true,
		inputs: []leadservice.NormalizedLeadInput{
			{FirstName: "Ravi", Phone: "+919876543210", Source: "FACEBOOK", SourceID: "fb-1"},
			{FirstName: "Asha", Phone: "+919811111111", Source: "FACEBOOK", SourceID: "fb-2"},
		},
	})

	results := syncer.Sync(context.Background(), nil)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.Fetched != 2 || r.Created != 1 || r.Updated != 1 {
		t.Errorf("fetched/created/updated = %d/%d/%d, want 2/1/1", r.Fetched, r.Created, r.Updated)
	}
	if len(repo.leads) != 2 {
		t.Errorf("stored leads = %d, want 2", len(repo.leads))
	}
}

func TestSyncSkipsBadRows(t *testing.T) {
	resolver, repo := newTestResolver()
	syncer := NewSyncer(resolver, logger.New("development"), stubFetcher{
		name:    "FACEBOOK",
		enabled: true,
		inputs: []leadservice.NormalizedLeadInput{
			{FirstName: "NoPhone", Source: "FACEBOOK", SourceID: "fb-bad"},
			{FirstName: "Asha", Phone: "+919811111111", Source: "FACEBOOK", SourceID: "fb-ok"},
		},
	})

	results := syncer.Sync(context.Background(), nil)
	if results[0].Created != 1 {
		t.Errorf("created = %d, the good row must still land", results[0].Created)
	}
	if len(repo.leads) != 1 {
		t.Errorf("stored leads = %d, want 1", len(repo.leads))
	}
}

func TestSyncChannelFailureIsIsolated(t *testing.T) {
	resolver, _ := newTestResolver()
	syncer := NewSyncer(resolver, logger.New("development"),
		stubFetcher{name: "FACEBOOK", enabled: true, err: errors.New("token expired")},
		stubFetcher{name: "GOOGLE_ADS", enabled: true, inputs: []leadservice.NormalizedLeadInput{
			{FirstName: "Asha", Phone: "+919811111111", Source: "GOOGLE_ADS", SourceID: "g-1"},
		}},
	)

	results := syncer.Sync(context.Background(), nil)
	if len(results) != 2 {
		t.Fatalf("results = %d, want both channels reported", len(results))
	}
	byChannel := map[string]int{}
	for _, r := range results {
		if r.Channel == "FACEBOOK" && r.Error == "" {
			t.Error("failed channel must carry its error")
		}
		byChannel[r.Channel] = r.Created
	}
	if byChannel["GOOGLE_ADS"] != 1 {
		t.Error("healthy channel must not be affected by the broken one")
	}
}

func TestSyncChannelFilter(t *testing.T) {
	resolver, _ := newTestResolver()
	syncer := NewSyncer(resolver, logger.New("development"),
		stubFetcher{name: "FACEBOOK", enabled: true},
		stubFetcher{name: "GOOGLE_ADS", enabled: true},
	)

	results := syncer.Sync(context.Background(), []string{"facebook"})
	if len(results) != 1 || results[0].Channel != "FACEBOOK" {
		t.Errorf("filter not applied: %+v", results)
	}
}

func TestSyncSkipsDisabledChannels(t *testing.T) {
	resolver, _ := newTestResolver()
	syncer := NewSyncer(resolver, logger.New("development"),
		stubFetcher{name: "FACEBOOK", enabled: false},
	)

	if syncer.HasEnabledChannels() {
		t.Error("HasEnabledChannels() = true with nothing configured")
	}
	if results := syncer.Sync(context.Background(), nil); len(results) != 0 {
		t.Errorf("disabled channels must not run: %+v", results)
	}
}

func TestFacebookFetchMapsFieldData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "fb-token" {
			t.Error("access token not sent")
		}
		_, _ = w.Write([]byte(`{"data":[{
			"id":"lead-1",
			"created_time":"2026-08-30T10:00:00+0000",
			"field_data":[
				{"name":"full_name","values":["Ravi Kumar"]},
				{"name":"phone_number","values":["+919876543210"]},
				{"name":"email","values":["ravi@example.com"]},
				{"name":"city","values":["Pune"]},
				{"name":"student_class","values":["Class 9"]},
				{"name":"guardian_name","values":["Mrs Kumar"]},
				{"name":"student_name","values":["Arjun"]}
			]
		},{
			"id":"lead-2",
			"field_data":[{"name":"phone_number","values":["+919811111111"]}]
		}]}`))
	}))
	defer srv.Close()

	fetcher := NewFacebookFetcher(testSyncConfig{fbToken: "fb-token", fbForms: []string{"form-1"}}, logger.New("development"))
	fetcher.SetBaseURL(srv.URL)

	inputs, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("inputs = %d, want 2", len(inputs))
	}
	got := inputs[0]
	if got.FirstName != "Ravi Kumar" || got.Phone != "+919876543210" || got.City != "Pune" {
		t.Errorf("mapped lead = %+v", got)
	}
	if got.StudentGrade != "Class 9" || got.GuardianName != "Mrs Kumar" || got.StudentName != "Arjun" {
		t.Errorf("student profile fields = %q/%q/%q", got.StudentGrade, got.GuardianName, got.StudentName)
	}
	if len(got.Metadata) == 0 || !strings.Contains(string(got.Metadata), "student_class") {
		t.Errorf("Metadata = %s, want the raw field data preserved", got.Metadata)
	}
	if got.Source != "FACEBOOK" || got.SourceID != "lead-1" {
		t.Errorf("source identity = %s/%s", got.Source, got.SourceID)
	}
	if inputs[1].FirstName != "Prospect" {
		t.Errorf("nameless submission FirstName = %q, want Prospect", inputs[1].FirstName)
	}
}

func TestFacebookFetchSkipsFailingForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken/leads" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"ok-1","field_data":[{"name":"phone_number","values":["+919811111111"]}]}]}`))
	}))
	defer srv.Close()

	fetcher := NewFacebookFetcher(testSyncConfig{fbToken: "t", fbForms: []string{"broken", "healthy"}}, logger.New("development"))
	fetcher.SetBaseURL(srv.URL)

	inputs, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(inputs) != 1 || inputs[0].SourceID != "ok-1" {
		t.Errorf("inputs = %+v, want only the healthy form's lead", inputs)
	}
}

func TestGoogleAdsFetchMapsSubmissions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gads-token" {
			t.Error("bearer token not sent")
		}
		_, _ = w.Write([]byte(`{"results":[{
			"leadFormSubmissionData":{
				"leadFormId":"form-9",
				"campaign":"customers/1/campaigns/42",
				"adGroup":"customers/1/adGroups/7",
				"submissionDateTime":"2026-08-30 10:00:00",
				"leadFormSubmissionFields":[
					{"fieldType":"FULL_NAME","fieldValue":"Asha Singh"},
					{"fieldType":"PHONE_NUMBER","fieldValue":"+919811111111"},
					{"fieldType":"EMAIL","fieldValue":"asha@example.com"},
					{"fieldType":"CITY","fieldValue":"Nashik"},
					{"fieldType":"GRADUATION_YEAR","fieldValue":"2028"},
					{"fieldType":"NAME","fieldValue":"Mr Singh"}
				]
			}
		}]}`))
	}))
	defer srv.Close()

	fetcher := NewGoogleAdsFetcher(testSyncConfig{gadsURL: "ignored", gadsToken: "gads-token"}, logger.New("development"))
	fetcher.SetAPIURL(srv.URL)

	inputs, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("inputs = %d, want 1", len(inputs))
	}
	got := inputs[0]
	if got.FirstName != "Asha Singh" || got.Phone != "+919811111111" || got.City != "Nashik" {
		t.Errorf("mapped lead = %+v", got)
	}
	if got.StudentGrade != "2028" || got.GuardianName != "Mr Singh" {
		t.Errorf("student profile fields = %q/%q", got.StudentGrade, got.GuardianName)
	}
	if got.CampaignName != "customers/1/campaigns/42" || got.AdGroupName != "customers/1/adGroups/7" {
		t.Errorf("campaign attribution = %q/%q", got.CampaignName, got.AdGroupName)
	}
	if got.SourceID != "form-9:2026-08-30 10:00:00" {
		t.Errorf("SourceID = %q, want form id qualified with submission time", got.SourceID)
	}
}
