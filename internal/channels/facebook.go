// Package channels pulls leads out of the advertising platforms and maps
// them into the resolver's normalized input.
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	leadservice "outreach_backend/internal/leads/service"
	"outreach_backend/internal/leads/transport"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Fetcher is one advertising channel.
type Fetcher interface {
	Name() string
	Enabled() bool
	Fetch(ctx context.Context) ([]leadservice.NormalizedLeadInput, error)
}

const facebookGraphBase = "https://graph.facebook.com/v19.0"

type FacebookFetcher struct {
	accessToken string
	formIDs     []string
	baseURL     string
	http        *http.Client
	log         *logger.Logger
}

func NewFacebookFetcher(cfg config.SyncConfig, log *logger.Logger) *FacebookFetcher {
	return &FacebookFetcher{
		accessToken: cfg.GetFacebookAccessToken(),
		formIDs:     cfg.GetFacebookLeadFormIDs(),
		baseURL:     facebookGraphBase,
		http:        &http.Client{Timeout: 20 * time.Second},
		log:         log,
	}
}

func (f *FacebookFetcher) Name() string { return string(transport.LeadSourceFacebook) }

func (f *FacebookFetcher) Enabled() bool {
	return f.accessToken != "" && len(f.formIDs) > 0
}

type facebookField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type facebookLead struct {
	ID          string          `json:"id"`
	CreatedTime string          `json:"created_time"`
	FieldData   []facebookField `json:"field_data"`
}

type facebookPage struct {
	Data []facebookLead `json:"data"`
}

// Fetch pulls the latest submissions from every configured lead form. A
// failing form is skipped so one revoked form cannot starve the others.
func (f *FacebookFetcher) Fetch(ctx context.Context) ([]leadservice.NormalizedLeadInput, error) {
	out := make([]leadservice.NormalizedLeadInput, 0)

	for _, formID := range f.formIDs {
		leads, err := f.fetchForm(ctx, formID)
		if err != nil {
			f.log.UpstreamError("facebook", fmt.Errorf("form %s: %w", formID, err))
			continue
		}
		out = append(out, leads...)
	}
	return out, nil
}

func (f *FacebookFetcher) fetchForm(ctx context.Context, formID string) ([]leadservice.NormalizedLeadInput, error) {
	endpoint := fmt.Sprintf("%s/%s/leads?%s", f.baseURL, formID, url.Values{
		"access_token": {f.accessToken},
		"limit":        {"50"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("facebook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var page facebookPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode facebook page: %w", err)
	}

	leads := make([]leadservice.NormalizedLeadInput, 0, len(page.Data))
	for _, raw := range page.Data {
		leads = append(leads, mapFacebookLead(raw))
	}
	return leads, nil
}

func mapFacebookLead(raw facebookLead) leadservice.NormalizedLeadInput {
	field := func(keys ...string) string {
		for _, key := range keys {
			for _, fd := range raw.FieldData {
				if fd.Name == key && len(fd.Values) > 0 {
					return fd.Values[0]
				}
			}
		}
		return ""
	}

	firstName := field("first_name", "full_name")
	if firstName == "" {
		firstName = "Prospect"
	}

	metadata, _ := json.Marshal(raw.FieldData)

	return leadservice.NormalizedLeadInput{
		Source:        string(transport.LeadSourceFacebook),
		SourceID:      raw.ID,
		FirstName:     firstName,
		LastName:      field("last_name"),
		Phone:         field("phone_number"),
		Email:         field("email"),
		City:          field("city"),
		StudentGrade:  field("student_class"),
		PreferredExam: field("preferred_exam"),
		GuardianName:  field("guardian_name"),
		StudentName:   field("student_name"),
		Metadata:      metadata,
	}
}

// SetBaseURL overrides the Graph API endpoint, used by tests.
func (f *FacebookFetcher) SetBaseURL(base string) {
	f.baseURL = strings.TrimRight(base, "/")
}
