package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	leadservice "outreach_backend/internal/leads/service"
	"outreach_backend/internal/leads/transport"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

const googleAdsQuery = `
SELECT
  lead_form_submission_data.lead_form_id,
  lead_form_submission_data.campaign,
  lead_form_submission_data.ad_group,
  lead_form_submission_data.lead_form_submission_fields,
  lead_form_submission_data.submission_datetime
FROM lead_form_submission_data
WHERE lead_form_submission_data.submission_datetime DURING LAST_7_DAYS
LIMIT 50`

type GoogleAdsFetcher struct {
	apiURL   string
	apiToken string
	http     *http.Client
	log      *logger.Logger
}

func NewGoogleAdsFetcher(cfg config.SyncConfig, log *logger.Logger) *GoogleAdsFetcher {
	return &GoogleAdsFetcher{
		apiURL:   strings.TrimRight(cfg.GetGoogleAdsAPIURL(), "/"),
		apiToken: cfg.GetGoogleAdsAPIToken(),
		http:     &http.Client{Timeout: 20 * time.Second},
		log:      log,
	}
}

func (g *GoogleAdsFetcher) Name() string { return string(transport.LeadSourceGoogleAds) }

func (g *GoogleAdsFetcher) Enabled() bool {
	return g.apiURL != "" && g.apiToken != ""
}

type googleAdsField struct {
	FieldType  string `json:"fieldType"`
	FieldValue string `json:"fieldValue"`
}

type googleAdsSubmission struct {
	LeadFormSubmissionData struct {
		LeadFormID               string           `json:"leadFormId"`
		Campaign                 string           `json:"campaign"`
		AdGroup                  string           `json:"adGroup"`
		LeadFormSubmissionFields []googleAdsField `json:"leadFormSubmissionFields"`
		SubmissionDateTime       string           `json:"submissionDateTime"`
	} `json:"leadFormSubmissionData"`
}

type googleAdsSearchResponse struct {
	Results []googleAdsSubmission `json:"results"`
}

func (g *GoogleAdsFetcher) Fetch(ctx context.Context) ([]leadservice.NormalizedLeadInput, error) {
	body, err := json.Marshal(map[string]string{"query": googleAdsQuery})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google ads request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google ads returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var search googleAdsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("decode google ads response: %w", err)
	}

	leads := make([]leadservice.NormalizedLeadInput, 0, len(search.Results))
	for _, row := range search.Results {
		leads = append(leads, mapGoogleAdsSubmission(row))
	}
	return leads, nil
}

func mapGoogleAdsSubmission(row googleAdsSubmission) leadservice.NormalizedLeadInput {
	fields := row.LeadFormSubmissionData.LeadFormSubmissionFields
	field := func(types ...string) string {
		for _, t := range types {
			for _, f := range fields {
				if f.FieldType == t && f.FieldValue != "" {
					return f.FieldValue
				}
			}
		}
		return ""
	}

	firstName := field("FULL_NAME", "FIRST_NAME")
	if firstName == "" {
		firstName = "Prospect"
	}

	// The lead form ID alone is not unique per submission; qualify it with
	// the submission timestamp so dedup keys stay stable across syncs.
	sourceID := row.LeadFormSubmissionData.LeadFormID
	if ts := row.LeadFormSubmissionData.SubmissionDateTime; sourceID != "" && ts != "" {
		sourceID = sourceID + ":" + ts
	}

	metadata, _ := json.Marshal(fields)

	return leadservice.NormalizedLeadInput{
		Source:       string(transport.LeadSourceGoogleAds),
		SourceID:     sourceID,
		FirstName:    firstName,
		LastName:     field("LAST_NAME"),
		Phone:        field("PHONE_NUMBER"),
		Email:        field("EMAIL"),
		City:         field("CITY", "POSTAL_CODE"),
		StudentGrade: field("GRADUATION_YEAR"),
		GuardianName: field("NAME"),
		StudentName:  field("FIRST_NAME"),
		CampaignName: row.LeadFormSubmissionData.Campaign,
		AdGroupName:  row.LeadFormSubmissionData.AdGroup,
		Metadata:     metadata,
	}
}

// SetAPIURL overrides the endpoint, used by tests.
func (g *GoogleAdsFetcher) SetAPIURL(u string) {
	g.apiURL = strings.TrimRight(u, "/")
}
