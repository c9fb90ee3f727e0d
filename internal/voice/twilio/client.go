// Package twilio is a thin REST client for originating calls. Webhook
// handling and TwiML rendering live elsewhere; this only covers the
// outbound API surface.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

const apiBase = "https://api.twilio.com/2010-04-01"

type Client struct {
	accountSID string
	authToken  string
	callerID   string
	baseURL    string
	http       *http.Client
	log        *logger.Logger
}

func NewClient(cfg config.TelephonyConfig, log *logger.Logger) *Client {
	if !cfg.IsTelephonyEnabled() {
		return nil
	}

	return &Client{
		accountSID: cfg.GetTwilioAccountSID(),
		authToken:  cfg.GetTwilioAuthToken(),
		callerID:   cfg.GetTelephonyCallerID(),
		baseURL:    apiBase,
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

type callResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// PlaceCallParams describes one outbound call. VoiceURL receives the webhook
// that returns the opening TwiML; StatusCallbackURL receives lifecycle
// callbacks (completed, busy, no-answer).
type PlaceCallParams struct {
	To                string
	VoiceURL          string
	StatusCallbackURL string
	RecordCall        bool
}

// PlaceCall originates a call and returns the provider call SID.
func (c *Client) PlaceCall(ctx context.Context, params PlaceCallParams) (string, error) {
	if c == nil {
		return "", fmt.Errorf("telephony is not configured")
	}

	form := url.Values{}
	form.Set("To", params.To)
	form.Set("From", c.callerID)
	form.Set("Url", params.VoiceURL)
	form.Set("Method", "POST")
	if params.StatusCallbackURL != "" {
		form.Set("StatusCallback", params.StatusCallbackURL)
		form.Set("StatusCallbackMethod", "POST")
		for _, event := range []string{"initiated", "ringing", "answered", "completed"} {
			form.Add("StatusCallbackEvent", event)
		}
	}
	if params.RecordCall {
		form.Set("Record", "true")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("twilio returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out callResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}

	c.log.Info("call originated", "call_sid", out.SID, "to", params.To)
	return out.SID, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}
