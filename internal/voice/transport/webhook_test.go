package transport

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func postForm(t *testing.T, form url.Values) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest("POST", "/webhooks/voice/continue", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestParseVoiceWebhook(t *testing.T) {
	form := url.Values{
		"CallSid":      {"CA123"},
		"AccountSid":   {"AC456"},
		"From":         {" +919876543210 "},
		"To":           {"+15550001111"},
		"Direction":    {"inbound"},
		"CallStatus":   {"in-progress"},
		"SpeechResult": {"  yes please book a demo  "},
		"Confidence":   {"0.87"},
		"CallDuration": {"42"},
		"RecordingUrl": {"https://api.twilio.com/recordings/RE1"},
		"RecordingSid": {"RE1"},
	}

	got := ParseVoiceWebhook(postForm(t, form))

	if got.CallSid != "CA123" || got.AccountSid != "AC456" {
		t.Errorf("SIDs = %q/%q", got.CallSid, got.AccountSid)
	}
	if got.From != "+919876543210" {
		t.Errorf("From = %q, want whitespace trimmed", got.From)
	}
	if got.SpeechResult != "yes please book a demo" {
		t.Errorf("SpeechResult = %q, want whitespace trimmed", got.SpeechResult)
	}
	if got.CallStatus != "in-progress" || got.CallDuration != "42" {
		t.Errorf("status/duration = %q/%q", got.CallStatus, got.CallDuration)
	}
	if got.RecordingUrl != "https://api.twilio.com/recordings/RE1" {
		t.Errorf("RecordingUrl = %q", got.RecordingUrl)
	}
}

func TestParseVoiceWebhookEmptyBody(t *testing.T) {
	got := ParseVoiceWebhook(postForm(t, url.Values{}))

	if got.CallSid != "" || got.SpeechResult != "" {
		t.Errorf("empty form must parse to zero values, got %+v", got)
	}
}
