package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"outreach_backend/platform/logger"
)

type testTelephonyConfig struct{}

func (testTelephonyConfig) GetTwilioAccountSID() string  { return "AC123" }
func (testTelephonyConfig) GetTwilioAuthToken() string   { return "secret" }
func (testTelephonyConfig) GetTelephonyCallerID() string { return "+15550001111" }
func (testTelephonyConfig) GetPublicBaseURL() string     { return "https://api.example.com" }
func (testTelephonyConfig) GetVoiceTurnCap() int         { return 6 }
func (testTelephonyConfig) GetVoicePlaybookPath() string { return "" }
func (testTelephonyConfig) IsTelephonyEnabled() bool     { return true }

type disabledTelephonyConfig struct{ testTelephonyConfig }

func (disabledTelephonyConfig) IsTelephonyEnabled() bool { return false }

func TestNewClientDisabled(t *testing.T) {
	if c := NewClient(disabledTelephonyConfig{}, logger.New("development")); c != nil {
		t.Fatal("NewClient() != nil without credentials")
	}
}

func TestPlaceCall(t *testing.T) {
	var gotForm url.Values
	var gotPath, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA999","status":"queued"}`))
	}))
	defer srv.Close()

	client := NewClient(testTelephonyConfig{}, logger.New("development"))
	client.SetBaseURL(srv.URL)

	sid, err := client.PlaceCall(context.Background(), PlaceCallParams{
		To:                "+919876543210",
		VoiceURL:          "https://api.example.com/webhooks/voice/outbound?session=abc",
		StatusCallbackURL: "https://api.example.com/webhooks/voice/status?session=abc",
		RecordCall:        true,
	})
	if err != nil {
		t.Fatalf("PlaceCall() error = %v", err)
	}
	if sid != "CA999" {
		t.Errorf("sid = %q, want CA999", sid)
	}
	if gotPath != "/Accounts/AC123/Calls.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "AC123" || gotPass != "secret" {
		t.Error("request not authenticated with account SID and token")
	}
	if gotForm.Get("To") != "+919876543210" || gotForm.Get("From") != "+15550001111" {
		t.Errorf("To/From = %q/%q", gotForm.Get("To"), gotForm.Get("From"))
	}
	if gotForm.Get("Url") != "https://api.example.com/webhooks/voice/outbound?session=abc" {
		t.Errorf("Url = %q", gotForm.Get("Url"))
	}
	if gotForm.Get("Record") != "true" {
		t.Error("recording not requested")
	}
	if gotForm.Get("StatusCallback") == "" || gotForm.Get("StatusCallbackMethod") != "POST" {
		t.Error("status callback not wired")
	}
	if events := gotForm["StatusCallbackEvent"]; len(events) != 4 {
		t.Errorf("StatusCallbackEvent = %v, want all four lifecycle events", events)
	}
}

func TestPlaceCallProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code": 20003, "message": "Authenticate"}`))
	}))
	defer srv.Close()

	client := NewClient(testTelephonyConfig{}, logger.New("development"))
	client.SetBaseURL(srv.URL)

	if _, err := client.PlaceCall(context.Background(), PlaceCallParams{To: "+919876543210"}); err == nil {
		t.Fatal("PlaceCall() error = nil, want provider error")
	}
}

func TestPlaceCallNilClient(t *testing.T) {
	var client *Client
	if _, err := client.PlaceCall(context.Background(), PlaceCallParams{}); err == nil {
		t.Fatal("nil client must refuse to place calls")
	}
}
