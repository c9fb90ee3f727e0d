package twiml

import (
	"strings"
	"testing"
)

func TestRenderSayHangup(t *testing.T) {
	got := New("Polly.Aditi", "en-IN").
		Say("Thank you for your time.").
		Hangup().
		Render()

	if !strings.HasPrefix(got, "<?xml") {
		t.Errorf("missing XML declaration:\n%s", got)
	}
	for _, want := range []string{
		`<Say voice="Polly.Aditi" language="en-IN">Thank you for your time.</Say>`,
		`<Hangup></Hangup>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered document missing %s:\n%s", want, got)
		}
	}
}

func TestRenderGatherSpeech(t *testing.T) {
	got := New("Polly.Aditi", "en-IN").
		GatherSpeech("Is this a good time to talk?", "https://api.example.com/webhooks/voice/continue?session=abc").
		Redirect("https://api.example.com/webhooks/voice/continue?session=abc").
		Render()

	for _, want := range []string{
		`input="speech"`,
		`method="POST"`,
		`speechTimeout="auto"`,
		`action="https://api.example.com/webhooks/voice/continue?session=abc"`,
		`<Say voice="Polly.Aditi" language="en-IN">Is this a good time to talk?</Say>`,
		`<Redirect method="POST">https://api.example.com/webhooks/voice/continue?session=abc</Redirect>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered document missing %s:\n%s", want, got)
		}
	}
}

func TestRenderGatherWithoutPromptOmitsSay(t *testing.T) {
	got := New("", "").GatherSpeech("", "/continue").Render()

	if strings.Contains(got, "<Say") {
		t.Errorf("empty prompt must not render a Say verb:\n%s", got)
	}
}

func TestRenderEscapesSpeech(t *testing.T) {
	got := New("Polly.Aditi", "en-IN").Say(`Fees are <5000> & "negotiable"`).Render()

	if strings.Contains(got, "<5000>") {
		t.Errorf("speech text not XML-escaped:\n%s", got)
	}
	if !strings.Contains(got, "&lt;5000&gt;") {
		t.Errorf("expected escaped angle brackets:\n%s", got)
	}
}

func TestRenderVerbOrderPreserved(t *testing.T) {
	got := New("Polly.Aditi", "en-IN").
		Say("first").
		Say("second").
		Hangup().
		Render()

	first := strings.Index(got, "first")
	second := strings.Index(got, "second")
	hangup := strings.Index(got, "<Hangup")
	if first < 0 || second < 0 || hangup < 0 {
		t.Fatalf("rendered document incomplete:\n%s", got)
	}
	if !(first < second && second < hangup) {
		t.Errorf("verbs rendered out of order:\n%s", got)
	}
}
