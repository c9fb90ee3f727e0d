package playbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPlaybook(t *testing.T) {
	pb := Default()

	if pb.Voice != "Polly.Aditi" {
		t.Errorf("Voice = %q, want Polly.Aditi", pb.Voice)
	}
	if pb.Language != "en-IN" {
		t.Errorf("Language = %q, want en-IN", pb.Language)
	}
	if len(pb.DemoPhrases) == 0 || len(pb.DeclinePhrases) == 0 {
		t.Fatal("default phrase lists must not be empty")
	}
}

func TestRenderGreeting(t *testing.T) {
	pb := Default()

	tests := []struct {
		name     string
		leadName string
		exam     string
		want     []string
	}{
		{"full substitution", "Ravi", "NDA", []string{"Ravi", "NDA"}},
		{"missing name falls back", "", "NDA", []string{"there", "NDA"}},
		{"missing exam falls back", "Ravi", "", []string{"Ravi", "entrance exam"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pb.RenderGreeting(tt.leadName, tt.exam)
			if strings.Contains(got, "{{") {
				t.Errorf("unsubstituted placeholder in %q", got)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("RenderGreeting() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestMatchOutcome(t *testing.T) {
	pb := Default()

	tests := []struct {
		speech string
		want   Outcome
	}{
		{"yes please book a demo for my son", OutcomeDemoAccepted},
		{"OK DEMO", OutcomeDemoAccepted},
		{"I will attend the class", OutcomeDemoAccepted},
		{"confirm", OutcomeDemoAccepted},
		{"I am not interested, thanks", OutcomeDeclined},
		{"please don't call again", OutcomeDeclined},
		{"this is a wrong number", OutcomeDeclined},
		{"how much are the fees", OutcomeNone},
		{"", OutcomeNone},
	}

	for _, tt := range tests {
		if got := pb.MatchOutcome(tt.speech); got != tt.want {
			t.Errorf("MatchOutcome(%q) = %v, want %v", tt.speech, got, tt.want)
		}
	}
}

func TestLoadMergesOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "playbook.yaml")
	override := `
voice: Polly.Raveena
greeting: "Namaste {{name}}!"
demoPhrases:
  - "haan demo"
`
	if err := os.WriteFile(path, []byte(override), 0o600); err != nil {
		t.Fatal(err)
	}

	pb, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if pb.Voice != "Polly.Raveena" {
		t.Errorf("Voice = %q, override not applied", pb.Voice)
	}
	if pb.Greeting != "Namaste {{name}}!" {
		t.Errorf("Greeting = %q, override not applied", pb.Greeting)
	}
	if pb.Language != "en-IN" {
		t.Errorf("Language = %q, gaps must fall back to defaults", pb.Language)
	}
	if pb.MatchOutcome("haan demo chahiye") != OutcomeDemoAccepted {
		t.Error("overridden demo phrases not used for outcome matching")
	}
	if pb.MatchOutcome("book a demo") != OutcomeNone {
		t.Error("override must replace the default phrase list, not extend it")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	pb, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if pb.Voice != Default().Voice {
		t.Errorf("Load(\"\") Voice = %q, want defaults", pb.Voice)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() error = nil for missing file")
	}
}
