package ai

import "testing"

func TestSanitizeForSpeech(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain sentence", "plain sentence"},
		{"**bold** claim", "bold claim"},
		{"line one\nline two", "line one line two"},
		{"# heading\n- `code`", "heading - code"},
		{"  spaced   out  ", "spaced out"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sanitizeForSpeech(tt.in); got != tt.want {
			t.Errorf("sanitizeForSpeech(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
