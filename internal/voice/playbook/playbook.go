// Package playbook holds the scripted parts of the call flow: the voice
// persona, canned lines and the phrase lists outcome detection matches on.
// Deployments override the defaults with a YAML file.
package playbook

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Playbook struct {
	Voice    string `yaml:"voice"`
	Language string `yaml:"language"`

	// Greeting is the opening line. {{name}} and {{exam}} are substituted.
	Greeting        string `yaml:"greeting"`
	InboundGreeting string `yaml:"inboundGreeting"`

	// Reprompt is spoken when a turn arrives while another is in flight.
	Reprompt string `yaml:"reprompt"`

	// DemoConfirmation confirms a demo booking when reply generation is
	// unavailable on the accepting turn.
	DemoConfirmation string `yaml:"demoConfirmation"`

	// Closing ends the call at the turn cap, on silence or on a decline.
	Closing string `yaml:"closing"`

	// Apology ends the call when reply generation fails.
	Apology string `yaml:"apology"`

	DemoPhrases    []string `yaml:"demoPhrases"`
	DeclinePhrases []string `yaml:"declinePhrases"`
}

// Default returns the built-in playbook used when no YAML override exists.
func Default() Playbook {
	return Playbook{
		Voice:    "Polly.Aditi",
		Language: "en-IN",
		Greeting: "Hello {{name}}! This is Priya from the academy, calling about {{exam}} preparation. " +
			"Is this a good time to talk for a minute?",
		InboundGreeting: "Hello! You have reached the academy admissions desk. " +
			"May I know which exam you are preparing for?",
		Reprompt:         "Sorry, I could not hear you. Could you please repeat that?",
		DemoConfirmation: "Wonderful! I have booked your free demo class. Our counsellor will share the details on this number shortly. Thank you!",
		Closing:          "Thank you for your time. Feel free to call us back any time. Have a great day!",
		Apology:          "Sorry, I am having trouble hearing you right now. Our counsellor will call you back shortly. Thank you!",
		DemoPhrases: []string{
			"book a demo",
			"schedule a demo",
			"yes demo",
			"confirm",
			"ok demo",
			"will join",
			"i will attend",
		},
		DeclinePhrases: []string{
			"not interested",
			"don't call",
			"do not call",
			"stop calling",
			"wrong number",
		},
	}
}

// Load reads a YAML playbook from path, filling gaps from the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (Playbook, error) {
	pb := Default()
	if path == "" {
		return pb, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Playbook{}, fmt.Errorf("read playbook %s: %w", path, err)
	}

	var override Playbook
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Playbook{}, fmt.Errorf("parse playbook %s: %w", path, err)
	}

	pb.apply(override)
	return pb, nil
}

func (pb *Playbook) apply(o Playbook) {
	if o.Voice != "" {
		pb.Voice = o.Voice
	}
	if o.Language != "" {
		pb.Language = o.Language
	}
	if o.Greeting != "" {
		pb.Greeting = o.Greeting
	}
	if o.InboundGreeting != "" {
		pb.InboundGreeting = o.InboundGreeting
	}
	if o.Reprompt != "" {
		pb.Reprompt = o.Reprompt
	}
	if o.DemoConfirmation != "" {
		pb.DemoConfirmation = o.DemoConfirmation
	}
	if o.Closing != "" {
		pb.Closing = o.Closing
	}
	if o.Apology != "" {
		pb.Apology = o.Apology
	}
	if len(o.DemoPhrases) > 0 {
		pb.DemoPhrases = o.DemoPhrases
	}
	if len(o.DeclinePhrases) > 0 {
		pb.DeclinePhrases = o.DeclinePhrases
	}
}

// RenderGreeting substitutes the lead name and exam into the greeting.
func (pb Playbook) RenderGreeting(name, exam string) string {
	line := pb.Greeting
	if name == "" {
		name = "there"
	}
	if exam == "" {
		exam = "entrance exam"
	}
	line = strings.ReplaceAll(line, "{{name}}", name)
	line = strings.ReplaceAll(line, "{{exam}}", exam)
	return line
}

// MatchOutcome classifies caller speech against the phrase lists. Matching
// is case-insensitive substring containment, mirroring how callers actually
// phrase acceptance mid-sentence.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeDemoAccepted
	OutcomeDeclined
)

func (pb Playbook) MatchOutcome(speech string) Outcome {
	normalized := strings.ToLower(speech)
	for _, phrase := range pb.DemoPhrases {
		if strings.Contains(normalized, phrase) {
			return OutcomeDemoAccepted
		}
	}
	for _, phrase := range pb.DeclinePhrases {
		if strings.Contains(normalized, phrase) {
			return OutcomeDeclined
		}
	}
	return OutcomeNone
}
