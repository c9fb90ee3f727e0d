// Package twiml is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only the verbs needed at the adapter boundary are included.
package twiml

import (
	"bytes"
	"encoding/xml"
)

type response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type sayVerb struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type gatherVerb struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`
	Say           *sayVerb `xml:"Say,omitempty"`
}

type redirectVerb struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

type hangupVerb struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Builder accumulates verbs and renders a single Response document.
type Builder struct {
	voice    string
	language string
	verbs    []any
}

func New(voice, language string) *Builder {
	return &Builder{voice: voice, language: language}
}

// Say queues a line of speech.
func (b *Builder) Say(text string) *Builder {
	b.verbs = append(b.verbs, sayVerb{Voice: b.voice, Language: b.language, Text: text})
	return b
}

// GatherSpeech queues a speech gather that prompts with the given text and
// posts the transcription to action.
func (b *Builder) GatherSpeech(prompt, action string) *Builder {
	g := gatherVerb{
		Input:         "speech",
		Action:        action,
		Method:        "POST",
		SpeechTimeout: "auto",
		Language:      b.language,
	}
	if prompt != "" {
		g.Say = &sayVerb{Voice: b.voice, Language: b.language, Text: prompt}
	}
	b.verbs = append(b.verbs, g)
	return b
}

// Redirect queues a redirect, used after a gather times out with no speech.
func (b *Builder) Redirect(url string) *Builder {
	b.verbs = append(b.verbs, redirectVerb{Method: "POST", URL: url})
	return b
}

// Hangup queues a hangup.
func (b *Builder) Hangup() *Builder {
	b.verbs = append(b.verbs, hangupVerb{})
	return b
}

// Render produces the XML document. Rendering is infallible for the verb set
// above; an encoder error degrades to a bare hangup document so the provider
// always receives valid TwiML.
func (b *Builder) Render() string {
	doc := response{Verbs: b.verbs}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return xml.Header + "<Response><Hangup/></Response>"
	}
	if err := enc.Flush(); err != nil {
		return xml.Header + "<Response><Hangup/></Response>"
	}
	return buf.String()
}
