// Package ai generates counsellor replies for live telephone conversations.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Turn is one exchange in a call transcript. Role is "assistant" for lines
// spoken by the counsellor voice and "user" for caller speech.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces the next counsellor line given the conversation so far.
type Generator interface {
	Reply(ctx context.Context, history []Turn, leadName, preferredExam string) (string, error)
}

const systemPromptTemplate = `You are Priya, a friendly admissions counsellor at a defence exam coaching academy.
You are speaking with %s, a parent or student interested in %s preparation, on a live phone call.

Rules:
- Keep every reply under 40 words. It will be read aloud by a voice assistant.
- Speak simple, warm Indian English. No markdown, no lists, no emoji.
- Your goal is to get the caller to agree to a free demo class.
- If the caller agrees to a demo, confirm the demo warmly and say a counsellor will share the details on this number.
- If the caller is not interested, thank them politely and end the conversation.
- Never invent fees, dates or exam results.`

// GeminiGenerator talks to the Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Reply generates the next counsellor line. The call is bounded by the
// configured timeout; callers treat an error as a signal to close the call
// gracefully rather than leave the caller waiting.
func (g *GeminiGenerator) Reply(ctx context.Context, history []Turn, leadName, preferredExam string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if leadName == "" {
		leadName = "the caller"
	}
	if preferredExam == "" {
		preferredExam = "entrance exam"
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText("Hello?", genai.RoleUser))
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			fmt.Sprintf(systemPromptTemplate, leadName, preferredExam), genai.RoleUser),
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 120,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	reply := strings.TrimSpace(result.Text())
	if reply == "" {
		return "", fmt.Errorf("gemini returned an empty reply")
	}
	return sanitizeForSpeech(reply), nil
}

// sanitizeForSpeech strips formatting artifacts the model occasionally emits
// despite the prompt. The output is fed directly into text-to-speech.
func sanitizeForSpeech(s string) string {
	replacer := strings.NewReplacer("*", "", "#", "", "`", "", "\n", " ")
	s = replacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
