package responder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mozawave/market-watch/internal/models"
)

const (
	MinConfidence = 70
	MaxConfidence = 100
)

// Prompt carries everything a generator may use to draft a reply
type Prompt struct {
	ReviewText   string
	Rating       int
	Tone         models.Tone
	BusinessName string
	Platform     string
	// Rejected holds earlier drafts for the same review, oldest first
	Rejected []RejectedDraft
}

// RejectedDraft is a reply a reviewer turned down, with their note
type RejectedDraft struct {
	Content  string
	Feedback string
}

// ErrNoNewDraft means no reply distinct from the rejected drafts is available
var ErrNoNewDraft = errors.New("no draft distinct from rejected ones")

// Draft is a generated reply. Confidence is always within MinConfidence..MaxConfidence.
type Draft struct {
	Content    string `json:"content"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// Generator turns a prompt into a draft reply
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (*Draft, error)
}

const systemPrompt = `You write public replies to customer reviews on behalf of a local business.
Keep replies under 120 words, never invent facts, never offer refunds or discounts,
and never mention that you are automated.
Respond with a JSON object: {"content": string, "confidence": integer 0-100, "reasoning": string}.`

// BuildPrompt renders the user message for LLM-backed generators. The output is
// a pure function of the prompt fields.
func BuildPrompt(p Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s\n", p.BusinessName)
	fmt.Fprintf(&b, "Platform: %s\n", p.Platform)
	fmt.Fprintf(&b, "Rating: %d/5\n", p.Rating)
	fmt.Fprintf(&b, "Tone: %s\n", p.Tone)
	switch p.Tone {
	case models.ToneApologetic:
		b.WriteString("Acknowledge the problem, apologise sincerely and invite the customer to get in touch directly.\n")
	case models.ToneGrateful:
		b.WriteString("Thank the customer warmly and mention something specific from their review.\n")
	default:
		b.WriteString("Reply courteously and address any concern raised.\n")
	}
	b.WriteString("\nReview:\n")
	b.WriteString(strings.TrimSpace(p.ReviewText))
	b.WriteString("\n")
	if len(p.Rejected) > 0 {
		b.WriteString("\nThese earlier replies were rejected. Write a clearly different reply that addresses the feedback:\n")
		for i, r := range p.Rejected {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(r.Content))
			if note := strings.TrimSpace(r.Feedback); note != "" {
				fmt.Fprintf(&b, "   Feedback: %s\n", note)
			}
		}
	}
	return b.String()
}

// ClampConfidence forces c into MinConfidence..MaxConfidence
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// parseDraft decodes a JSON draft from model output, tolerating code fences
func parseDraft(raw string) (*Draft, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var d Draft
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return nil, fmt.Errorf("malformed draft: %w", err)
	}
	d.Content = strings.TrimSpace(d.Content)
	if d.Content == "" {
		return nil, fmt.Errorf("model returned an empty reply")
	}
	d.Confidence = ClampConfidence(d.Confidence)
	return &d, nil
}
