package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/mozawave/market-watch/internal/models"
)

type reply struct {
	format    string // %s is the business name
	reasoning string
}

// replies lists the variants per tone in order of preference. A variant that
// was rejected for a review is not offered for it again.
var replies = map[models.Tone][]reply{
	models.ToneApologetic: {
		{"We're truly sorry your experience with %s fell short. This isn't the standard we hold ourselves to, and we'd like to make it right. Please reach out to us directly so we can look into what happened.", "negative review: acknowledge and move the conversation offline"},
		{"Thank you for telling us about this, and we're sorry. The team at %s has been made aware, and we would welcome the chance to talk it through with you personally. Please contact us so we can follow up.", "negative review: apologise and offer a personal follow-up"},
	},
	models.ToneGrateful: {
		{"Thank you so much for the kind words! Everyone at %s appreciates you taking the time to share your experience, and we look forward to seeing you again soon.", "positive review: thank the customer"},
		{"What a lovely review, thank you! It means a lot to the whole team at %s. We can't wait to welcome you back.", "positive review: warm thanks with an invitation back"},
	},
	models.ToneProfessional: {
		{"Thank you for your feedback. We read every review at %s and will share your comments with the team. Please don't hesitate to contact us if there is anything we can help with.", "neutral review: courteous acknowledgement"},
		{"Thanks for taking the time to review %s. Your comments help us improve, and we have passed them on to the team. We hope to see you again.", "neutral review: acknowledge and invite a return visit"},
	},
}

// Template drafts replies from fixed per-tone templates. It needs no
// credentials and is the default generator.
type Template struct{}

func NewTemplate() *Template {
	return &Template{}
}

func (t *Template) Name() string {
	return "template"
}

// Generate returns the first variant for the prompt's tone that no reviewer
// has rejected, or ErrNoNewDraft when all of them were.
func (t *Template) Generate(ctx context.Context, p Prompt) (*Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	business := p.BusinessName
	if business == "" {
		business = "our team"
	}

	variants, ok := replies[p.Tone]
	if !ok {
		variants = replies[models.ToneProfessional]
	}

	for _, v := range variants {
		content := fmt.Sprintf(v.format, business)
		if wasRejected(p.Rejected, content) {
			continue
		}

		confidence := 80
		if p.Rating == 1 || p.Rating == 5 {
			confidence = 90 // unambiguous reviews suit a template reply
		}
		return &Draft{
			Content:    content,
			Confidence: ClampConfidence(confidence),
			Reasoning:  v.reasoning,
		}, nil
	}

	return nil, ErrNoNewDraft
}

func wasRejected(rejected []RejectedDraft, content string) bool {
	for _, r := range rejected {
		if strings.TrimSpace(r.Content) == content {
			return true
		}
	}
	return false
}
