package reputation

import (
	"strings"
	"unicode/utf8"

	"github.com/mozawave/market-watch/internal/models"
)

const DefaultPositiveMinChars = 80

// Policy decides which reviews get an automatic draft
type Policy struct {
	// PositiveMinChars is the shortest positive review that still gets a draft.
	// Short praise is better left to a human.
	PositiveMinChars int
}

func DefaultPolicy() Policy {
	return Policy{PositiveMinChars: DefaultPositiveMinChars}
}

// Eligible reports whether the automatic pass may draft a reply for r.
// very_positive is never eligible; negative, very_negative and neutral always are.
func (p Policy) Eligible(r models.Review) bool {
	switch r.Sentiment {
	case models.SentimentVeryPositive:
		return false
	case models.SentimentVeryNegative, models.SentimentNegative, models.SentimentNeutral:
		return true
	case models.SentimentPositive:
		return utf8.RuneCountInString(strings.TrimSpace(r.Content)) >= p.PositiveMinChars
	}
	return false
}

// ToneFor is the fixed sentiment to tone mapping
func ToneFor(s models.Sentiment) models.Tone {
	switch s {
	case models.SentimentVeryNegative, models.SentimentNegative:
		return models.ToneApologetic
	case models.SentimentPositive, models.SentimentVeryPositive:
		return models.ToneGrateful
	}
	return models.ToneProfessional
}
