package reputation

import (
	"strings"

	"github.com/mozawave/market-watch/internal/models"
)

// Keyword weights. Matching is substring based on lower-cased text.
var (
	strongPositive = []string{"excellent", "amazing", "fantastic", "outstanding", "perfect", "best", "love", "incredible", "delicious"}
	mildPositive   = []string{"good", "great", "nice", "friendly", "tasty", "fresh", "helpful", "recommend", "clean", "quick"}
	strongNegative = []string{"terrible", "awful", "horrible", "worst", "disgusting", "hate", "never again", "inedible", "food poisoning"}
	mildNegative   = []string{"bad", "cold", "slow", "late", "dirty", "rude", "disappointed", "disappointing", "overpriced", "problem", "mediocre"}
)

// ClassifySentiment scores review text on the five-point scale
func ClassifySentiment(content string) models.Sentiment {
	content = strings.ToLower(content)

	score := 0
	for _, word := range strongPositive {
		if strings.Contains(content, word) {
			score += 2
		}
	}
	for _, word := range mildPositive {
		if strings.Contains(content, word) {
			score++
		}
	}
	for _, word := range strongNegative {
		if strings.Contains(content, word) {
			score -= 2
		}
	}
	for _, word := range mildNegative {
		if strings.Contains(content, word) {
			score--
		}
	}

	switch {
	case score >= 3:
		return models.SentimentVeryPositive
	case score >= 1:
		return models.SentimentPositive
	case score <= -3:
		return models.SentimentVeryNegative
	case score <= -1:
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

// RatingForSentiment maps the sentiment scale onto 1-5 stars. Sentiment
// determines rating, never the reverse.
func RatingForSentiment(s models.Sentiment) int {
	switch s {
	case models.SentimentVeryNegative:
		return 1
	case models.SentimentNegative:
		return 2
	case models.SentimentPositive:
		return 4
	case models.SentimentVeryPositive:
		return 5
	}
	return 3
}

// SentimentScore maps sentiment onto 0-100 for aggregation
func SentimentScore(s models.Sentiment) float64 {
	return float64(RatingForSentiment(s)-1) * 25
}
