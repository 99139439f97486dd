package models

import "time"

// Sentiment is the five-point review sentiment scale
type Sentiment string

const (
	SentimentVeryNegative Sentiment = "very_negative"
	SentimentNegative     Sentiment = "negative"
	SentimentNeutral      Sentiment = "neutral"
	SentimentPositive     Sentiment = "positive"
	SentimentVeryPositive Sentiment = "very_positive"
)

// Valid reports whether s is one of the five scale points
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentVeryNegative, SentimentNegative, SentimentNeutral, SentimentPositive, SentimentVeryPositive:
		return true
	}
	return false
}

// IsNegative covers negative and very_negative
func (s Sentiment) IsNegative() bool {
	return s == SentimentNegative || s == SentimentVeryNegative
}

// ReviewStatus tracks the response state of a review
type ReviewStatus string

const (
	ReviewNew         ReviewStatus = "new"
	ReviewAIResponded ReviewStatus = "ai_responded"
	ReviewResponded   ReviewStatus = "responded"
)

// Tone of a drafted response
type Tone string

const (
	ToneApologetic   Tone = "apologetic"
	ToneGrateful     Tone = "grateful"
	ToneProfessional Tone = "professional"
)

// Review is one customer review on a tracked reputation profile
type Review struct {
	ID          string       `json:"id"`
	EntityID    string       `json:"entity_id"`
	Platform    string       `json:"platform"`
	ExternalID  string       `json:"external_id"`
	Author      string       `json:"author"`
	Rating      int          `json:"rating"`
	Content     string       `json:"content"`
	Sentiment   Sentiment    `json:"sentiment"`
	Status      ReviewStatus `json:"status"`
	AIResponse  *AIResponse  `json:"ai_response,omitempty"`
	Response    string       `json:"response,omitempty"`
	RespondedBy string       `json:"responded_by,omitempty"`
	RespondedAt *time.Time   `json:"responded_at,omitempty"`
	PublishedAt time.Time    `json:"published_at"`
	DetectedAt  time.Time    `json:"detected_at"`
}

// AIResponse is a drafted reply waiting for a human decision
type AIResponse struct {
	ID          string     `json:"id"`
	ReviewID    string     `json:"review_id"`
	Tone        Tone       `json:"tone"`
	Content     string     `json:"content"`
	Confidence  int        `json:"confidence"`
	Reasoning   string     `json:"reasoning"`
	GeneratedAt time.Time  `json:"generated_at"`
	ApprovedBy  string     `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}

// Sent reports whether the response was approved and published
func (r *AIResponse) Sent() bool {
	return r != nil && r.SentAt != nil
}

// ResponseFeedback records a rejected draft for audit and prompt tuning
type ResponseFeedback struct {
	ResponseID string    `json:"response_id"`
	ReviewID   string    `json:"review_id"`
	Tone       Tone      `json:"tone"`
	Content    string    `json:"content"`
	RejectedBy string    `json:"rejected_by"`
	RejectedAt time.Time `json:"rejected_at"`
	Feedback   string    `json:"feedback"`
}
