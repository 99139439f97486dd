package reputation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/metrics"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/responder"
	"github.com/mozawave/market-watch/internal/sources"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/sirupsen/logrus"
)

// Pipeline ingests reviews and drives them through new -> ai_responded -> responded
type Pipeline struct {
	reviews   storage.ReviewStore
	entities  storage.EntityStore
	source    sources.ReviewSource
	generator responder.Generator
	policy    Policy
	clock     clock.Clock
	metrics   *metrics.Collector
	newID     func() string
}

// ProcessResult summarises one automatic pass
type ProcessResult struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// SyncResult summarises one profile sync
type SyncResult struct {
	Fetched int           `json:"fetched"`
	New     int           `json:"new"`
	Process ProcessResult `json:"process"`
}

// NewPipeline creates a review pipeline. source may be nil when reviews only
// arrive through Ingest.
func NewPipeline(reviews storage.ReviewStore, entities storage.EntityStore, source sources.ReviewSource, generator responder.Generator, policy Policy, c clock.Clock, m *metrics.Collector) *Pipeline {
	return &Pipeline{
		reviews:   reviews,
		entities:  entities,
		source:    source,
		generator: generator,
		policy:    policy,
		clock:     c,
		metrics:   m,
		newID:     uuid.NewString,
	}
}

// Ingest merges reviews into the store and returns the ones that were new.
// Duplicates by (platform, external id) are dropped.
func (p *Pipeline) Ingest(reviews []models.Review) []models.Review {
	now := p.clock.Now()

	var created []models.Review
	for _, r := range reviews {
		r = p.normalize(r, now)
		stored, isNew := p.reviews.Upsert(r)
		if !isNew {
			continue
		}
		p.metrics.ReviewIngested(string(stored.Sentiment))
		created = append(created, stored)
	}
	return created
}

func (p *Pipeline) normalize(r models.Review, now time.Time) models.Review {
	if r.ID == "" {
		r.ID = p.newID()
	}
	if !r.Sentiment.Valid() {
		r.Sentiment = ClassifySentiment(r.Content)
	}
	if r.Rating < 1 || r.Rating > 5 {
		r.Rating = RatingForSentiment(r.Sentiment)
	}
	if r.PublishedAt.IsZero() {
		r.PublishedAt = now
	}
	r.DetectedAt = now
	r.Status = models.ReviewNew
	r.AIResponse = nil
	return r
}

// Sync fetches reviews published since the given time, merges them and runs
// the automatic pass over the new ones
func (p *Pipeline) Sync(ctx context.Context, profile models.TrackedEntity, since time.Time) (SyncResult, error) {
	if p.source == nil || !p.source.IsEnabled() {
		return SyncResult{}, fmt.Errorf("no review source configured")
	}

	fetched, err := p.source.FetchReviews(ctx, profile, since)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetching reviews for %s: %w", profile.ID, err)
	}

	for i := range fetched {
		fetched[i].EntityID = profile.ID
	}
	created := p.Ingest(fetched)

	result := SyncResult{Fetched: len(fetched), New: len(created)}
	result.Process = p.process(ctx, created)

	logrus.WithFields(logrus.Fields{
		"entity_id": profile.ID,
		"fetched":   result.Fetched,
		"new":       result.New,
		"generated": result.Process.Generated,
	}).Info("Review sync completed")

	return result, nil
}

// ProcessPending drafts replies for every eligible review still in new.
// Reviews whose generation failed last time are retried here.
func (p *Pipeline) ProcessPending(ctx context.Context) ProcessResult {
	return p.process(ctx, p.reviews.List(""))
}

func (p *Pipeline) process(ctx context.Context, reviews []models.Review) ProcessResult {
	var result ProcessResult
	for _, r := range reviews {
		if ctx.Err() != nil {
			break
		}
		if r.Status != models.ReviewNew || !p.policy.Eligible(r) {
			result.Skipped++
			continue
		}
		_, err := p.GenerateAIResponse(ctx, r.ID)
		if errors.Is(err, responder.ErrNoNewDraft) {
			// left for a manual response
			result.Skipped++
			continue
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"review_id": r.ID,
				"entity_id": r.EntityID,
			}).Warnf("Failed to draft response: %v", err)
			result.Failed++
			continue
		}
		result.Generated++
	}
	return result
}

// GenerateAIResponse drafts a reply for a review in new. A generation failure
// leaves the review untouched.
func (p *Pipeline) GenerateAIResponse(ctx context.Context, reviewID string) (models.Review, error) {
	review, err := p.reviews.Get(reviewID)
	if err != nil {
		return models.Review{}, err
	}
	if review.Status != models.ReviewNew {
		return models.Review{}, fmt.Errorf("review %s is %s: %w", reviewID, review.Status, storage.ErrInvalidState)
	}

	tone := ToneFor(review.Sentiment)
	prompt := responder.Prompt{
		ReviewText:   review.Content,
		Rating:       review.Rating,
		Tone:         tone,
		BusinessName: p.businessName(review.EntityID),
		Platform:     review.Platform,
	}
	for _, f := range p.reviews.Feedback(reviewID) {
		prompt.Rejected = append(prompt.Rejected, responder.RejectedDraft{Content: f.Content, Feedback: f.Feedback})
	}

	draft, err := p.generator.Generate(ctx, prompt)
	if errors.Is(err, responder.ErrNoNewDraft) {
		return models.Review{}, fmt.Errorf("every %s draft for review %s was rejected: %w: %w", p.generator.Name(), reviewID, storage.ErrInvalidState, err)
	}
	if err != nil {
		p.metrics.AIResponse("failed")
		return models.Review{}, fmt.Errorf("%s generator: %w", p.generator.Name(), err)
	}

	now := p.clock.Now()
	updated, err := p.reviews.Update(reviewID, func(r *models.Review) error {
		if r.Status != models.ReviewNew {
			return fmt.Errorf("review %s is %s: %w", reviewID, r.Status, storage.ErrInvalidState)
		}
		r.AIResponse = &models.AIResponse{
			ID:          p.newID(),
			ReviewID:    reviewID,
			Tone:        tone,
			Content:     draft.Content,
			Confidence:  responder.ClampConfidence(draft.Confidence),
			Reasoning:   draft.Reasoning,
			GeneratedAt: now,
		}
		r.Status = models.ReviewAIResponded
		return nil
	})
	if err != nil {
		return models.Review{}, err
	}

	p.metrics.AIResponse("generated")
	return updated, nil
}

// ApproveAIResponse publishes a draft as the review's response
func (p *Pipeline) ApproveAIResponse(responseID, approver string) (models.Review, error) {
	review, err := p.reviews.FindByResponseID(responseID)
	if err != nil {
		return models.Review{}, err
	}

	now := p.clock.Now()
	updated, err := p.reviews.Update(review.ID, func(r *models.Review) error {
		if err := pendingDraft(r, responseID); err != nil {
			return err
		}
		r.AIResponse.ApprovedBy = approver
		r.AIResponse.ApprovedAt = &now
		r.AIResponse.SentAt = &now
		r.Response = r.AIResponse.Content
		r.RespondedBy = approver
		r.RespondedAt = &now
		r.Status = models.ReviewResponded
		return nil
	})
	if err != nil {
		return models.Review{}, err
	}

	p.metrics.AIResponse("approved")
	return updated, nil
}

// RejectAIResponse records feedback, detaches the draft and returns the
// review to new. The next draft is generated with the rejected ones and
// their feedback in its prompt.
func (p *Pipeline) RejectAIResponse(responseID, rejectedBy, feedback string) (models.Review, error) {
	review, err := p.reviews.FindByResponseID(responseID)
	if err != nil {
		return models.Review{}, err
	}

	var rejected models.AIResponse
	updated, err := p.reviews.Update(review.ID, func(r *models.Review) error {
		if err := pendingDraft(r, responseID); err != nil {
			return err
		}
		rejected = *r.AIResponse
		r.AIResponse = nil
		r.Status = models.ReviewNew
		return nil
	})
	if err != nil {
		return models.Review{}, err
	}

	p.reviews.AddFeedback(models.ResponseFeedback{
		ResponseID: rejected.ID,
		ReviewID:   review.ID,
		Tone:       rejected.Tone,
		Content:    rejected.Content,
		RejectedBy: rejectedBy,
		RejectedAt: p.clock.Now(),
		Feedback:   feedback,
	})
	p.metrics.AIResponse("rejected")
	return updated, nil
}

// RespondManually records a human-written response, replacing any pending draft
func (p *Pipeline) RespondManually(reviewID, respondedBy, text string) (models.Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Review{}, errors.New("response text is required")
	}

	now := p.clock.Now()
	return p.reviews.Update(reviewID, func(r *models.Review) error {
		if r.Status == models.ReviewResponded {
			return fmt.Errorf("review %s already responded: %w", reviewID, storage.ErrInvalidState)
		}
		r.AIResponse = nil
		r.Response = text
		r.RespondedBy = respondedBy
		r.RespondedAt = &now
		r.Status = models.ReviewResponded
		return nil
	})
}

// NeedingResponse lists reviews in new or with a draft awaiting approval
func (p *Pipeline) NeedingResponse() []models.Review {
	var result []models.Review
	for _, r := range p.reviews.List("") {
		if r.Status != models.ReviewResponded {
			result = append(result, r)
		}
	}
	return result
}

// GeneratorName names the configured drafting backend
func (p *Pipeline) GeneratorName() string {
	return p.generator.Name()
}

func pendingDraft(r *models.Review, responseID string) error {
	if r.Status != models.ReviewAIResponded || r.AIResponse == nil || r.AIResponse.ID != responseID {
		return fmt.Errorf("response %s is not awaiting approval: %w", responseID, storage.ErrInvalidState)
	}
	if r.AIResponse.Sent() {
		return fmt.Errorf("response %s already sent: %w", responseID, storage.ErrInvalidState)
	}
	return nil
}

func (p *Pipeline) businessName(entityID string) string {
	if p.entities == nil {
		return ""
	}
	entity, err := p.entities.Get(entityID)
	if err != nil {
		return ""
	}
	return entity.Name
}
