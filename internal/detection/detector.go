package detection

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/models"
)

// Fixed per-type confidence reflecting how directly the source exposes the value
const (
	ConfidenceRating       = 90
	ConfidencePricing      = 85
	ConfidenceReviewVolume = 80
	ConfidenceService      = 75
	ConfidenceSocial       = 70
)

// Noise thresholds a delta must exceed before a change is emitted
const (
	RatingNoise    = 0.1
	PriceTierNoise = 1 // inclusive
	FollowerNoise  = 100
	PostNoise      = 10
)

// Detector diffs a fresh snapshot against the stored baseline
type Detector struct {
	clock clock.Clock
	newID func() string
}

// NewDetector creates a detector stamping changes with c
func NewDetector(c clock.Clock) *Detector {
	return &Detector{clock: c, newID: uuid.NewString}
}

// DetectChanges returns the changes between previous and current. A nil
// previous snapshot is a first scan: it only establishes the baseline.
func (d *Detector) DetectChanges(entity models.TrackedEntity, previous *models.SourceSnapshot, current models.SourceSnapshot) []models.Change {
	if previous == nil {
		return nil
	}

	var changes []models.Change
	for _, rule := range []func(models.TrackedEntity, models.SourceSnapshot, models.SourceSnapshot) *models.Change{
		d.detectPricing,
		d.detectRating,
		d.detectReviewVolume,
		d.detectFollowers,
		d.detectPosts,
		d.detectServices,
	} {
		if change := rule(entity, *previous, current); change != nil {
			changes = append(changes, *change)
		}
	}

	return changes
}

func (d *Detector) newChange(entity models.TrackedEntity, source string, changeType models.ChangeType) *models.Change {
	return &models.Change{
		ID:         d.newID(),
		EntityID:   entity.ID,
		EntityName: entity.Name,
		Source:     source,
		Type:       changeType,
		DetectedAt: d.clock.Now(),
		Status:     models.StatusNew,
	}
}

// roundDelta strips float noise so 4.1-4.0 compares as 0.1
func roundDelta(v float64) float64 {
	return math.Round(v*100) / 100
}

func (d *Detector) detectRating(entity models.TrackedEntity, prev, cur models.SourceSnapshot) *models.Change {
	delta := roundDelta(cur.Rating - prev.Rating)
	if math.Abs(delta) <= RatingNoise {
		return nil
	}

	change := d.newChange(entity, cur.Source, models.ChangeRating)
	change.Before, change.After = prev.Rating, cur.Rating
	change.Impact = RatingImpact(delta)
	change.Confidence = ConfidenceRating

	direction := "rose"
	competitorView := "negative"
	action := "Review recent service quality and push a review request campaign to match their momentum"
	if delta < 0 {
		direction = "dropped"
		competitorView = "positive"
		action = "Target their dissatisfied customers with a comparison offer"
	}
	change.Title = fmt.Sprintf("%s rating %s on %s", entity.Name, direction, cur.Source)
	change.Description = fmt.Sprintf("Average rating %s from %.1f to %.1f (%+.2f)", direction, prev.Rating, cur.Rating, delta)
	change.Analysis = models.ChangeAnalysis{
		Sentiment:       perspective(entity, competitorView),
		KeyTopics:       []string{"rating", "customer satisfaction"},
		SuggestedAction: action,
	}
	change.Recommendations = ratingRecommendations(delta)
	return change
}

func (d *Detector) detectPricing(entity models.TrackedEntity, prev, cur models.SourceSnapshot) *models.Change {
	delta := cur.PriceTier - prev.PriceTier
	if abs(delta) < PriceTierNoise {
		return nil
	}

	change := d.newChange(entity, cur.Source, models.ChangePricing)
	change.Before, change.After = float64(prev.PriceTier), float64(cur.PriceTier)
	change.Impact = PricingImpact(delta)
	change.Confidence = ConfidencePricing

	direction := "raised"
	competitorView := "positive"
	action := "Highlight our value position while their prices are higher"
	if delta < 0 {
		direction = "lowered"
		competitorView = "negative"
		action = "Evaluate a targeted promotion or bundle to defend price-sensitive customers"
	}
	change.Title = fmt.Sprintf("%s %s prices", entity.Name, direction)
	change.Description = fmt.Sprintf("Price tier moved from %s to %s on %s",
		strings.Repeat("$", max(prev.PriceTier, 1)), strings.Repeat("$", max(cur.PriceTier, 1)), cur.Source)
	change.Analysis = models.ChangeAnalysis{
		Sentiment:       perspective(entity, competitorView),
		KeyTopics:       []string{"pricing", "value perception"},
		SuggestedAction: action,
	}
	change.Recommendations = pricingRecommendations(delta)
	return change
}

func (d *Detector) detectReviewVolume(entity models.TrackedEntity, prev, cur models.SourceSnapshot) *models.Change {
	delta := cur.ReviewCount - prev.ReviewCount
	if delta <= 0 {
		return nil
	}

	change := d.newChange(entity, cur.Source, models.ChangeReviewVolume)
	change.Before, change.After = float64(prev.ReviewCount), float64(cur.ReviewCount)
	change.Impact = ReviewVolumeImpact(delta)
	change.Confidence = ConfidenceReviewVolume
	change.Title = fmt.Sprintf("%s received %d new reviews", entity.Name, delta)
	change.Description = fmt.Sprintf("Review count on %s grew from %d to %d", cur.Source, prev.ReviewCount, cur.ReviewCount)
	change.Analysis = models.ChangeAnalysis{
		Sentiment:       perspective(entity, "neutral"),
		KeyTopics:       []string{"review volume", "customer engagement"},
		SuggestedAction: "Read their latest reviews for recurring praise or complaints",
	}
	change.Recommendations = []models.Recommendation{
		{
			Title:       "Mine competitor reviews",
			Description: "Summarize themes in the new reviews and compare them with our own feedback",
			Priority:    change.Impact,
			Effort:      "low",
		},
	}
	return change
}

func (d *Detector) detectFollowers(entity models.TrackedEntity, prev, cur models.SourceSnapshot) *models.Change {
	delta := cur.Followers - prev.Followers
	if abs(delta) <= FollowerNoise {
		return nil
	}

	change := d.newChange(entity, cur.Source, models.ChangeSocialGrowth)
	change.Before, change.After = float64(prev.Followers), float64(cur.Followers)
	change.Impact = FollowerImpact(delta)
	change.Confidence = ConfidenceSocial

	competitorView := "negative"
	verb := "gained"
	if delta < 0 {
		competitorView = "positive"
		verb = "lost"
	}
	change.Title = fmt.Sprintf("%s %s %d followers on %s", entity.Name, verb, abs(delta), cur.Source)
	change.Description = fmt.Sprintf("Followers moved from %d to %d", prev.Followers, cur.Followers)
	change.Analysis = models.ChangeAnalysis{
		Sentiment:       perspective(entity, competitorView),
		KeyTopics:       []string{"social media", "audience growth"},
		SuggestedAction: "Check which campaign or post drove the shift",
	}
	change.Recommendations = socialRecommendations()
	return change
}

func (d *Detector) detectPosts(entity models.TrackedEntity, prev, cur models.SourceSnapshot) *models.Change {
	delta := cur.PostCount - prev.PostCount
	if delta <= PostNoise {
		return nil
	}

	change := d.newChange(entity, cur.Source, models.ChangeSocialGrowth)
	change.Before, change.After = float64(prev.PostCount), float64(cur.PostCount)
	change.Impact = PostImpact(delta)
	change.Confidence = ConfidenceSocial
	change.Title = fmt.Sprintf("%s stepped up activity on %s", entity.Name, cur.Source)
	change.Description = fmt.Sprintf("Post count grew from %d to %d", prev.PostCount, cur.PostCount)
	change.Analysis = models.ChangeAnalysis{
		Sentiment:       perspective(entity, "negative"),
		KeyTopics:       []string{"marketing", "content cadence"},
		SuggestedAction: "Look for a launch or promotion behind the burst of activity",
	}
	change.Recommendations = socialRecommendations()
	return change
}

func (d *Detector) detectServices(entity models.TrackedEntity, prev, cur models.SourceSnapshot) *models.Change {
	added, removed := diffSets(prev.Services, cur.Services)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	change := d.newChange(entity, cur.Source, models.ChangeService)
	change.Before, change.After = float64(len(prev.Services)), float64(len(cur.Services))
	change.BeforeText = strings.Join(sortedCopy(prev.Services), ", ")
	change.AfterText = strings.Join(sortedCopy(cur.Services), ", ")
	change.Impact = ServiceImpact(len(added), len(removed))
	change.Confidence = ConfidenceService

	var parts []string
	if len(added) > 0 {
		parts = append(parts, "added "+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "dropped "+strings.Join(removed, ", "))
	}
	competitorView := "negative"
	if len(added) == 0 {
		competitorView = "positive"
	}
	change.Title = fmt.Sprintf("%s changed its service offering", entity.Name)
	change.Description = fmt.Sprintf("%s %s", entity.Name, strings.Join(parts, "; "))
	change.Analysis = models.ChangeAnalysis{
		Sentiment:       perspective(entity, competitorView),
		KeyTopics:       append([]string{"services"}, append(added, removed...)...),
		SuggestedAction: "Compare the new offering with ours and brief the sales team",
	}
	change.Recommendations = []models.Recommendation{
		{
			Title:       "Service gap review",
			Description: "Decide whether to match, differentiate or ignore the service change",
			Priority:    change.Impact,
			Effort:      "medium",
		},
	}
	return change
}

// perspective flips a competitor-relative reading when the entity is one of our
// own reputation profiles
func perspective(entity models.TrackedEntity, competitorView string) string {
	if entity.Kind != models.KindReputationProfile {
		return competitorView
	}
	switch competitorView {
	case "positive":
		return "negative"
	case "negative":
		return "positive"
	}
	return competitorView
}

func diffSets(before, after []string) (added, removed []string) {
	prev := make(map[string]bool, len(before))
	for _, s := range before {
		prev[s] = true
	}
	cur := make(map[string]bool, len(after))
	for _, s := range after {
		cur[s] = true
		if !prev[s] {
			added = append(added, s)
		}
	}
	for _, s := range before {
		if !cur[s] {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func ratingRecommendations(delta float64) []models.Recommendation {
	if delta < 0 {
		return []models.Recommendation{
			{Title: "Win-back campaign", Description: "Run a limited offer aimed at the competitor's unhappy customers", Priority: models.LevelMedium, Effort: "medium"},
			{Title: "Showcase our reviews", Description: "Feature recent top reviews in local ads", Priority: models.LevelLow, Effort: "low"},
		}
	}
	return []models.Recommendation{
		{Title: "Audit recent feedback", Description: "Compare their improvements with our weakest review themes", Priority: models.LevelHigh, Effort: "medium"},
		{Title: "Ask for reviews", Description: "Prompt satisfied customers to leave a review this week", Priority: models.LevelMedium, Effort: "low"},
	}
}

func pricingRecommendations(delta int) []models.Recommendation {
	if delta > 0 {
		return []models.Recommendation{
			{Title: "Value messaging", Description: "Advertise our pricing against theirs while the gap is fresh", Priority: models.LevelMedium, Effort: "low"},
		}
	}
	return []models.Recommendation{
		{Title: "Price response plan", Description: "Model the revenue impact of matching versus holding price", Priority: models.LevelHigh, Effort: "medium"},
		{Title: "Loyalty offer", Description: "Reward repeat customers before they compare prices", Priority: models.LevelMedium, Effort: "low"},
	}
}

func socialRecommendations() []models.Recommendation {
	return []models.Recommendation{
		{Title: "Content benchmark", Description: "Review their recent posts and engagement against ours", Priority: models.LevelLow, Effort: "low"},
	}
}
