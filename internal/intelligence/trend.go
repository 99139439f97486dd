package intelligence

import (
	"math"
	"sort"

	"github.com/mozawave/market-watch/internal/models"
)

const (
	// MinTrendReviews is the fewest reviews a trend is computed from
	MinTrendReviews = 10
	trendThreshold  = 0.2
)

// ReputationTrend compares the mean rating of the newer half of reviews with
// the older half
func ReputationTrend(reviews []models.Review) models.Trend {
	if len(reviews) < MinTrendReviews {
		return models.TrendStable
	}

	sorted := append([]models.Review(nil), reviews...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})

	half := len(sorted) / 2
	delta := meanRating(sorted[:half]) - meanRating(sorted[half:])
	delta = math.Round(delta*100) / 100

	switch {
	case delta > trendThreshold:
		return models.TrendUp
	case delta < -trendThreshold:
		return models.TrendDown
	}
	return models.TrendStable
}

func meanRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// zScore of value against the sample; ok is false when the sample has no spread
func zScore(sample []float64, value float64) (float64, bool) {
	if len(sample) == 0 {
		return 0, false
	}
	mean := 0.0
	for _, v := range sample {
		mean += v
	}
	mean /= float64(len(sample))

	variance := 0.0
	for _, v := range sample {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(sample)))
	if std == 0 {
		return 0, false
	}
	return (value - mean) / std, true
}
