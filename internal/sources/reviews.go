package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mozawave/market-watch/internal/models"
)

// HTTPReviewSource pulls new reviews for a reputation profile from a JSON endpoint
type HTTPReviewSource struct {
	name     string
	endpoint string
	apiKey   string
	client   *resty.Client
}

type reviewsResponse struct {
	Reviews []struct {
		ID          string    `json:"id"`
		Platform    string    `json:"platform"`
		Author      string    `json:"author"`
		Rating      int       `json:"rating"`
		Content     string    `json:"content"`
		PublishedAt time.Time `json:"published_at"`
	} `json:"reviews"`
}

func NewHTTPReviewSource(endpoint, apiKey string) *HTTPReviewSource {
	return &HTTPReviewSource{
		name:     "reviews",
		endpoint: endpoint,
		apiKey:   apiKey,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "MozaWave-MarketWatch/1.0"),
	}
}

func (s *HTTPReviewSource) GetName() string {
	return s.name
}

func (s *HTTPReviewSource) IsEnabled() bool {
	return s.endpoint != ""
}

// FetchReviews returns reviews published after since. Reviews without an
// external id or outside the 0-5 rating range are skipped.
func (s *HTTPReviewSource) FetchReviews(ctx context.Context, entity models.TrackedEntity, since time.Time) ([]models.Review, error) {
	req := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"entity_id": entity.ID,
			"since":     since.UTC().Format(time.RFC3339),
		})
	if s.apiKey != "" {
		req.SetAuthToken(s.apiKey)
	}

	resp, err := req.Get(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("review request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("review API returned status %d", resp.StatusCode())
	}

	var result reviewsResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("malformed review response: %w", err)
	}

	var reviews []models.Review
	for _, r := range result.Reviews {
		if strings.TrimSpace(r.ID) == "" || r.Rating < 0 || r.Rating > 5 {
			continue
		}
		platform := r.Platform
		if platform == "" {
			platform = s.name
		}
		reviews = append(reviews, models.Review{
			EntityID:    entity.ID,
			Platform:    platform,
			ExternalID:  r.ID,
			Author:      r.Author,
			Rating:      r.Rating,
			Content:     r.Content,
			PublishedAt: r.PublishedAt,
		})
	}

	return reviews, nil
}
