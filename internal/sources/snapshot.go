package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mozawave/market-watch/internal/models"
)

// HTTPSnapshotSource reads platform snapshots (google, yelp, facebook, ...) from
// a JSON endpoint
type HTTPSnapshotSource struct {
	name     string
	endpoint string
	apiKey   string
	client   *resty.Client
}

type snapshotPayload struct {
	Rating      *float64 `json:"rating"`
	ReviewCount int      `json:"review_count"`
	PriceTier   int      `json:"price_tier"`
	Followers   int      `json:"followers"`
	PostCount   int      `json:"post_count"`
	Services    []string `json:"services"`
}

// NewHTTPSnapshotSource creates a snapshot source for the named platform
func NewHTTPSnapshotSource(name, endpoint, apiKey string) *HTTPSnapshotSource {
	return &HTTPSnapshotSource{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "MozaWave-MarketWatch/1.0"),
	}
}

func (s *HTTPSnapshotSource) GetName() string {
	return s.name
}

func (s *HTTPSnapshotSource) IsEnabled() bool {
	return s.endpoint != ""
}

func (s *HTTPSnapshotSource) FetchSnapshot(ctx context.Context, entity models.TrackedEntity) (*models.SourceSnapshot, error) {
	req := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"entity_id": entity.ID,
			"name":      entity.Name,
			"location":  entity.Location,
			"source":    s.name,
		})
	if s.apiKey != "" {
		req.SetAuthToken(s.apiKey)
	}

	resp, err := req.Get(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s snapshot request failed: %w", s.name, err)
	}

	if resp.StatusCode() != 200 {
		return nil, statusError(s.name, resp.StatusCode())
	}

	var payload snapshotPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("malformed %s snapshot: %w: %w", s.name, ErrEntityData, err)
	}

	if payload.Rating == nil || *payload.Rating < 0 || *payload.Rating > 5 {
		return nil, fmt.Errorf("malformed %s snapshot: rating missing or out of range: %w", s.name, ErrEntityData)
	}
	if payload.PriceTier < 0 || payload.ReviewCount < 0 || payload.Followers < 0 {
		return nil, fmt.Errorf("malformed %s snapshot: negative counter: %w", s.name, ErrEntityData)
	}

	return &models.SourceSnapshot{
		EntityID:    entity.ID,
		Source:      s.name,
		Rating:      *payload.Rating,
		ReviewCount: payload.ReviewCount,
		PriceTier:   payload.PriceTier,
		Followers:   payload.Followers,
		PostCount:   payload.PostCount,
		Services:    payload.Services,
	}, nil
}
