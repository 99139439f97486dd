package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mozawave/market-watch/internal/models"
)

// HTTPBusinessSource reads an organization's own revenue and customer figures
type HTTPBusinessSource struct {
	endpoint string
	apiKey   string
	client   *resty.Client
}

func NewHTTPBusinessSource(endpoint, apiKey string) *HTTPBusinessSource {
	return &HTTPBusinessSource{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "MozaWave-MarketWatch/1.0"),
	}
}

func (s *HTTPBusinessSource) FetchBusinessData(ctx context.Context, orgID string) (*models.BusinessData, error) {
	if s.endpoint == "" {
		return nil, fmt.Errorf("business data endpoint not configured")
	}

	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("org_id", orgID)
	if s.apiKey != "" {
		req.SetAuthToken(s.apiKey)
	}

	resp, err := req.Get(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("business data request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("business data API returned status %d", resp.StatusCode())
	}

	var data models.BusinessData
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("malformed business data: %w", err)
	}

	return &data, nil
}
