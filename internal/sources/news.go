package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// NewsSourceName is the source name news counts are recorded under
	NewsSourceName = "news"

	defaultNewsBaseURL = "https://hn.algolia.com/api/v1"
)

// NewsSource counts news stories naming an entity over a trailing window and
// reports the count as the snapshot's PostCount
type NewsSource struct {
	client  *resty.Client
	baseURL string
	window  time.Duration
	clock   clock.Clock
}

type newsSearchResponse struct {
	NbHits int `json:"nbHits"`
	Hits   []struct {
		ObjectID  string `json:"objectID"`
		Title     string `json:"title"`
		CreatedAt int64  `json:"created_at_i"`
	} `json:"hits"`
}

// NewNewsSource creates a news source searching the Hacker News index
func NewNewsSource(window time.Duration, c clock.Clock) *NewsSource {
	return &NewsSource{
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "MozaWave-MarketWatch/1.0"),
		baseURL: defaultNewsBaseURL,
		window:  window,
		clock:   c,
	}
}

// WithBaseURL points the source at another search API root
func (n *NewsSource) WithBaseURL(baseURL string) *NewsSource {
	n.baseURL = baseURL
	return n
}

func (n *NewsSource) GetName() string {
	return NewsSourceName
}

func (n *NewsSource) IsEnabled() bool {
	return true // the search API doesn't require authentication
}

func (n *NewsSource) FetchSnapshot(ctx context.Context, entity models.TrackedEntity) (*models.SourceSnapshot, error) {
	cutoff := n.clock.Now().Add(-n.window)

	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":          fmt.Sprintf("%q", entity.Name),
			"tags":           "story",
			"numericFilters": "created_at_i>" + strconv.FormatInt(cutoff.Unix(), 10),
			"hitsPerPage":    "5",
		}).
		Get(n.baseURL + "/search_by_date")

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, statusError("news search", resp.StatusCode())
	}

	var result newsSearchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("malformed news search response: %w: %w", ErrEntityData, err)
	}

	for _, hit := range result.Hits {
		logrus.WithFields(logrus.Fields{
			"entity_id": entity.ID,
			"story":     hit.ObjectID,
		}).Debugf("News mention: %s", hit.Title)
	}

	return &models.SourceSnapshot{
		EntityID:  entity.ID,
		Source:    n.GetName(),
		PostCount: result.NbHits,
	}, nil
}
