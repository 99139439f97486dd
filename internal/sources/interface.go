package sources

import (
	"context"
	"time"

	"github.com/mozawave/market-watch/internal/models"
)

// Fetcher returns the current observable state of an entity on one data source
type Fetcher interface {
	GetName() string
	IsEnabled() bool
	FetchSnapshot(ctx context.Context, entity models.TrackedEntity) (*models.SourceSnapshot, error)
}

// ReviewSource returns reviews published for a reputation profile since a time
type ReviewSource interface {
	GetName() string
	IsEnabled() bool
	FetchReviews(ctx context.Context, entity models.TrackedEntity, since time.Time) ([]models.Review, error)
}

// BusinessSource reports revenue, customer and operational aggregates
type BusinessSource interface {
	FetchBusinessData(ctx context.Context, orgID string) (*models.BusinessData, error)
}
