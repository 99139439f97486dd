package storage

import (
	"context"
	"time"

	"github.com/mozawave/market-watch/internal/models"
)

// Archive stores opaque documents such as change log exports and digests
type Archive interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// EntityStore holds tracked entities. Entities are never deleted, only deactivated.
type EntityStore interface {
	Save(entity models.TrackedEntity) error
	Get(id string) (models.TrackedEntity, error)
	List(kind models.EntityKind) []models.TrackedEntity
	Active(kind models.EntityKind) []models.TrackedEntity
	Update(id string, fn func(*models.TrackedEntity) error) (models.TrackedEntity, error)
}

// SnapshotStore keeps one baseline per (entity, source)
type SnapshotStore interface {
	Get(entityID, source string) (*models.SourceSnapshot, bool)
	Put(snapshot models.SourceSnapshot)
}

// ChangeLog is the append-only log of detected changes
type ChangeLog interface {
	Append(change models.Change) error
	Get(id string) (models.Change, error)
	Recent(limit int) []models.Change
	Since(entityID string, since time.Time) []models.Change
	SetStatus(id string, status models.Status) (models.Change, error)
}

// AlertStore holds alerts derived from changes
type AlertStore interface {
	Add(alert models.Alert) error
	Get(id string) (models.Alert, error)
	Active() []models.Alert
	All() []models.Alert
	Update(id string, fn func(*models.Alert) error) (models.Alert, error)
}

// ReviewStore holds reviews, their drafts and rejected-draft feedback
type ReviewStore interface {
	Upsert(review models.Review) (models.Review, bool)
	Get(id string) (models.Review, error)
	FindByResponseID(responseID string) (models.Review, error)
	List(entityID string) []models.Review
	Update(id string, fn func(*models.Review) error) (models.Review, error)
	AddFeedback(feedback models.ResponseFeedback)
	Feedback(reviewID string) []models.ResponseFeedback
}

// MetricsStore keeps the history of business metric snapshots per organization
type MetricsStore interface {
	Append(metrics models.BusinessMetrics)
	Latest(orgID string) (models.BusinessMetrics, bool)
	History(orgID string, limit int) []models.BusinessMetrics
}
