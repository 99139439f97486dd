package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mozawave/market-watch/internal/models"
)

// MemoryEntityStore is the in-memory EntityStore
type MemoryEntityStore struct {
	mu       sync.RWMutex
	entities map[string]models.TrackedEntity
	order    []string
}

var _ EntityStore = (*MemoryEntityStore)(nil)

func NewMemoryEntityStore() *MemoryEntityStore {
	return &MemoryEntityStore{entities: make(map[string]models.TrackedEntity)}
}

func (s *MemoryEntityStore) Save(entity models.TrackedEntity) error {
	if entity.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[entity.ID]; !exists {
		s.order = append(s.order, entity.ID)
	}
	s.entities[entity.ID] = entity
	return nil
}

func (s *MemoryEntityStore) Get(id string) (models.TrackedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[id]
	if !ok {
		return models.TrackedEntity{}, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	return entity, nil
}

// List returns entities of kind in registration order. An empty kind lists all.
func (s *MemoryEntityStore) List(kind models.EntityKind) []models.TrackedEntity {
	return s.filter(func(e models.TrackedEntity) bool {
		return kind == "" || e.Kind == kind
	})
}

func (s *MemoryEntityStore) Active(kind models.EntityKind) []models.TrackedEntity {
	return s.filter(func(e models.TrackedEntity) bool {
		return e.Active && (kind == "" || e.Kind == kind)
	})
}

func (s *MemoryEntityStore) filter(keep func(models.TrackedEntity) bool) []models.TrackedEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.TrackedEntity, 0, len(s.order))
	for _, id := range s.order {
		if e := s.entities[id]; keep(e) {
			result = append(result, e)
		}
	}
	return result
}

func (s *MemoryEntityStore) Update(id string, fn func(*models.TrackedEntity) error) (models.TrackedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[id]
	if !ok {
		return models.TrackedEntity{}, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err := fn(&entity); err != nil {
		return models.TrackedEntity{}, err
	}
	s.entities[id] = entity
	return entity, nil
}

// MemorySnapshotStore is the in-memory SnapshotStore
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]models.SourceSnapshot
}

var _ SnapshotStore = (*MemorySnapshotStore)(nil)

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]models.SourceSnapshot)}
}

func snapshotKey(entityID, source string) string {
	return entityID + "/" + source
}

func (s *MemorySnapshotStore) Get(entityID, source string) (*models.SourceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[snapshotKey(entityID, source)]
	if !ok {
		return nil, false
	}
	snap.Services = append([]string(nil), snap.Services...)
	return &snap, true
}

func (s *MemorySnapshotStore) Put(snapshot models.SourceSnapshot) {
	snapshot.Services = append([]string(nil), snapshot.Services...)
	s.mu.Lock()
	s.snapshots[snapshotKey(snapshot.EntityID, snapshot.Source)] = snapshot
	s.mu.Unlock()
}

// MemoryChangeLog is the in-memory append-only ChangeLog
type MemoryChangeLog struct {
	mu      sync.RWMutex
	changes []models.Change
	index   map[string]int
}

var _ ChangeLog = (*MemoryChangeLog)(nil)

func NewMemoryChangeLog() *MemoryChangeLog {
	return &MemoryChangeLog{index: make(map[string]int)}
}

func (l *MemoryChangeLog) Append(change models.Change) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if change.ID == "" {
		return fmt.Errorf("change id is required")
	}
	if _, exists := l.index[change.ID]; exists {
		return fmt.Errorf("change %s already appended", change.ID)
	}
	l.index[change.ID] = len(l.changes)
	l.changes = append(l.changes, change)
	return nil
}

func (l *MemoryChangeLog) Get(id string) (models.Change, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return models.Change{}, fmt.Errorf("change %s: %w", id, ErrNotFound)
	}
	return l.changes[i], nil
}

// Recent returns the newest changes first. A limit of zero or less returns all.
func (l *MemoryChangeLog) Recent(limit int) []models.Change {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.changes)
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]models.Change, 0, limit)
	for i := n - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, l.changes[i])
	}
	return result
}

// Since returns changes detected at or after since, oldest first. An empty
// entityID matches every entity.
func (l *MemoryChangeLog) Since(entityID string, since time.Time) []models.Change {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var result []models.Change
	for _, c := range l.changes {
		if entityID != "" && c.EntityID != entityID {
			continue
		}
		if c.DetectedAt.Before(since) {
			continue
		}
		result = append(result, c)
	}
	return result
}

func (l *MemoryChangeLog) SetStatus(id string, status models.Status) (models.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok {
		return models.Change{}, fmt.Errorf("change %s: %w", id, ErrNotFound)
	}
	l.changes[i].Status = status
	return l.changes[i], nil
}

// MemoryAlertStore is the in-memory AlertStore
type MemoryAlertStore struct {
	mu     sync.RWMutex
	alerts []models.Alert
	index  map[string]int
}

var _ AlertStore = (*MemoryAlertStore)(nil)

func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{index: make(map[string]int)}
}

func (s *MemoryAlertStore) Add(alert models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alert.ID == "" {
		return fmt.Errorf("alert id is required")
	}
	if _, exists := s.index[alert.ID]; exists {
		return fmt.Errorf("alert %s already exists", alert.ID)
	}
	s.index[alert.ID] = len(s.alerts)
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *MemoryAlertStore) Get(id string) (models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return s.alerts[i], nil
}

// Active returns unresolved alerts, newest first
func (s *MemoryAlertStore) Active() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Alert, 0)
	for i := len(s.alerts) - 1; i >= 0; i-- {
		if s.alerts[i].Status != models.StatusResolved {
			result = append(result, s.alerts[i])
		}
	}
	return result
}

func (s *MemoryAlertStore) All() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Alert(nil), s.alerts...)
}

func (s *MemoryAlertStore) Update(id string, fn func(*models.Alert) error) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return models.Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	alert := s.alerts[i]
	if err := fn(&alert); err != nil {
		return models.Alert{}, err
	}
	s.alerts[i] = alert
	return alert, nil
}

// MemoryReviewStore is the in-memory ReviewStore
type MemoryReviewStore struct {
	mu       sync.RWMutex
	reviews  map[string]models.Review
	order    []string
	external map[string]string
	feedback map[string][]models.ResponseFeedback
}

var _ ReviewStore = (*MemoryReviewStore)(nil)

func NewMemoryReviewStore() *MemoryReviewStore {
	return &MemoryReviewStore{
		reviews:  make(map[string]models.Review),
		external: make(map[string]string),
		feedback: make(map[string][]models.ResponseFeedback),
	}
}

func externalKey(platform, externalID string) string {
	return platform + "/" + externalID
}

func cloneReview(r models.Review) models.Review {
	if r.AIResponse != nil {
		resp := *r.AIResponse
		r.AIResponse = &resp
	}
	return r
}

// Upsert inserts a review unless one with the same platform and external id is
// already stored. The stored review is returned with whether it was created.
func (s *MemoryReviewStore) Upsert(review models.Review) (models.Review, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if review.ExternalID != "" {
		if id, ok := s.external[externalKey(review.Platform, review.ExternalID)]; ok {
			return cloneReview(s.reviews[id]), false
		}
	}
	if _, ok := s.reviews[review.ID]; ok {
		return cloneReview(s.reviews[review.ID]), false
	}
	s.reviews[review.ID] = cloneReview(review)
	s.order = append(s.order, review.ID)
	if review.ExternalID != "" {
		s.external[externalKey(review.Platform, review.ExternalID)] = review.ID
	}
	return cloneReview(review), true
}

func (s *MemoryReviewStore) Get(id string) (models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return models.Review{}, fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	return cloneReview(r), nil
}

func (s *MemoryReviewStore) FindByResponseID(responseID string) (models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.AIResponse != nil && r.AIResponse.ID == responseID {
			return cloneReview(r), nil
		}
	}
	return models.Review{}, fmt.Errorf("ai response %s: %w", responseID, ErrNotFound)
}

// List returns reviews newest-published first. An empty entityID lists all.
func (s *MemoryReviewStore) List(entityID string) []models.Review {
	s.mu.RLock()
	result := make([]models.Review, 0, len(s.order))
	for _, id := range s.order {
		r := s.reviews[id]
		if entityID == "" || r.EntityID == entityID {
			result = append(result, cloneReview(r))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PublishedAt.After(result[j].PublishedAt)
	})
	return result
}

func (s *MemoryReviewStore) Update(id string, fn func(*models.Review) error) (models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return models.Review{}, fmt.Errorf("review %s: %w", id, ErrNotFound)
	}
	r = cloneReview(r)
	if err := fn(&r); err != nil {
		return models.Review{}, err
	}
	s.reviews[id] = r
	return cloneReview(r), nil
}

func (s *MemoryReviewStore) AddFeedback(feedback models.ResponseFeedback) {
	s.mu.Lock()
	s.feedback[feedback.ReviewID] = append(s.feedback[feedback.ReviewID], feedback)
	s.mu.Unlock()
}

func (s *MemoryReviewStore) Feedback(reviewID string) []models.ResponseFeedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ResponseFeedback(nil), s.feedback[reviewID]...)
}

// MemoryMetricsStore is the in-memory MetricsStore
type MemoryMetricsStore struct {
	mu      sync.RWMutex
	history map[string][]models.BusinessMetrics
	max     int
}

var _ MetricsStore = (*MemoryMetricsStore)(nil)

// NewMemoryMetricsStore keeps at most max snapshots per organization (0 keeps all)
func NewMemoryMetricsStore(max int) *MemoryMetricsStore {
	return &MemoryMetricsStore{history: make(map[string][]models.BusinessMetrics), max: max}
}

func (s *MemoryMetricsStore) Append(metrics models.BusinessMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[metrics.OrgID], metrics)
	if s.max > 0 && len(h) > s.max {
		h = h[len(h)-s.max:]
	}
	s.history[metrics.OrgID] = h
}

func (s *MemoryMetricsStore) Latest(orgID string) (models.BusinessMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[orgID]
	if len(h) == 0 {
		return models.BusinessMetrics{}, false
	}
	return h[len(h)-1], true
}

// History returns up to limit snapshots, oldest first
func (s *MemoryMetricsStore) History(orgID string, limit int) []models.BusinessMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[orgID]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return append([]models.BusinessMetrics(nil), h...)
}
