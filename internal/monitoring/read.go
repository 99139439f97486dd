package monitoring

import (
	"context"
	"errors"
	"sort"

	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/sirupsen/logrus"
)

type breakerState interface {
	State() string
}

// GetStatus returns run statistics and per-source health
func (s *Service) GetStatus() Status {
	s.mu.RLock()
	stats := *s.stats
	stats.FetchErrors = make(map[string]int, len(s.stats.FetchErrors))
	for k, v := range s.stats.FetchErrors {
		stats.FetchErrors[k] = v
	}
	s.mu.RUnlock()

	status := Status{
		Stats:              stats,
		TrackedCompetitors: len(s.stores.Entities.Active(models.KindCompetitor)),
		TrackedProfiles:    len(s.stores.Entities.Active(models.KindReputationProfile)),
		ActiveAlerts:       len(s.stores.Alerts.Active()),
		Responder:          s.pipeline.GeneratorName(),
	}
	for _, f := range s.fetchers {
		src := SourceStatus{Name: f.GetName(), Enabled: f.IsEnabled()}
		if b, ok := f.(breakerState); ok {
			src.Breaker = b.State()
		}
		status.Sources = append(status.Sources, src)
	}
	return status
}

// GetCompetitors lists every competitor, most threatening first
func (s *Service) GetCompetitors() []models.TrackedEntity {
	competitors := s.stores.Entities.List(models.KindCompetitor)
	sort.SliceStable(competitors, func(i, j int) bool {
		if competitors[i].ThreatLevel.Rank() != competitors[j].ThreatLevel.Rank() {
			return competitors[i].ThreatLevel.Rank() > competitors[j].ThreatLevel.Rank()
		}
		return competitors[i].Name < competitors[j].Name
	})
	return competitors
}

// GetEntity returns one tracked entity
func (s *Service) GetEntity(id string) (models.TrackedEntity, error) {
	return s.stores.Entities.Get(id)
}

// GetRecentChanges returns the newest changes, 50 by default and at most 500
func (s *Service) GetRecentChanges(limit int) []models.Change {
	if limit <= 0 {
		limit = defaultChangeLimit
	}
	if limit > maxChangeLimit {
		limit = maxChangeLimit
	}
	return s.stores.Changes.Recent(limit)
}

// GetActiveAlerts returns alerts that are not resolved
func (s *Service) GetActiveAlerts() []models.Alert {
	return s.stores.Alerts.Active()
}

// GetReviews lists reviews, optionally for a single entity
func (s *Service) GetReviews(entityID string) []models.Review {
	return s.stores.Reviews.List(entityID)
}

func (s *Service) GetReviewsNeedingResponse() []models.Review {
	return s.pipeline.NeedingResponse()
}

// GetReputationMetrics returns the latest BusinessMetrics for orgID
func (s *Service) GetReputationMetrics(orgID string) models.BusinessMetrics {
	return s.aggregator.Metrics(orgID)
}

func (s *Service) GetInsights(orgID string) []models.Insight {
	return s.aggregator.Insights(orgID)
}

func (s *Service) GetDashboardOverview(orgID, userID string) models.DashboardOverview {
	return s.assembler.Overview(orgID, userID)
}

// AcknowledgeAlert marks an alert as seen and acknowledges its change
func (s *Service) AcknowledgeAlert(id, by string) (models.Alert, error) {
	alert, err := s.dispatcher.Acknowledge(id, by)
	if err != nil {
		return models.Alert{}, err
	}
	s.moveChange(alert.ChangeID, models.StatusAcknowledged)
	return alert, nil
}

// ResolveAlert closes an alert and resolves its change
func (s *Service) ResolveAlert(id string) (models.Alert, error) {
	alert, err := s.dispatcher.Resolve(id)
	if err != nil {
		return models.Alert{}, err
	}
	s.moveChange(alert.ChangeID, models.StatusResolved)
	return alert, nil
}

func (s *Service) moveChange(changeID string, status models.Status) {
	if changeID == "" {
		return
	}
	if _, err := s.stores.Changes.SetStatus(changeID, status); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logrus.WithField("change_id", changeID).Errorf("Failed to update change status: %v", err)
	}
}

func (s *Service) GenerateAIResponse(ctx context.Context, reviewID string) (models.Review, error) {
	return s.pipeline.GenerateAIResponse(ctx, reviewID)
}

func (s *Service) ApproveAIResponse(responseID, approver string) (models.Review, error) {
	return s.pipeline.ApproveAIResponse(responseID, approver)
}

func (s *Service) RejectAIResponse(responseID, rejectedBy, feedback string) (models.Review, error) {
	return s.pipeline.RejectAIResponse(responseID, rejectedBy, feedback)
}

func (s *Service) RespondManually(reviewID, respondedBy, text string) (models.Review, error) {
	return s.pipeline.RespondManually(reviewID, respondedBy, text)
}
