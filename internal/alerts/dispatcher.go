package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/metrics"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/notifications"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/sirupsen/logrus"
)

// Dispatcher turns serious changes into alerts and pushes them to the
// notification channels. Delivery is best effort.
type Dispatcher struct {
	alerts     storage.AlertStore
	standard   notifications.Sink
	escalation notifications.Sink
	timeout    time.Duration
	clock      clock.Clock
	metrics    *metrics.Collector
	newID      func() string
}

func NewDispatcher(alerts storage.AlertStore, standard, escalation notifications.Sink, timeout time.Duration, c clock.Clock, m *metrics.Collector) *Dispatcher {
	if standard == nil {
		standard = notifications.Nop{}
	}
	if escalation == nil {
		escalation = notifications.Nop{}
	}
	return &Dispatcher{
		alerts:     alerts,
		standard:   standard,
		escalation: escalation,
		timeout:    timeout,
		clock:      c,
		metrics:    m,
		newID:      uuid.NewString,
	}
}

// SeverityFor maps change impact to alert severity. Changes below high
// produce no alert.
func SeverityFor(impact models.Level) (models.Severity, bool) {
	switch impact {
	case models.LevelCritical:
		return models.SeverityCritical, true
	case models.LevelHigh:
		return models.SeverityWarning, true
	}
	return "", false
}

// Dispatch creates and delivers an alert for change. It returns nil when the
// change doesn't warrant one. Notification failures are logged, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, change models.Change) (*models.Alert, error) {
	severity, ok := SeverityFor(change.Impact)
	if !ok {
		return nil, nil
	}

	alert := models.Alert{
		ID:        d.newID(),
		ChangeID:  change.ID,
		EntityID:  change.EntityID,
		Severity:  severity,
		Title:     change.Title,
		Message:   alertMessage(change),
		CreatedAt: d.clock.Now(),
		Status:    models.StatusNew,
	}
	if severity.Escalates() {
		alert.EscalationLevel = 1
	}

	if err := d.alerts.Add(alert); err != nil {
		return nil, fmt.Errorf("storing alert for change %s: %w", change.ID, err)
	}
	d.metrics.AlertCreated(string(severity))

	d.send(ctx, d.standard, alert)
	if severity.Escalates() {
		d.send(ctx, d.escalation, alert)
	}

	return &alert, nil
}

func (d *Dispatcher) send(ctx context.Context, sink notifications.Sink, alert models.Alert) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := sink.SendAlert(sendCtx, alert); err != nil {
		d.metrics.NotificationFailed(sink.Name())
		logrus.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"channel":  sink.Name(),
		}).Errorf("Failed to deliver alert: %v", err)
	}
}

// Acknowledge moves a new alert to acknowledged
func (d *Dispatcher) Acknowledge(alertID, by string) (models.Alert, error) {
	now := d.clock.Now()
	return d.alerts.Update(alertID, func(a *models.Alert) error {
		if a.Status != models.StatusNew {
			return fmt.Errorf("alert %s is %s: %w", alertID, a.Status, storage.ErrInvalidState)
		}
		a.Status = models.StatusAcknowledged
		a.AcknowledgedBy = by
		a.AcknowledgedAt = &now
		return nil
	})
}

// Resolve closes an alert from new or acknowledged
func (d *Dispatcher) Resolve(alertID string) (models.Alert, error) {
	now := d.clock.Now()
	return d.alerts.Update(alertID, func(a *models.Alert) error {
		if a.Status == models.StatusResolved {
			return fmt.Errorf("alert %s already resolved: %w", alertID, storage.ErrInvalidState)
		}
		a.Status = models.StatusResolved
		a.ResolvedAt = &now
		return nil
	})
}

func alertMessage(c models.Change) string {
	msg := c.Description
	if c.Analysis.SuggestedAction != "" {
		msg += "\nSuggested action: " + c.Analysis.SuggestedAction
	}
	return msg
}
