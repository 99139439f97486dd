package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/mozawave/market-watch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// MockSink is a mock implementation of notifications.Sink
type MockSink struct {
	mock.Mock
	name string
}

func (m *MockSink) Name() string {
	return m.name
}

func (m *MockSink) SendAlert(ctx context.Context, alert models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func change(impact models.Level) models.Change {
	return models.Change{
		ID:          "c-1",
		EntityID:    "pizza-co",
		Title:       "Pizza Co raised prices",
		Description: "Price tier went from 2 to 4",
		Impact:      impact,
		Analysis:    models.ChangeAnalysis{SuggestedAction: "Promote value options"},
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		impact models.Level
		want   models.Severity
		ok     bool
	}{
		{models.LevelLow, "", false},
		{models.LevelMedium, "", false},
		{models.LevelHigh, models.SeverityWarning, true},
		{models.LevelCritical, models.SeverityCritical, true},
	}
	for _, tt := range tests {
		got, ok := SeverityFor(tt.impact)
		assert.Equal(t, tt.want, got, string(tt.impact))
		assert.Equal(t, tt.ok, ok, string(tt.impact))
	}
}

func TestDispatch_BelowHighIsIgnored(t *testing.T) {
	store := storage.NewMemoryAlertStore()
	standard := &MockSink{name: "standard"}
	d := NewDispatcher(store, standard, nil, time.Second, clock.NewFake(now), nil)

	alert, err := d.Dispatch(context.Background(), change(models.LevelMedium))
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Empty(t, store.All())
	standard.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything)
}

func TestDispatch_HighGoesToStandardOnly(t *testing.T) {
	store := storage.NewMemoryAlertStore()
	standard := &MockSink{name: "standard"}
	escalation := &MockSink{name: "slack"}
	standard.On("SendAlert", mock.Anything, mock.AnythingOfType("models.Alert")).Return(nil)

	d := NewDispatcher(store, standard, escalation, time.Second, clock.NewFake(now), nil)
	alert, err := d.Dispatch(context.Background(), change(models.LevelHigh))
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, models.SeverityWarning, alert.Severity)
	assert.Equal(t, "c-1", alert.ChangeID)
	assert.Equal(t, now, alert.CreatedAt)
	assert.Contains(t, alert.Message, "Suggested action: Promote value options")
	standard.AssertExpectations(t)
	escalation.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything)
}

func TestDispatch_CriticalEscalates(t *testing.T) {
	store := storage.NewMemoryAlertStore()
	standard := &MockSink{name: "standard"}
	escalation := &MockSink{name: "slack"}
	standard.On("SendAlert", mock.Anything, mock.Anything).Return(nil)
	escalation.On("SendAlert", mock.Anything, mock.MatchedBy(func(a models.Alert) bool {
		return a.Severity == models.SeverityCritical && a.EscalationLevel == 1
	})).Return(nil)

	d := NewDispatcher(store, standard, escalation, time.Second, clock.NewFake(now), nil)
	_, err := d.Dispatch(context.Background(), change(models.LevelCritical))
	require.NoError(t, err)

	standard.AssertExpectations(t)
	escalation.AssertExpectations(t)
}

func TestDispatch_FailingSinkStillPersistsAlert(t *testing.T) {
	store := storage.NewMemoryAlertStore()
	standard := &MockSink{name: "standard"}
	standard.On("SendAlert", mock.Anything, mock.Anything).Return(errors.New("webhook down")).Once()

	d := NewDispatcher(store, standard, nil, time.Second, clock.NewFake(now), nil)
	alert, err := d.Dispatch(context.Background(), change(models.LevelHigh))
	require.NoError(t, err, "notification failures are not returned")

	stored, err := store.Get(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, stored.Status)
	standard.AssertNumberOfCalls(t, "SendAlert", 1)
}

func TestDispatch_SendHasDeadline(t *testing.T) {
	store := storage.NewMemoryAlertStore()
	standard := &MockSink{name: "standard"}
	standard.On("SendAlert", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(nil)

	d := NewDispatcher(store, standard, nil, 5*time.Second, clock.NewFake(now), nil)
	_, err := d.Dispatch(context.Background(), change(models.LevelHigh))
	require.NoError(t, err)
	standard.AssertExpectations(t)
}

func TestAcknowledgeAndResolve(t *testing.T) {
	store := storage.NewMemoryAlertStore()
	standard := &MockSink{name: "standard"}
	standard.On("SendAlert", mock.Anything, mock.Anything).Return(nil)
	fake := clock.NewFake(now)
	d := NewDispatcher(store, standard, nil, time.Second, fake, nil)

	alert, err := d.Dispatch(context.Background(), change(models.LevelHigh))
	require.NoError(t, err)

	fake.Advance(time.Minute)
	acked, err := d.Acknowledge(alert.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, acked.Status)
	assert.Equal(t, "owner", acked.AcknowledgedBy)
	assert.Equal(t, now.Add(time.Minute), *acked.AcknowledgedAt)

	_, err = d.Acknowledge(alert.ID, "owner")
	assert.ErrorIs(t, err, storage.ErrInvalidState)

	resolved, err := d.Resolve(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)
	assert.Empty(t, store.Active())

	_, err = d.Resolve(alert.ID)
	assert.ErrorIs(t, err, storage.ErrInvalidState)

	_, err = d.Acknowledge("missing", "owner")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
