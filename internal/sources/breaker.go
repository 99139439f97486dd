package sources

import (
	"context"
	"errors"
	"time"

	"github.com/mozawave/market-watch/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerFetcher trips after repeated failures so a dead platform stops
// consuming scan time until its cool-down elapses
type BreakerFetcher struct {
	Fetcher
	cb *gobreaker.CircuitBreaker
}

// NewBreakerFetcher wraps f with a circuit breaker that opens after
// failures consecutive errors and half-opens after cooldown. Errors wrapping
// ErrEntityData, and cancelled scans, do not count as failures.
func NewBreakerFetcher(f Fetcher, failures uint32, cooldown time.Duration) *BreakerFetcher {
	settings := gobreaker.Settings{
		Name:        f.GetName(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: healthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"source": name,
				"from":   from.String(),
				"to":     to.String(),
			}).Warn("Source circuit breaker changed state")
		},
	}

	return &BreakerFetcher{
		Fetcher: f,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

func healthy(err error) bool {
	return err == nil || errors.Is(err, ErrEntityData) || errors.Is(err, context.Canceled)
}

func (b *BreakerFetcher) FetchSnapshot(ctx context.Context, entity models.TrackedEntity) (*models.SourceSnapshot, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.Fetcher.FetchSnapshot(ctx, entity)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.SourceSnapshot), nil
}

// State reports the breaker state, for the status endpoint
func (b *BreakerFetcher) State() string {
	return b.cb.State().String()
}
