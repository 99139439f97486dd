package notifications

import (
	"context"
	"errors"

	"github.com/mozawave/market-watch/internal/models"
)

// Sink delivers a single alert to an external channel
type Sink interface {
	Name() string
	SendAlert(ctx context.Context, alert models.Alert) error
}

// DigestSender delivers the periodic digest
type DigestSender interface {
	SendDigest(ctx context.Context, digest *models.Digest) error
}

// Multi fans an alert out to several sinks and joins their errors
type Multi []Sink

func (m Multi) Name() string {
	return "multi"
}

func (m Multi) SendAlert(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, s := range m {
		if err := s.SendAlert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards everything. Used when a channel is not configured.
type Nop struct{}

func (Nop) Name() string {
	return "nop"
}

func (Nop) SendAlert(ctx context.Context, alert models.Alert) error {
	return nil
}

func (Nop) SendDigest(ctx context.Context, digest *models.Digest) error {
	return nil
}
