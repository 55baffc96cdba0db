package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"studyhub/backend/pkg/logger"
)

// Store is the outbox side of the graph store
type Store interface {
	// PendingEvents returns up to limit undispatched events, oldest first
	PendingEvents(ctx context.Context, limit int) ([]Event, error)
	// MarkDispatched flags events as delivered
	MarkDispatched(ctx context.Context, ids []string, at time.Time) error
}

// Publisher delivers one event to the broker. msgID lets the broker drop
// redeliveries of the same event.
type Publisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// RelayConfig tunes the relay loop
type RelayConfig struct {
	SubjectPrefix string
	BatchSize     int
	PollInterval  time.Duration
}

// Relay moves committed outbox events to a Publisher. Delivery is at least
// once: an event is only marked after its publish succeeded.
type Relay struct {
	store     Store
	publisher Publisher
	cfg       RelayConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewRelay creates a relay; zero config values fall back to defaults
func NewRelay(store Store, publisher Publisher, cfg RelayConfig) *Relay {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.Named("outbox"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce publishes one batch and returns how many events were delivered.
// A failed publish stops the batch; the failed event and everything after it
// stay pending for the next pass.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.store.PendingEvents(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	delivered := make([]string, 0, len(events))
	var publishErr error
	for _, ev := range events {
		subject := Subject(r.cfg.SubjectPrefix, ev.Type)
		if err := r.publisher.Publish(ctx, subject, ev.ID, ev.Payload); err != nil {
			publishErr = fmt.Errorf("failed to publish event %s: %w", ev.ID, err)
			break
		}
		delivered = append(delivered, ev.ID)
	}

	if len(delivered) > 0 {
		if err := r.store.MarkDispatched(ctx, delivered, r.now()); err != nil {
			return 0, fmt.Errorf("failed to mark events dispatched: %w", err)
		}
	}

	r.logger.Debug("Outbox batch relayed",
		zap.Int("pending", len(events)),
		zap.Int("delivered", len(delivered)),
	)
	return len(delivered), publishErr
}

// Run relays until ctx is cancelled. Errors are logged and retried on the
// next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("Outbox relay pass failed", zap.Error(err))
				break
			}
			// drain without waiting while full batches keep coming
			if n < r.cfg.BatchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
