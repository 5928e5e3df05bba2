package worker

import (
	"context"
	"time"

	"campaign-engine/internal/engine"
	"campaign-engine/internal/storage"
	"campaign-engine/pkg/metrics"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Sweeper is the durability backstop: it re-discovers events whose
// immediate dispatch failed or never ran, and drives them through the
// matcher. Repeated runs over the same events are safe because the matcher
// skips campaigns already recorded on the event.
type Sweeper struct {
	store     storage.Store
	matcher   *engine.Matcher
	clock     clockwork.Clock
	batchSize int
	logger    *zap.Logger
}

func NewSweeper(store storage.Store, matcher *engine.Matcher, clock clockwork.Clock, batchSize int, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		matcher:   matcher,
		clock:     clock,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Sweep processes one batch of unprocessed events, oldest first, and
// returns how many were picked up. Per-event failures are logged and do not
// stop the batch.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	events, err := s.store.UnprocessedEvents(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		if err := s.matcher.ProcessEvent(ctx, event); err != nil {
			s.logger.Error("Sweep failed to process event",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
		metrics.SweepEvents.Inc()
	}

	return len(events), nil
}

// Run sweeps on a fixed interval until the context is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			picked, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("Sweep batch failed", zap.Error(err))
				continue
			}
			if picked > 0 {
				s.logger.Info("Sweep batch complete", zap.Int("events", picked))
			}
		}
	}
}
