package worker

import (
	"context"
	"time"

	"campaign-engine/internal/models"
	"campaign-engine/internal/storage"
	"campaign-engine/internal/transport"
	"campaign-engine/pkg/metrics"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DeliveryWorker claims and sends due scheduled deliveries in bounded
// batches. The claim is a conditional scheduled -> sending transition, so
// overlapping worker runs never double-send the same item.
type DeliveryWorker struct {
	store     storage.Store
	transport transport.Transport
	clock     clockwork.Clock
	batchSize int
	logger    *zap.Logger
}

func NewDeliveryWorker(store storage.Store, tr transport.Transport, clock clockwork.Clock, batchSize int, logger *zap.Logger) *DeliveryWorker {
	return &DeliveryWorker{
		store:     store,
		transport: tr,
		clock:     clock,
		batchSize: batchSize,
		logger:    logger,
	}
}

// ProcessDue sends one batch of due deliveries and returns the number
// successfully sent. A single item's failure never aborts the batch; a
// store failure affecting the whole query propagates to the scheduler.
func (w *DeliveryWorker) ProcessDue(ctx context.Context) (int, error) {
	due, err := w.store.DueDeliveries(ctx, w.clock.Now().UTC(), w.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, delivery := range due {
		claimed, err := w.store.ClaimDelivery(ctx, delivery.ID)
		if err != nil {
			w.logger.Error("Failed to claim delivery",
				zap.String("delivery_id", delivery.ID),
				zap.Error(err))
			continue
		}
		if !claimed {
			// Another worker run got there first.
			continue
		}

		if w.send(ctx, delivery) {
			sent++
		}
	}

	return sent, nil
}

func (w *DeliveryWorker) send(ctx context.Context, delivery *models.Delivery) bool {
	start := time.Now()
	messageID, err := w.transport.Send(ctx, &transport.Message{
		To:      delivery.To,
		From:    delivery.From,
		Subject: delivery.Subject,
		Body:    delivery.Body,
		IsHTML:  delivery.IsHTML,
	})
	metrics.SendDuration.Observe(time.Since(start).Seconds())

	now := w.clock.Now().UTC()
	if err != nil {
		w.logger.Error("Failed to send delivery",
			zap.String("delivery_id", delivery.ID),
			zap.String("campaign_id", delivery.CampaignID),
			zap.Error(err))

		if err := w.store.MarkDeliveryFailed(ctx, delivery.ID, err.Error()); err != nil {
			w.logger.Error("Failed to mark delivery failed",
				zap.String("delivery_id", delivery.ID),
				zap.Error(err))
		}
		if err := w.store.IncrementCampaignStat(ctx, delivery.CampaignID, models.StatBounced, 1); err != nil {
			w.logger.Error("Failed to increment bounced counter",
				zap.String("campaign_id", delivery.CampaignID),
				zap.Error(err))
		}
		metrics.DeliveriesSent.WithLabelValues("failed").Inc()
		return false
	}

	if err := w.store.MarkDeliverySent(ctx, delivery.ID, messageID, now); err != nil {
		w.logger.Error("Failed to mark delivery sent",
			zap.String("delivery_id", delivery.ID),
			zap.Error(err))
	}
	if err := w.store.IncrementCampaignStat(ctx, delivery.CampaignID, models.StatSent, 1); err != nil {
		w.logger.Error("Failed to increment sent counter",
			zap.String("campaign_id", delivery.CampaignID),
			zap.Error(err))
	}
	metrics.DeliveriesSent.WithLabelValues("success").Inc()
	return true
}

// Run processes batches on a fixed interval until the context is done.
func (w *DeliveryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := w.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			sent, err := w.ProcessDue(ctx)
			if err != nil {
				w.logger.Error("Delivery batch failed", zap.Error(err))
				continue
			}
			if sent > 0 {
				w.logger.Info("Delivery batch complete", zap.Int("sent", sent))
			}
		}
	}
}
