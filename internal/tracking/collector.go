package tracking

import (
	"context"

	"campaign-engine/internal/models"
	"campaign-engine/internal/storage"
	"campaign-engine/pkg/metrics"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Collector applies open and click hits to deliveries and campaign
// aggregates. Hits arrive concurrently and repeatedly for the same tracking
// ID; aggregate counters move at most once per status transition while
// link-level click counts grow without bound. The collector never surfaces
// an error to the remote caller: the handlers always serve the pixel or a
// redirect no matter what happens here.
type Collector struct {
	store           storage.Store
	clock           clockwork.Clock
	defaultRedirect string
	logger          *zap.Logger
}

func NewCollector(store storage.Store, clock clockwork.Clock, defaultRedirect string, logger *zap.Logger) *Collector {
	return &Collector{
		store:           store,
		clock:           clock,
		defaultRedirect: defaultRedirect,
		logger:          logger,
	}
}

// HandleOpen records an open hit for the tracking ID. Unknown IDs and
// internal errors are logged and dropped.
func (c *Collector) HandleOpen(ctx context.Context, trackingID string) {
	delivery, err := c.store.GetDeliveryByTrackingID(ctx, trackingID)
	if err != nil {
		c.logger.Debug("Open hit for unknown tracking ID",
			zap.String("tracking_id", trackingID),
			zap.Error(err))
		return
	}

	transitioned, err := c.store.TransitionDelivery(ctx, delivery.ID, models.DeliveryStatusOpened, c.clock.Now().UTC())
	if err != nil {
		c.logger.Error("Failed to record open",
			zap.String("delivery_id", delivery.ID),
			zap.Error(err))
		return
	}
	if !transitioned {
		return
	}

	if err := c.store.IncrementCampaignStat(ctx, delivery.CampaignID, models.StatOpened, 1); err != nil {
		c.logger.Error("Failed to increment opened counter",
			zap.String("campaign_id", delivery.CampaignID),
			zap.Error(err))
	}
	metrics.TrackingHits.WithLabelValues("open").Inc()
}

// HandleClick records a click hit and resolves the redirect target. Any
// resolution failure falls back to the default destination.
func (c *Collector) HandleClick(ctx context.Context, trackingID string, linkIndex int) string {
	delivery, err := c.store.GetDeliveryByTrackingID(ctx, trackingID)
	if err != nil {
		c.logger.Debug("Click hit for unknown tracking ID",
			zap.String("tracking_id", trackingID),
			zap.Error(err))
		return c.defaultRedirect
	}
	if linkIndex < 0 || linkIndex >= len(delivery.Links) {
		c.logger.Warn("Click hit with out-of-range link index",
			zap.String("delivery_id", delivery.ID),
			zap.Int("link_index", linkIndex))
		return c.defaultRedirect
	}

	now := c.clock.Now().UTC()

	// Every click counts at the link level.
	if err := c.store.IncrementLinkClick(ctx, delivery.ID, linkIndex, now); err != nil {
		c.logger.Error("Failed to increment link click",
			zap.String("delivery_id", delivery.ID),
			zap.Int("link_index", linkIndex),
			zap.Error(err))
	}

	// Only the first click moves the delivery and the campaign aggregate.
	transitioned, err := c.store.TransitionDelivery(ctx, delivery.ID, models.DeliveryStatusClicked, now)
	if err != nil {
		c.logger.Error("Failed to record click",
			zap.String("delivery_id", delivery.ID),
			zap.Error(err))
	} else if transitioned {
		if err := c.store.IncrementCampaignStat(ctx, delivery.CampaignID, models.StatClicked, 1); err != nil {
			c.logger.Error("Failed to increment clicked counter",
				zap.String("campaign_id", delivery.CampaignID),
				zap.Error(err))
		}
	}
	metrics.TrackingHits.WithLabelValues("click").Inc()

	return delivery.Links[linkIndex].Original
}
