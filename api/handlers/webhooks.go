package handlers

import (
	"net/http"
	"time"

	"campaign-engine/internal/models"
	"campaign-engine/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProviderWebhookHandler consumes provider callbacks (delivered, bounce,
// complaint, rejection, unsubscribe) and applies the corresponding delivery
// transitions and campaign counters.
type ProviderWebhookHandler struct {
	logger *zap.Logger
	store  storage.Store
}

func NewProviderWebhookHandler(logger *zap.Logger, store storage.Store) *ProviderWebhookHandler {
	return &ProviderWebhookHandler{logger: logger, store: store}
}

type providerEvent struct {
	Event     string `json:"event"`
	MessageID string `json:"message_id"`
	Reason    string `json:"reason,omitempty"`
}

// statusForProviderEvent maps a callback type to the delivery status it
// drives and the campaign counter it feeds (empty = none).
func statusForProviderEvent(event string) (models.DeliveryStatus, string, bool) {
	switch event {
	case "delivery", "delivered":
		return models.DeliveryStatusDelivered, "", true
	case "bounce", "bounced":
		return models.DeliveryStatusBounced, models.StatBounced, true
	case "spam_complaint", "complaint":
		return models.DeliveryStatusComplained, models.StatComplained, true
	case "rejected", "rejection":
		return models.DeliveryStatusRejected, "", true
	case "unsubscribe", "unsubscribed":
		return models.DeliveryStatusUnsubscribed, models.StatUnsubscribed, true
	}
	return "", "", false
}

// HandleProviderEvents accepts a batch of callbacks. Unknown event types
// and unresolvable message IDs are logged and skipped; the provider always
// gets a 200 so it does not retry forever.
func (h *ProviderWebhookHandler) HandleProviderEvents(c *gin.Context) {
	var events []providerEvent
	if err := c.ShouldBindJSON(&events); err != nil {
		h.logger.Error("Failed to parse provider callback payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	accepted := 0
	for _, pe := range events {
		if h.apply(c, pe) {
			accepted++
		}
	}

	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

func (h *ProviderWebhookHandler) apply(c *gin.Context, pe providerEvent) bool {
	status, stat, ok := statusForProviderEvent(pe.Event)
	if !ok {
		h.logger.Warn("Unknown provider event type", zap.String("event", pe.Event))
		return false
	}

	ctx := c.Request.Context()
	delivery, err := h.store.GetDeliveryByProviderMessageID(ctx, pe.MessageID)
	if err != nil {
		h.logger.Warn("Provider callback for unknown message",
			zap.String("event", pe.Event),
			zap.String("message_id", pe.MessageID),
			zap.Error(err))
		return false
	}

	transitioned, err := h.store.TransitionDelivery(ctx, delivery.ID, status, time.Now().UTC())
	if err != nil {
		h.logger.Error("Failed to apply provider event",
			zap.String("delivery_id", delivery.ID),
			zap.String("event", pe.Event),
			zap.Error(err))
		return false
	}

	if transitioned && stat != "" {
		if err := h.store.IncrementCampaignStat(ctx, delivery.CampaignID, stat, 1); err != nil {
			h.logger.Error("Failed to increment campaign counter",
				zap.String("campaign_id", delivery.CampaignID),
				zap.String("stat", stat),
				zap.Error(err))
		}
	}
	return true
}
