package handlers

import (
	"net/http"

	"campaign-engine/internal/models"
	"campaign-engine/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UnsubscribeHandler backs the unsubscribe_link variable baked into every
// composed email. Like the tracking endpoints it degrades gracefully: the
// recipient always sees the confirmation page.
type UnsubscribeHandler struct {
	logger *zap.Logger
	store  storage.Store
}

func NewUnsubscribeHandler(logger *zap.Logger, store storage.Store) *UnsubscribeHandler {
	return &UnsubscribeHandler{logger: logger, store: store}
}

func (h *UnsubscribeHandler) HandleUnsubscribe(c *gin.Context) {
	userID := c.Param("userID")
	campaignID := c.Param("campaignID")

	if err := h.store.IncrementCampaignStat(c.Request.Context(), campaignID, models.StatUnsubscribed, 1); err != nil {
		h.logger.Warn("Failed to record unsubscribe",
			zap.String("user_id", userID),
			zap.String("campaign_id", campaignID),
			zap.Error(err))
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(`<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;text-align:center;padding:50px;">
		<h1>You have been unsubscribed</h1>
		<p>You will no longer receive emails from us.</p>
	</body></html>`))
}
