package handlers

import (
	"errors"
	"net/http"

	"campaign-engine/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CampaignHandler exposes read-only campaign analytics. Campaign CRUD lives
// outside this service.
type CampaignHandler struct {
	logger *zap.Logger
	store  storage.Store
}

func NewCampaignHandler(logger *zap.Logger, store storage.Store) *CampaignHandler {
	return &CampaignHandler{logger: logger, store: store}
}

func (h *CampaignHandler) HandleStats(c *gin.Context) {
	campaign, err := h.store.GetCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		h.logger.Error("Failed to load campaign", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaign"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaign_id": campaign.ID,
		"name":        campaign.Name,
		"status":      campaign.Status,
		"analytics":   campaign.Analytics,
	})
}
