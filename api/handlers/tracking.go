package handlers

import (
	"net/http"
	"strconv"

	"campaign-engine/internal/tracking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TrackingHandler exposes the open pixel and click redirect endpoints.
// These are a hard boundary: whatever goes wrong inside, the pixel is
// served and the redirect happens.
type TrackingHandler struct {
	logger          *zap.Logger
	collector       *tracking.Collector
	defaultRedirect string
}

func NewTrackingHandler(logger *zap.Logger, collector *tracking.Collector, defaultRedirect string) *TrackingHandler {
	return &TrackingHandler{
		logger:          logger,
		collector:       collector,
		defaultRedirect: defaultRedirect,
	}
}

// HandleOpen serves the 1x1 pixel regardless of whether the tracking ID
// resolved.
func (h *TrackingHandler) HandleOpen(c *gin.Context) {
	trackingID := c.Param("trackingID")
	if trackingID != "" {
		h.collector.HandleOpen(c.Request.Context(), trackingID)
	}
	h.servePixel(c)
}

// HandleClick redirects to the resolved original URL, or to the default
// destination when the tracking ID or link index cannot be resolved.
func (h *TrackingHandler) HandleClick(c *gin.Context) {
	trackingID := c.Param("trackingID")
	index, err := strconv.Atoi(c.Param("index"))
	if trackingID == "" || err != nil {
		c.Redirect(http.StatusFound, h.defaultRedirect)
		return
	}

	target := h.collector.HandleClick(c.Request.Context(), trackingID, index)
	c.Redirect(http.StatusFound, target)
}

func (h *TrackingHandler) servePixel(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/gif", tracking.PixelGIF)
}
