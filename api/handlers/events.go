package handlers

import (
	"net/http"
	"time"

	"campaign-engine/internal/models"
	"campaign-engine/internal/queue"
	"campaign-engine/internal/storage"
	"campaign-engine/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventHandler struct {
	logger      *zap.Logger
	store       storage.Store
	publisher   queue.Publisher
	rateLimiter *RateLimiter
}

func NewEventHandler(logger *zap.Logger, store storage.Store, publisher queue.Publisher) *EventHandler {
	return &EventHandler{
		logger:      logger,
		store:       store,
		publisher:   publisher,
		rateLimiter: NewRateLimiter(),
	}
}

type ingestRequest struct {
	UserID    string         `json:"user_id" binding:"required"`
	EventType string         `json:"event_type" binding:"required"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HandleIngest persists the event and returns immediately; matching runs in
// the background off the dispatch queue. A publish failure is not surfaced:
// the periodic sweep picks the event up on its next pass.
func (h *EventHandler) HandleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to parse event payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	clientID := c.GetString("clientID")
	if !h.rateLimiter.AllowRequest(clientID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	now := time.Now().UTC()
	timestamp := now
	if req.Timestamp != nil {
		timestamp = req.Timestamp.UTC()
	}

	event := &models.Event{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		EventType:  req.EventType,
		Timestamp:  timestamp,
		Metadata:   req.Metadata,
		Processed:  false,
		ReceivedAt: now,
		UpdatedAt:  now,
	}

	if err := h.store.InsertEvent(c.Request.Context(), event); err != nil {
		h.logger.Error("Failed to persist event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}

	metrics.EventsReceived.WithLabelValues(event.EventType).Inc()

	if err := h.publisher.PublishEvent(queue.EventMessage{
		EventID:   event.ID,
		EventType: event.EventType,
	}); err != nil {
		// One-shot dispatch only; the sweep is the durability guarantee.
		h.logger.Error("Failed to publish event for dispatch",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"event_id": event.ID,
		"status":   "accepted",
	})
}
