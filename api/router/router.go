package router

import (
	"campaign-engine/api/handlers"
	"campaign-engine/api/middleware"
	"campaign-engine/config"
	"campaign-engine/internal/queue"
	"campaign-engine/internal/storage"
	"campaign-engine/internal/tracking"
	"campaign-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(log *logger.Logger, store storage.Store, publisher queue.Publisher, collector *tracking.Collector, cfg *config.Config) *gin.Engine {
	router := gin.Default()

	security := middleware.NewSecurityMiddleware(
		log.Desugar(),
		cfg.Security.APIKeys,
		cfg.Security.APIKeyHeader,
	)

	router.Use(security.CORS())

	// Health check endpoint (no authentication required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Metrics endpoint for Prometheus (no authentication required)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	eventHandler := handlers.NewEventHandler(log.Desugar(), store, publisher)
	campaignHandler := handlers.NewCampaignHandler(log.Desugar(), store)
	trackingHandler := handlers.NewTrackingHandler(log.Desugar(), collector, cfg.Tracking.DefaultRedirect)
	webhookHandler := handlers.NewProviderWebhookHandler(log.Desugar(), store)
	unsubscribeHandler := handlers.NewUnsubscribeHandler(log.Desugar(), store)

	// Authenticated ingestion and analytics API
	api := router.Group("/api/v1")
	api.Use(security.Authenticate())
	{
		api.POST("/events", security.ValidatePayload(), eventHandler.HandleIngest)
		api.GET("/campaigns/:id/stats", campaignHandler.HandleStats)
	}

	// Provider callbacks arrive unauthenticated from the email provider
	router.POST("/api/v1/webhooks/provider", webhookHandler.HandleProviderEvents)

	// Tracking endpoints are hit by remote mail clients; never authenticated
	router.GET("/t/o/:trackingID", trackingHandler.HandleOpen)
	router.GET("/t/c/:trackingID/:index", trackingHandler.HandleClick)
	router.GET("/u/:userID/:campaignID", unsubscribeHandler.HandleUnsubscribe)

	return router
}
