package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"campaign-engine/api/router"
	"campaign-engine/config"
	"campaign-engine/internal/queue"
	"campaign-engine/internal/storage"
	"campaign-engine/internal/tracking"
	"campaign-engine/pkg/logger"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	httpServer    *http.Server
	metricsServer *http.Server
	logger        *logger.Logger
	publisher     queue.Publisher
	store         *storage.MongoStore
	stopMetrics   context.CancelFunc
}

func NewServer(cfg *config.Config, log *logger.Logger) *Server {
	store, err := storage.NewMongoStore(cfg.MongoDB.URI, cfg.MongoDB.Database, log.Desugar())
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}

	publisher, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.QueueName, log.Desugar())
	if err != nil {
		log.Fatalf("failed to create rabbitmq publisher: %v", err)
	}

	// Feed the event_queue_size gauge until shutdown
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	publisher.StartMetricsUpdater(metricsCtx)

	collector := tracking.NewCollector(store, clockwork.NewRealClock(), cfg.Tracking.DefaultRedirect, log.Desugar())

	r := router.Setup(log, store, publisher, collector, cfg)

	// Create metrics server
	metricsAddr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
	metricsServer := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: r,
		},
		metricsServer: metricsServer,
		logger:        log,
		publisher:     publisher,
		store:         store,
		stopMetrics:   stopMetrics,
	}
}

func (s *Server) Start() error {
	// Start metrics server in a goroutine
	go func() {
		s.logger.Info("Metrics server starting on port " + s.metricsServer.Addr)
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("metrics server error: %v", err)
		}
	}()

	// Start main HTTP server
	s.logger.Info("Server starting on port " + s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown() error {
	s.logger.Info("Server shutting down")
	s.stopMetrics()
	if err := s.publisher.Close(); err != nil {
		s.logger.Error("failed to close publisher", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Close(ctx); err != nil {
		s.logger.Error("failed to close store", zap.Error(err))
	}
	return s.httpServer.Shutdown(ctx)
}
