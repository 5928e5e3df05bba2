package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campaign-engine/config"
	"campaign-engine/internal/engine"
	"campaign-engine/internal/queue"
	"campaign-engine/internal/storage"
	"campaign-engine/internal/tracking"
	"campaign-engine/internal/transport"
	"campaign-engine/internal/worker"
	"campaign-engine/pkg/logger"

	"github.com/jonboulle/clockwork"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.NewLogger(cfg.LogLevel)

	// Initialize RabbitMQ connection
	amqpConn, err := queue.NewRabbitMQConnection(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer amqpConn.Close()

	// Create a channel
	ch, err := amqpConn.Channel()
	if err != nil {
		logger.Fatalf("Failed to open channel: %v", err)
	}
	defer ch.Close()

	// Declare exchange
	err = ch.ExchangeDeclare(
		cfg.RabbitMQ.Exchange, // name
		"direct",              // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		logger.Fatalf("Failed to declare exchange: %v", err)
	}

	// Declare queue
	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.QueueName, // name
		true,                   // durable
		false,                  // delete when unused
		false,                  // exclusive
		false,                  // no-wait
		nil,                    // arguments
	)
	if err != nil {
		logger.Fatalf("Failed to declare queue: %v", err)
	}

	// Bind queue to exchange
	err = ch.QueueBind(
		q.Name,                // queue name
		"",                    // routing key
		cfg.RabbitMQ.Exchange, // exchange
		false,
		nil,
	)
	if err != nil {
		logger.Fatalf("Failed to bind queue: %v", err)
	}

	// Initialize MongoDB connection
	store, err := storage.NewMongoStore(cfg.MongoDB.URI, cfg.MongoDB.Database, logger.Desugar())
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	// Email transport; the connection itself is established lazily
	sparkpost, err := transport.NewSparkPost(cfg.SparkPost.APIKey, cfg.SparkPost.BaseURL)
	if err != nil {
		logger.Fatalf("Failed to configure email transport: %v", err)
	}

	clock := clockwork.NewRealClock()

	// Wire the matching pipeline
	instrumentor := tracking.NewInstrumentor(cfg.Tracking.BaseURL)
	composer := engine.NewComposer(store, instrumentor, engine.SenderConfig{
		FromAddress: cfg.Sender.FromAddress,
		CompanyName: cfg.Sender.CompanyName,
		BaseURL:     cfg.Tracking.BaseURL,
	}, clock, logger.Desugar())
	matcher := engine.NewMatcher(store, composer, clock, logger.Desugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queue-driven event dispatch
	dispatcher := worker.NewDispatcher(ch, store, matcher, logger.Desugar())
	if err := dispatcher.Start(ctx, q.Name); err != nil {
		logger.Fatalf("Failed to start dispatcher: %v", err)
	}

	// Periodic delivery batches
	deliveryWorker := worker.NewDeliveryWorker(store, sparkpost, clock, cfg.Workers.BatchSize, logger.Desugar())
	go deliveryWorker.Run(ctx, time.Duration(cfg.Workers.DeliveryIntervalSeconds)*time.Second)

	// Periodic durability sweep
	sweeper := worker.NewSweeper(store, matcher, clock, cfg.Workers.BatchSize, logger.Desugar())
	go sweeper.Run(ctx, time.Duration(cfg.Workers.SweepIntervalSeconds)*time.Second)

	logger.Info("Worker started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Worker shutting down")
}
