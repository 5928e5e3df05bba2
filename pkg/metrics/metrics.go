package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_events_received_total",
		Help: "The total number of behavior events ingested",
	}, []string{"event_type"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_events_processed_total",
		Help: "The total number of events driven through the matcher",
	}, []string{"event_type", "status"})

	CampaignsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaigns_triggered_total",
		Help: "The total number of campaign matches that scheduled a delivery",
	}, []string{"campaign_id", "status"})

	DeliveriesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_sent_total",
		Help: "The total number of delivery send attempts by outcome",
	}, []string{"status"})

	SendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_send_duration_seconds",
		Help:    "Time taken to hand one delivery to the email provider",
		Buckets: prometheus.DefBuckets,
	})

	TrackingHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_hits_total",
		Help: "The total number of open and click tracking hits",
	}, []string{"type"})

	SweepEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_events_total",
		Help: "The total number of unprocessed events picked up by the sweep",
	})

	EventQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_queue_size",
		Help: "Current size of the event dispatch queue",
	})
)
