package models

import (
	"time"
)

// DeliveryStatus represents the state machine of an outbound email:
// scheduled -> sending -> sent -> delivered -> opened -> clicked, with
// failed reachable from sending and the provider-callback outcomes
// reachable from any engagement state. Statuses only move forward along
// this ladder; opened and clicked are highest-watermark markers, and
// clicked may be recorded without a prior opened transition.
type DeliveryStatus string

const (
	DeliveryStatusScheduled    DeliveryStatus = "scheduled"
	DeliveryStatusSending      DeliveryStatus = "sending"
	DeliveryStatusSent         DeliveryStatus = "sent"
	DeliveryStatusFailed       DeliveryStatus = "failed"
	DeliveryStatusDelivered    DeliveryStatus = "delivered"
	DeliveryStatusOpened       DeliveryStatus = "opened"
	DeliveryStatusClicked      DeliveryStatus = "clicked"
	DeliveryStatusBounced      DeliveryStatus = "bounced"
	DeliveryStatusRejected     DeliveryStatus = "rejected"
	DeliveryStatusComplained   DeliveryStatus = "complained"
	DeliveryStatusUnsubscribed DeliveryStatus = "unsubscribed"
)

// TrackedLink is one rewritten anchor in an instrumented HTML body.
// ClickCount grows without bound; only the delivery's first click feeds the
// campaign aggregate.
type TrackedLink struct {
	Original      string     `json:"original" bson:"original"`
	Tracking      string     `json:"tracking" bson:"tracking"`
	ClickCount    int64      `json:"click_count" bson:"click_count"`
	LastClickedAt *time.Time `json:"last_clicked_at,omitempty" bson:"last_clicked_at,omitempty"`
}

// Delivery is one rendered, trackable email instance tied to a user,
// campaign and triggering event. At most one delivery exists per
// (event, campaign) pair.
type Delivery struct {
	ID         string `json:"id" bson:"_id"`
	UserID     string `json:"user_id" bson:"user_id"`
	CampaignID string `json:"campaign_id" bson:"campaign_id"`
	EventID    string `json:"event_id" bson:"event_id"`
	TemplateID string `json:"template_id" bson:"template_id"`

	To      string `json:"to" bson:"to"`
	From    string `json:"from" bson:"from"`
	Subject string `json:"subject" bson:"subject"`
	Body    string `json:"body" bson:"body"`
	IsHTML  bool   `json:"is_html" bson:"is_html"`

	// TrackingID is globally unique, URL-safe and immutable.
	TrackingID string `json:"tracking_id" bson:"tracking_id"`

	Status       DeliveryStatus `json:"status" bson:"status"`
	ScheduledFor time.Time      `json:"scheduled_for" bson:"scheduled_for"`

	SentAt      *time.Time `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	OpenedAt    *time.Time `json:"opened_at,omitempty" bson:"opened_at,omitempty"`
	ClickedAt   *time.Time `json:"clicked_at,omitempty" bson:"clicked_at,omitempty"`

	ProviderMessageID string `json:"provider_message_id,omitempty" bson:"provider_message_id,omitempty"`

	Links []TrackedLink `json:"links,omitempty" bson:"links,omitempty"`

	// Variables is the context snapshot used at render time.
	Variables map[string]string `json:"variables,omitempty" bson:"variables,omitempty"`

	ErrorMessage string `json:"error_message,omitempty" bson:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
