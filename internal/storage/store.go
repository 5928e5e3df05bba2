package storage

import (
	"context"
	"errors"
	"time"

	"campaign-engine/internal/models"
)

var (
	// ErrNotFound is returned when a lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate")
)

// Store is the persistence collaborator consumed by the engine, the workers
// and the tracking collector. Implementations must provide atomic
// single-field increments and conditional status transitions; the claim and
// transition methods report false when the condition did not hold instead
// of returning an error.
type Store interface {
	// Events
	InsertEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UnprocessedEvents(ctx context.Context, limit int) ([]*models.Event, error)
	AppendTriggeredCampaign(ctx context.Context, eventID string, tc models.TriggeredCampaign) error
	MarkEventProcessed(ctx context.Context, eventID string) error

	// Campaigns
	InsertCampaign(ctx context.Context, campaign *models.Campaign) error
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	ActiveCampaignsByTrigger(ctx context.Context, eventType string) ([]*models.Campaign, error)
	IncrementCampaignStat(ctx context.Context, campaignID, stat string, delta int64) error

	// Templates
	InsertTemplate(ctx context.Context, template *models.Template) error
	GetTemplate(ctx context.Context, id string) (*models.Template, error)

	// Users
	InsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)

	// Deliveries
	InsertDelivery(ctx context.Context, delivery *models.Delivery) error
	GetDelivery(ctx context.Context, id string) (*models.Delivery, error)
	GetDeliveryByTrackingID(ctx context.Context, trackingID string) (*models.Delivery, error)
	GetDeliveryByProviderMessageID(ctx context.Context, messageID string) (*models.Delivery, error)

	// DueDeliveries returns scheduled deliveries with scheduledFor <= now,
	// ascending by scheduledFor, capped at limit.
	DueDeliveries(ctx context.Context, now time.Time, limit int) ([]*models.Delivery, error)

	// ClaimDelivery atomically transitions scheduled -> sending. It returns
	// false when the delivery was no longer in scheduled status, which means
	// another worker run claimed it first.
	ClaimDelivery(ctx context.Context, id string) (bool, error)

	MarkDeliverySent(ctx context.Context, id, providerMessageID string, at time.Time) error
	MarkDeliveryFailed(ctx context.Context, id, errorMessage string) error

	// TransitionDelivery moves a delivery forward along the status ladder,
	// stamping the status timestamp on first entry. It returns false when the
	// delivery already sits at or past the target, so a status never moves
	// backwards and the campaign aggregate fed by a transition increments at
	// most once per delivery.
	TransitionDelivery(ctx context.Context, id string, to models.DeliveryStatus, at time.Time) (bool, error)

	// IncrementLinkClick bumps the click count of one tracked link and
	// refreshes its last-clicked timestamp. Every click counts here.
	IncrementLinkClick(ctx context.Context, deliveryID string, linkIndex int, at time.Time) error
}

// deliveryStatusRank orders the delivery status ladder. Engagement climbs
// scheduled -> sending -> sent -> delivered -> opened -> clicked, with
// clicked reachable without a prior opened; the failure and suppression
// outcomes sit above the ladder and are terminal among themselves.
func deliveryStatusRank(status models.DeliveryStatus) int {
	switch status {
	case models.DeliveryStatusScheduled:
		return 0
	case models.DeliveryStatusSending:
		return 1
	case models.DeliveryStatusSent:
		return 2
	case models.DeliveryStatusDelivered:
		return 3
	case models.DeliveryStatusOpened:
		return 4
	case models.DeliveryStatusClicked:
		return 5
	}
	// failed, bounced, rejected, complained, unsubscribed
	return 6
}

// transitionableFrom lists the statuses a delivery may currently hold for a
// move into to to count. Used as the Mongo transition filter.
func transitionableFrom(to models.DeliveryStatus) []models.DeliveryStatus {
	all := []models.DeliveryStatus{
		models.DeliveryStatusScheduled,
		models.DeliveryStatusSending,
		models.DeliveryStatusSent,
		models.DeliveryStatusDelivered,
		models.DeliveryStatusOpened,
		models.DeliveryStatusClicked,
		models.DeliveryStatusFailed,
		models.DeliveryStatusBounced,
		models.DeliveryStatusRejected,
		models.DeliveryStatusComplained,
		models.DeliveryStatusUnsubscribed,
	}

	target := deliveryStatusRank(to)
	var from []models.DeliveryStatus
	for _, status := range all {
		if deliveryStatusRank(status) < target {
			from = append(from, status)
		}
	}
	return from
}
