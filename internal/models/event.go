package models

import (
	"time"
)

// Event represents a recorded user-behavior occurrence
type Event struct {
	ID        string         `json:"id" bson:"_id"`
	UserID    string         `json:"user_id" bson:"user_id"`
	EventType string         `json:"event_type" bson:"event_type"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`

	// Processed flips false -> true exactly once, after the matcher has
	// evaluated every candidate campaign for this event.
	Processed bool `json:"processed" bson:"processed"`

	// TriggeredCampaigns is append-only, at most one entry per campaign.
	TriggeredCampaigns []TriggeredCampaign `json:"triggered_campaigns,omitempty" bson:"triggered_campaigns,omitempty"`

	ReceivedAt time.Time `json:"-" bson:"received_at"`
	UpdatedAt  time.Time `json:"-" bson:"updated_at"`
}

// TriggerStatus represents the outcome of one campaign match on an event
type TriggerStatus string

const (
	TriggerStatusScheduled TriggerStatus = "scheduled"
	TriggerStatusSent      TriggerStatus = "sent"
	TriggerStatusFailed    TriggerStatus = "failed"
)

// TriggeredCampaign records one campaign that matched this event
type TriggeredCampaign struct {
	CampaignID   string        `json:"campaign_id" bson:"campaign_id"`
	Status       TriggerStatus `json:"status" bson:"status"`
	ScheduledFor time.Time     `json:"scheduled_for" bson:"scheduled_for"`
	EmailID      string        `json:"email_id,omitempty" bson:"email_id,omitempty"`
	Error        string        `json:"error,omitempty" bson:"error,omitempty"`
}

// HasTriggered reports whether the event already carries an entry for the
// given campaign. Used to keep sweep re-runs idempotent.
func (e *Event) HasTriggered(campaignID string) bool {
	for _, tc := range e.TriggeredCampaigns {
		if tc.CampaignID == campaignID {
			return true
		}
	}
	return false
}
