package models

import (
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusArchived  CampaignStatus = "archived"
)

// Campaign binds a trigger event type, eligibility rules and a template
// to delayed email sends.
type Campaign struct {
	ID               string `json:"id" bson:"_id"`
	Name             string `json:"name" bson:"name"`
	TemplateID       string `json:"template_id" bson:"template_id"`
	TriggerEventType string `json:"trigger_event_type" bson:"trigger_event_type"`
	DelaySeconds     int    `json:"delay_seconds" bson:"delay_seconds"`

	// Conditions maps dot-separated event paths to either a literal value
	// (equality) or an operator document (exists, equals, gt, lt). The raw
	// form is stored as ingested; internal/engine compiles it before
	// evaluation.
	Conditions map[string]any `json:"conditions,omitempty" bson:"conditions,omitempty"`

	// AudienceInclude, when non-empty, is an allow-list of user IDs.
	// AudienceExclude always wins over inclusion.
	AudienceInclude []string `json:"audience_include,omitempty" bson:"audience_include,omitempty"`
	AudienceExclude []string `json:"audience_exclude,omitempty" bson:"audience_exclude,omitempty"`

	StartDate time.Time  `json:"start_date" bson:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" bson:"end_date,omitempty"`

	Status           CampaignStatus    `json:"status" bson:"status"`
	DefaultVariables map[string]string `json:"default_variables,omitempty" bson:"default_variables,omitempty"`

	Analytics CampaignAnalytics `json:"analytics" bson:"analytics"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// CampaignAnalytics holds monotonically non-decreasing aggregate counters.
// They are only ever mutated through atomic increments at the storage layer.
type CampaignAnalytics struct {
	Sent         int64 `json:"sent" bson:"sent"`
	Opened       int64 `json:"opened" bson:"opened"`
	Clicked      int64 `json:"clicked" bson:"clicked"`
	Bounced      int64 `json:"bounced" bson:"bounced"`
	Unsubscribed int64 `json:"unsubscribed" bson:"unsubscribed"`
	Complained   int64 `json:"complained" bson:"complained"`
}

// Analytics counter field names as stored in the campaigns collection.
const (
	StatSent         = "sent"
	StatOpened       = "opened"
	StatClicked      = "clicked"
	StatBounced      = "bounced"
	StatUnsubscribed = "unsubscribed"
	StatComplained   = "complained"
)
