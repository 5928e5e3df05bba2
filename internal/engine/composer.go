package engine

import (
	"context"
	"fmt"
	"time"

	"campaign-engine/internal/models"
	"campaign-engine/internal/storage"
	"campaign-engine/internal/tracking"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// SenderConfig is the identity stamped on every composed delivery.
type SenderConfig struct {
	FromAddress string
	CompanyName string
	// BaseURL is the public root used to build unsubscribe links.
	BaseURL string
}

// Composer renders a template against the variable context of a matched
// campaign and persists the resulting scheduled delivery.
type Composer struct {
	store        storage.Store
	instrumentor *tracking.Instrumentor
	sender       SenderConfig
	clock        clockwork.Clock
	logger       *zap.Logger
}

func NewComposer(store storage.Store, instrumentor *tracking.Instrumentor, sender SenderConfig, clock clockwork.Clock, logger *zap.Logger) *Composer {
	return &Composer{
		store:        store,
		instrumentor: instrumentor,
		sender:       sender,
		clock:        clock,
		logger:       logger,
	}
}

// Schedule composes and persists one delivery for a matched campaign. A
// missing template or user is a hard failure for this campaign only; the
// matcher catches it and moves on to the next candidate.
func (c *Composer) Schedule(ctx context.Context, campaign *models.Campaign, event *models.Event, scheduledFor time.Time) (*models.Delivery, error) {
	template, err := c.store.GetTemplate(ctx, campaign.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", campaign.TemplateID, err)
	}

	user, err := c.store.GetUser(ctx, event.UserID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", event.UserID, err)
	}

	vars := c.buildVariables(campaign, event, user)

	subject := RenderTemplate(template.Subject, vars)
	body := RenderTemplate(template.Body, vars)

	// Unresolved placeholders ship verbatim; surface them so a broken
	// template or missing attribute is visible before recipients see it.
	if unresolved := ExtractVariables(subject + " " + body); len(unresolved) > 0 {
		c.logger.Warn("Template placeholders left unresolved",
			zap.String("template_id", template.ID),
			zap.String("campaign_id", campaign.ID),
			zap.Strings("placeholders", unresolved))
	}

	trackingID := newTrackingID()
	var links []models.TrackedLink
	if template.IsHTML {
		body, links = c.instrumentor.Instrument(body, trackingID)
	}

	now := c.clock.Now().UTC()
	delivery := &models.Delivery{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		CampaignID:   campaign.ID,
		EventID:      event.ID,
		TemplateID:   template.ID,
		To:           user.Email,
		From:         c.sender.FromAddress,
		Subject:      subject,
		Body:         body,
		IsHTML:       template.IsHTML,
		TrackingID:   trackingID,
		Status:       models.DeliveryStatusScheduled,
		ScheduledFor: scheduledFor,
		Links:        links,
		Variables:    vars,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.store.InsertDelivery(ctx, delivery); err != nil {
		return nil, fmt.Errorf("persist delivery: %w", err)
	}

	c.logger.Info("Scheduled delivery",
		zap.String("delivery_id", delivery.ID),
		zap.String("campaign_id", campaign.ID),
		zap.String("user_id", user.ID),
		zap.Time("scheduled_for", scheduledFor))

	return delivery, nil
}

// buildVariables layers the variable context. Later layers override earlier
// on key collision: campaign defaults, computed fields, user attributes,
// then primitive event metadata.
func (c *Composer) buildVariables(campaign *models.Campaign, event *models.Event, user *models.User) map[string]string {
	vars := make(map[string]string)

	for k, v := range campaign.DefaultVariables {
		vars[k] = v
	}

	vars["user_name"] = user.Name
	vars["user_email"] = user.Email
	vars["company_name"] = c.sender.CompanyName
	vars["unsubscribe_link"] = fmt.Sprintf("%s/u/%s/%s", c.sender.BaseURL, user.ID, campaign.ID)

	for k, v := range user.Attributes {
		vars["user_"+k] = v
	}

	// Non-primitive metadata values are skipped.
	for k, v := range event.Metadata {
		if s, ok := primitiveString(v); ok {
			vars["event_"+k] = s
		}
	}

	return vars
}

// primitiveString renders scalar metadata values; maps and slices are
// rejected.
func primitiveString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return fmt.Sprintf("%t", v), true
	case float64, float32, int, int32, int64:
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

// newTrackingID returns a collision-resistant, URL-safe identifier.
// Uniqueness is still enforced by the storage layer.
func newTrackingID() string {
	return uuid.NewString()
}
