package engine

import (
	"context"
	"time"

	"campaign-engine/internal/models"
	"campaign-engine/internal/storage"
	"campaign-engine/pkg/metrics"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Matcher selects the active campaigns eligible to fire for one event and
// drives each surviving candidate through the composer. One campaign's
// failure never blocks its siblings or the processed=true finalization.
type Matcher struct {
	store    storage.Store
	composer *Composer
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewMatcher(store storage.Store, composer *Composer, clock clockwork.Clock, logger *zap.Logger) *Matcher {
	return &Matcher{
		store:    store,
		composer: composer,
		clock:    clock,
		logger:   logger,
	}
}

// ProcessEvent evaluates every candidate campaign for the event and marks
// the event processed once all candidates have been handled. Safe to call
// again on an already-swept event: campaigns with an existing triggered
// entry are skipped.
func (m *Matcher) ProcessEvent(ctx context.Context, event *models.Event) error {
	candidates, err := m.store.ActiveCampaignsByTrigger(ctx, event.EventType)
	if err != nil {
		metrics.EventsProcessed.WithLabelValues(event.EventType, "error").Inc()
		return err
	}

	for _, campaign := range candidates {
		if event.HasTriggered(campaign.ID) {
			continue
		}
		if !m.eligible(campaign, event) {
			continue
		}

		scheduledFor := event.Timestamp.Add(time.Duration(campaign.DelaySeconds) * time.Second)
		entry := models.TriggeredCampaign{
			CampaignID:   campaign.ID,
			Status:       models.TriggerStatusScheduled,
			ScheduledFor: scheduledFor,
		}

		delivery, err := m.composer.Schedule(ctx, campaign, event, scheduledFor)
		if err != nil {
			m.logger.Error("Failed to schedule campaign email",
				zap.String("event_id", event.ID),
				zap.String("campaign_id", campaign.ID),
				zap.Error(err))
			entry.Status = models.TriggerStatusFailed
			entry.Error = err.Error()
			metrics.CampaignsTriggered.WithLabelValues(campaign.ID, "failed").Inc()
		} else {
			entry.EmailID = delivery.ID
			metrics.CampaignsTriggered.WithLabelValues(campaign.ID, "scheduled").Inc()
		}

		if err := m.store.AppendTriggeredCampaign(ctx, event.ID, entry); err != nil {
			m.logger.Error("Failed to record triggered campaign",
				zap.String("event_id", event.ID),
				zap.String("campaign_id", campaign.ID),
				zap.Error(err))
		}
		event.TriggeredCampaigns = append(event.TriggeredCampaigns, entry)
	}

	if err := m.store.MarkEventProcessed(ctx, event.ID); err != nil {
		metrics.EventsProcessed.WithLabelValues(event.EventType, "error").Inc()
		return err
	}
	event.Processed = true
	metrics.EventsProcessed.WithLabelValues(event.EventType, "success").Inc()
	return nil
}

// eligible applies the candidate filters in order: date window, audience
// deny/allow lists, then the condition predicate. A non-match is silent.
func (m *Matcher) eligible(campaign *models.Campaign, event *models.Event) bool {
	now := m.clock.Now().UTC()
	if !campaign.StartDate.IsZero() && now.Before(campaign.StartDate) {
		return false
	}
	if campaign.EndDate != nil && now.After(*campaign.EndDate) {
		return false
	}

	for _, excluded := range campaign.AudienceExclude {
		if excluded == event.UserID {
			return false
		}
	}
	if len(campaign.AudienceInclude) > 0 {
		included := false
		for _, id := range campaign.AudienceInclude {
			if id == event.UserID {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	return CompileConditions(campaign.Conditions).Matches(event)
}
