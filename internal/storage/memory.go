package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"campaign-engine/internal/models"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and local
// development. It mirrors the Mongo implementation's semantics, including
// conditional claims and increment-only counters.
type MemoryStore struct {
	mu         sync.Mutex
	events     map[string]*models.Event
	campaigns  map[string]*models.Campaign
	templates  map[string]*models.Template
	users      map[string]*models.User
	deliveries map[string]*models.Delivery
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:     make(map[string]*models.Event),
		campaigns:  make(map[string]*models.Campaign),
		templates:  make(map[string]*models.Template),
		users:      make(map[string]*models.User),
		deliveries: make(map[string]*models.Delivery),
	}
}

// Events

func (s *MemoryStore) InsertEvent(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return ErrDuplicate
	}
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEvent(event), nil
}

func (s *MemoryStore) UnprocessedEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []*models.Event
	for _, event := range s.events {
		if !event.Processed {
			events = append(events, copyEvent(event))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (s *MemoryStore) AppendTriggeredCampaign(ctx context.Context, eventID string, tc models.TriggeredCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	event.TriggeredCampaigns = append(event.TriggeredCampaigns, tc)
	event.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) MarkEventProcessed(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	event.Processed = true
	event.UpdatedAt = time.Now().UTC()
	return nil
}

// Campaigns

func (s *MemoryStore) InsertCampaign(ctx context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[campaign.ID]; ok {
		return ErrDuplicate
	}
	cp := *campaign
	s.campaigns[campaign.ID] = &cp
	return nil
}

func (s *MemoryStore) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *campaign
	return &cp, nil
}

func (s *MemoryStore) ActiveCampaignsByTrigger(ctx context.Context, eventType string) ([]*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var campaigns []*models.Campaign
	for _, campaign := range s.campaigns {
		if campaign.TriggerEventType == eventType && campaign.Status == models.CampaignStatusActive {
			cp := *campaign
			campaigns = append(campaigns, &cp)
		}
	}
	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].ID < campaigns[j].ID
	})
	return campaigns, nil
}

func (s *MemoryStore) IncrementCampaignStat(ctx context.Context, campaignID, stat string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.campaigns[campaignID]
	if !ok {
		return ErrNotFound
	}
	switch stat {
	case models.StatSent:
		campaign.Analytics.Sent += delta
	case models.StatOpened:
		campaign.Analytics.Opened += delta
	case models.StatClicked:
		campaign.Analytics.Clicked += delta
	case models.StatBounced:
		campaign.Analytics.Bounced += delta
	case models.StatUnsubscribed:
		campaign.Analytics.Unsubscribed += delta
	case models.StatComplained:
		campaign.Analytics.Complained += delta
	}
	campaign.UpdatedAt = time.Now().UTC()
	return nil
}

// Templates

func (s *MemoryStore) InsertTemplate(ctx context.Context, template *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[template.ID]; ok {
		return ErrDuplicate
	}
	cp := *template
	s.templates[template.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	template, ok := s.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *template
	return &cp, nil
}

// Users

func (s *MemoryStore) InsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return ErrDuplicate
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *user
	return &cp, nil
}

// Deliveries

func (s *MemoryStore) InsertDelivery(ctx context.Context, delivery *models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[delivery.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range s.deliveries {
		if existing.TrackingID == delivery.TrackingID {
			return ErrDuplicate
		}
		if existing.EventID == delivery.EventID && existing.CampaignID == delivery.CampaignID {
			return ErrDuplicate
		}
	}
	s.deliveries[delivery.ID] = copyDelivery(delivery)
	return nil
}

func (s *MemoryStore) GetDelivery(ctx context.Context, id string) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDelivery(delivery), nil
}

func (s *MemoryStore) GetDeliveryByTrackingID(ctx context.Context, trackingID string) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, delivery := range s.deliveries {
		if delivery.TrackingID == trackingID {
			return copyDelivery(delivery), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetDeliveryByProviderMessageID(ctx context.Context, messageID string) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, delivery := range s.deliveries {
		if delivery.ProviderMessageID == messageID && messageID != "" {
			return copyDelivery(delivery), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DueDeliveries(ctx context.Context, now time.Time, limit int) ([]*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*models.Delivery
	for _, delivery := range s.deliveries {
		if delivery.Status == models.DeliveryStatusScheduled && !delivery.ScheduledFor.After(now) {
			due = append(due, copyDelivery(delivery))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) ClaimDelivery(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok || delivery.Status != models.DeliveryStatusScheduled {
		return false, nil
	}
	delivery.Status = models.DeliveryStatusSending
	delivery.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) MarkDeliverySent(ctx context.Context, id, providerMessageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	delivery.Status = models.DeliveryStatusSent
	sentAt := at
	delivery.SentAt = &sentAt
	delivery.ProviderMessageID = providerMessageID
	delivery.UpdatedAt = at
	return nil
}

func (s *MemoryStore) MarkDeliveryFailed(ctx context.Context, id, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	delivery.Status = models.DeliveryStatusFailed
	delivery.ErrorMessage = errorMessage
	delivery.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) TransitionDelivery(ctx context.Context, id string, to models.DeliveryStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok || deliveryStatusRank(delivery.Status) >= deliveryStatusRank(to) {
		return false, nil
	}
	delivery.Status = to
	delivery.UpdatedAt = at
	stamp := at
	switch to {
	case models.DeliveryStatusSent:
		delivery.SentAt = &stamp
	case models.DeliveryStatusDelivered:
		delivery.DeliveredAt = &stamp
	case models.DeliveryStatusOpened:
		delivery.OpenedAt = &stamp
	case models.DeliveryStatusClicked:
		delivery.ClickedAt = &stamp
	}
	return true, nil
}

func (s *MemoryStore) IncrementLinkClick(ctx context.Context, deliveryID string, linkIndex int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[deliveryID]
	if !ok {
		return ErrNotFound
	}
	if linkIndex < 0 || linkIndex >= len(delivery.Links) {
		return ErrNotFound
	}
	delivery.Links[linkIndex].ClickCount++
	stamp := at
	delivery.Links[linkIndex].LastClickedAt = &stamp
	delivery.UpdatedAt = at
	return nil
}

func copyEvent(event *models.Event) *models.Event {
	cp := *event
	cp.TriggeredCampaigns = append([]models.TriggeredCampaign(nil), event.TriggeredCampaigns...)
	return &cp
}

func copyDelivery(delivery *models.Delivery) *models.Delivery {
	cp := *delivery
	cp.Links = append([]models.TrackedLink(nil), delivery.Links...)
	return &cp
}
