package storage

import (
	"context"
	"testing"
	"time"

	"campaign-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transitionAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedDeliveryWithStatus(t *testing.T, store *MemoryStore, status models.DeliveryStatus) {
	t.Helper()
	require.NoError(t, store.InsertDelivery(context.Background(), &models.Delivery{
		ID:         "del-1",
		CampaignID: "cmp-1",
		EventID:    "evt-1",
		UserID:     "user-1",
		TrackingID: "trk-1",
		Status:     status,
	}))
}

func TestTransitionDeliveryForwardOnly(t *testing.T) {
	tests := []struct {
		name string
		from models.DeliveryStatus
		to   models.DeliveryStatus
		want bool
	}{
		{"sent to delivered", models.DeliveryStatusSent, models.DeliveryStatusDelivered, true},
		{"sent to opened", models.DeliveryStatusSent, models.DeliveryStatusOpened, true},
		{"sent to clicked without open", models.DeliveryStatusSent, models.DeliveryStatusClicked, true},
		{"opened to clicked", models.DeliveryStatusOpened, models.DeliveryStatusClicked, true},
		{"opened to opened", models.DeliveryStatusOpened, models.DeliveryStatusOpened, false},
		{"opened to delivered", models.DeliveryStatusOpened, models.DeliveryStatusDelivered, false},
		{"clicked to opened", models.DeliveryStatusClicked, models.DeliveryStatusOpened, false},
		{"clicked to clicked", models.DeliveryStatusClicked, models.DeliveryStatusClicked, false},
		{"sent to bounced", models.DeliveryStatusSent, models.DeliveryStatusBounced, true},
		{"opened to unsubscribed", models.DeliveryStatusOpened, models.DeliveryStatusUnsubscribed, true},
		{"bounced to delivered", models.DeliveryStatusBounced, models.DeliveryStatusDelivered, false},
		{"bounced to complained", models.DeliveryStatusBounced, models.DeliveryStatusComplained, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			ctx := context.Background()
			seedDeliveryWithStatus(t, store, tt.from)

			transitioned, err := store.TransitionDelivery(ctx, "del-1", tt.to, transitionAt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, transitioned)

			delivery, err := store.GetDelivery(ctx, "del-1")
			require.NoError(t, err)
			if tt.want {
				assert.Equal(t, tt.to, delivery.Status)
			} else {
				assert.Equal(t, tt.from, delivery.Status)
			}
		})
	}
}

func TestTransitionDeliveryStampsFirstEntryOnly(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedDeliveryWithStatus(t, store, models.DeliveryStatusSent)

	transitioned, err := store.TransitionDelivery(ctx, "del-1", models.DeliveryStatusClicked, transitionAt)
	require.NoError(t, err)
	require.True(t, transitioned)

	// A pixel hit after the click must not rewind the status or stamp
	// opened_at, and a later click hit must not move anything again.
	transitioned, err = store.TransitionDelivery(ctx, "del-1", models.DeliveryStatusOpened, transitionAt.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, transitioned)

	transitioned, err = store.TransitionDelivery(ctx, "del-1", models.DeliveryStatusClicked, transitionAt.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, transitioned)

	delivery, err := store.GetDelivery(ctx, "del-1")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusClicked, delivery.Status)
	assert.Nil(t, delivery.OpenedAt)
	require.NotNil(t, delivery.ClickedAt)
	assert.Equal(t, transitionAt, *delivery.ClickedAt)
}

func TestTransitionableFromExcludesTargetAndAbove(t *testing.T) {
	from := transitionableFrom(models.DeliveryStatusOpened)
	assert.Contains(t, from, models.DeliveryStatusSent)
	assert.Contains(t, from, models.DeliveryStatusDelivered)
	assert.NotContains(t, from, models.DeliveryStatusOpened)
	assert.NotContains(t, from, models.DeliveryStatusClicked)
	assert.NotContains(t, from, models.DeliveryStatusBounced)
}
