package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campaign-engine/internal/models"
	"campaign-engine/internal/storage"
	"campaign-engine/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testRedirect = "https://acme.test"

func setupTrackingRouter(t *testing.T) (*gin.Engine, *storage.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	collector := tracking.NewCollector(store, clock, testRedirect, zap.NewNop())
	handler := NewTrackingHandler(zap.NewNop(), collector, testRedirect)

	router := gin.New()
	router.GET("/t/o/:trackingID", handler.HandleOpen)
	router.GET("/t/c/:trackingID/:index", handler.HandleClick)
	return router, store
}

func seedTrackedDelivery(t *testing.T, store *storage.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.InsertCampaign(ctx, &models.Campaign{
		ID: "cmp-1", Name: "spring-sale", Status: models.CampaignStatusActive,
	}))
	require.NoError(t, store.InsertDelivery(ctx, &models.Delivery{
		ID:         "del-1",
		CampaignID: "cmp-1",
		EventID:    "evt-1",
		UserID:     "user-1",
		TrackingID: "trk-1",
		Status:     models.DeliveryStatusSent,
		Links: []models.TrackedLink{
			{Original: "https://shop.test/sale", Tracking: "http://track.test/t/c/trk-1/0"},
		},
	}))
}

func TestOpenEndpointServesPixel(t *testing.T) {
	router, store := setupTrackingRouter(t)
	seedTrackedDelivery(t, store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/t/o/trk-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, tracking.PixelGIF, w.Body.Bytes())

	delivery, err := store.GetDelivery(context.Background(), "del-1")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusOpened, delivery.Status)
}

func TestOpenEndpointServesPixelForUnknownID(t *testing.T) {
	router, _ := setupTrackingRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/t/o/does-not-exist", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tracking.PixelGIF, w.Body.Bytes())
}

func TestClickEndpointRedirectsToOriginal(t *testing.T) {
	router, store := setupTrackingRouter(t)
	seedTrackedDelivery(t, store)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/t/c/trk-1/0", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://shop.test/sale", w.Header().Get("Location"))

	delivery, err := store.GetDelivery(context.Background(), "del-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), delivery.Links[0].ClickCount)
}

func TestClickEndpointFallsBackToDefault(t *testing.T) {
	router, store := setupTrackingRouter(t)
	seedTrackedDelivery(t, store)

	tests := []struct {
		name string
		path string
	}{
		{"unknown tracking ID", "/t/c/unknown/0"},
		{"non-numeric index", "/t/c/trk-1/abc"},
		{"out-of-range index", "/t/c/trk-1/9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", tt.path, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, testRedirect, w.Header().Get("Location"))
		})
	}

	// None of the bad hits touched the delivery
	delivery, err := store.GetDelivery(context.Background(), "del-1")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusSent, delivery.Status)
}
