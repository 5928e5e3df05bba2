package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"campaign-engine/internal/models"
	"campaign-engine/internal/storage"
	"campaign-engine/internal/transport"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var workerNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, msg *transport.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func newWorkerFixture(t *testing.T, batchSize int) (*DeliveryWorker, *storage.MemoryStore, *MockTransport) {
	t.Helper()
	store := storage.NewMemoryStore()
	mockTransport := new(MockTransport)
	clock := clockwork.NewFakeClockAt(workerNow)
	worker := NewDeliveryWorker(store, mockTransport, clock, batchSize, zap.NewNop())
	return worker, store, mockTransport
}

func seedScheduledDelivery(t *testing.T, store *storage.MemoryStore, id string, scheduledFor time.Time) {
	t.Helper()
	require.NoError(t, store.InsertDelivery(context.Background(), &models.Delivery{
		ID:           id,
		CampaignID:   "cmp-1",
		EventID:      "evt-" + id,
		UserID:       "user-1",
		To:           "ada@example.test",
		From:         "hello@acme.test",
		Subject:      "Hello " + id,
		Body:         "Body",
		TrackingID:   "trk-" + id,
		Status:       models.DeliveryStatusScheduled,
		ScheduledFor: scheduledFor,
	}))
}

func seedWorkerCampaign(t *testing.T, store *storage.MemoryStore) {
	t.Helper()
	require.NoError(t, store.InsertCampaign(context.Background(), &models.Campaign{
		ID: "cmp-1", Name: "spring-sale", Status: models.CampaignStatusActive,
	}))
}

func TestProcessDueSendsDueDeliveries(t *testing.T) {
	worker, store, mockTransport := newWorkerFixture(t, 10)
	ctx := context.Background()

	seedWorkerCampaign(t, store)
	seedScheduledDelivery(t, store, "del-1", workerNow.Add(-time.Minute))
	seedScheduledDelivery(t, store, "del-future", workerNow.Add(time.Hour))

	mockTransport.On("Send", mock.Anything, mock.Anything).Return("msg-1", nil).Once()

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	mockTransport.AssertExpectations(t)

	delivery, err := store.GetDelivery(ctx, "del-1")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusSent, delivery.Status)
	assert.Equal(t, "msg-1", delivery.ProviderMessageID)
	require.NotNil(t, delivery.SentAt)
	assert.Equal(t, workerNow, *delivery.SentAt)

	future, err := store.GetDelivery(ctx, "del-future")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusScheduled, future.Status)

	campaign, err := store.GetCampaign(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), campaign.Analytics.Sent)
}

func TestProcessDueRespectsBatchSize(t *testing.T) {
	worker, store, mockTransport := newWorkerFixture(t, 2)
	ctx := context.Background()

	seedWorkerCampaign(t, store)
	// Oldest scheduled times go first
	seedScheduledDelivery(t, store, "del-3", workerNow.Add(-1*time.Minute))
	seedScheduledDelivery(t, store, "del-1", workerNow.Add(-3*time.Minute))
	seedScheduledDelivery(t, store, "del-2", workerNow.Add(-2*time.Minute))

	mockTransport.On("Send", mock.Anything, mock.Anything).Return("msg", nil).Twice()

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	// The two oldest were taken
	for _, id := range []string{"del-1", "del-2"} {
		d, err := store.GetDelivery(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.DeliveryStatusSent, d.Status, id)
	}
	left, err := store.GetDelivery(ctx, "del-3")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusScheduled, left.Status)
}

func TestProcessDueFailureIsolation(t *testing.T) {
	worker, store, mockTransport := newWorkerFixture(t, 10)
	ctx := context.Background()

	seedWorkerCampaign(t, store)
	seedScheduledDelivery(t, store, "del-1", workerNow.Add(-2*time.Minute))
	seedScheduledDelivery(t, store, "del-2", workerNow.Add(-time.Minute))

	mockTransport.On("Send", mock.Anything, mock.MatchedBy(func(m *transport.Message) bool {
		return m.Subject == "Hello del-1"
	})).Return("", errors.New("provider unavailable")).Once()
	mockTransport.On("Send", mock.Anything, mock.Anything).Return("msg-2", nil).Once()

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	failed, err := store.GetDelivery(ctx, "del-1")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusFailed, failed.Status)
	assert.Equal(t, "provider unavailable", failed.ErrorMessage)

	campaign, err := store.GetCampaign(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), campaign.Analytics.Sent)
	assert.Equal(t, int64(1), campaign.Analytics.Bounced)
}

func TestProcessDueSkipsAlreadyClaimed(t *testing.T) {
	worker, store, mockTransport := newWorkerFixture(t, 10)
	ctx := context.Background()

	seedWorkerCampaign(t, store)
	seedScheduledDelivery(t, store, "del-1", workerNow.Add(-time.Minute))

	// An overlapping run claimed the item between query and claim
	claimed, err := store.ClaimDelivery(ctx, "del-1")
	require.NoError(t, err)
	require.True(t, claimed)

	// Force the worker's own query to still see nothing claimable; the due
	// query excludes non-scheduled rows, so nothing is sent.
	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	mockTransport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestProcessDueIdempotentAcrossRuns(t *testing.T) {
	worker, store, mockTransport := newWorkerFixture(t, 10)
	ctx := context.Background()

	seedWorkerCampaign(t, store)
	seedScheduledDelivery(t, store, "del-1", workerNow.Add(-time.Minute))

	mockTransport.On("Send", mock.Anything, mock.Anything).Return("msg-1", nil).Once()

	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	mockTransport.AssertExpectations(t)
}

func TestProcessDueNoRetryForFailedDeliveries(t *testing.T) {
	worker, store, mockTransport := newWorkerFixture(t, 10)
	ctx := context.Background()

	seedWorkerCampaign(t, store)
	seedScheduledDelivery(t, store, "del-1", workerNow.Add(-time.Minute))

	mockTransport.On("Send", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()

	_, err := worker.ProcessDue(ctx)
	require.NoError(t, err)

	// The failed item is terminal; the next run does not pick it up
	sent, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	mockTransport.AssertExpectations(t)
}
