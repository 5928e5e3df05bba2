package engine

import (
	"testing"
	"time"

	"campaign-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func eventWithMetadata(metadata map[string]any) *models.Event {
	return &models.Event{
		ID:        "evt-1",
		UserID:    "user-1",
		EventType: "purchase",
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

func TestConditionsExists(t *testing.T) {
	conditions := map[string]any{
		"metadata.productId": map[string]any{"exists": true},
	}

	tests := []struct {
		name     string
		metadata map[string]any
		want     bool
	}{
		{
			name:     "field present",
			metadata: map[string]any{"productId": "p1"},
			want:     true,
		},
		{
			name:     "field absent",
			metadata: map[string]any{"other": "x"},
			want:     false,
		},
		{
			name:     "empty string counts as absent",
			metadata: map[string]any{"productId": ""},
			want:     false,
		},
		{
			name:     "no metadata at all",
			metadata: nil,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := CompileConditions(conditions)
			assert.Equal(t, tt.want, cs.Matches(eventWithMetadata(tt.metadata)))
		})
	}
}

func TestConditionsExistsFalse(t *testing.T) {
	cs := CompileConditions(map[string]any{
		"metadata.couponCode": map[string]any{"exists": false},
	})

	assert.True(t, cs.Matches(eventWithMetadata(map[string]any{"productId": "p1"})))
	assert.False(t, cs.Matches(eventWithMetadata(map[string]any{"couponCode": "SAVE10"})))
}

func TestConditionsGreaterThan(t *testing.T) {
	conditions := map[string]any{
		"metadata.price": map[string]any{"gt": float64(100)},
	}

	tests := []struct {
		name     string
		metadata map[string]any
		want     bool
	}{
		{
			name:     "above threshold",
			metadata: map[string]any{"price": float64(150)},
			want:     true,
		},
		{
			name:     "below threshold",
			metadata: map[string]any{"price": float64(50)},
			want:     false,
		},
		{
			name:     "equal is not greater",
			metadata: map[string]any{"price": float64(100)},
			want:     false,
		},
		{
			name:     "missing path never matches",
			metadata: map[string]any{},
			want:     false,
		},
		{
			name:     "non-numeric value never matches",
			metadata: map[string]any{"price": "expensive"},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := CompileConditions(conditions)
			assert.Equal(t, tt.want, cs.Matches(eventWithMetadata(tt.metadata)))
		})
	}
}

func TestConditionsLessThan(t *testing.T) {
	cs := CompileConditions(map[string]any{
		"metadata.quantity": map[string]any{"lt": 5},
	})

	assert.True(t, cs.Matches(eventWithMetadata(map[string]any{"quantity": 2})))
	assert.False(t, cs.Matches(eventWithMetadata(map[string]any{"quantity": 9})))
	assert.False(t, cs.Matches(eventWithMetadata(nil)))
}

func TestConditionsLiteralEquality(t *testing.T) {
	cs := CompileConditions(map[string]any{
		"metadata.category": "books",
	})

	assert.True(t, cs.Matches(eventWithMetadata(map[string]any{"category": "books"})))
	assert.False(t, cs.Matches(eventWithMetadata(map[string]any{"category": "games"})))
	assert.False(t, cs.Matches(eventWithMetadata(nil)))
}

func TestConditionsNumericEqualityCoercion(t *testing.T) {
	// json decodes numbers as float64 while bson may hand back int32/int64
	cs := CompileConditions(map[string]any{
		"metadata.count": map[string]any{"equals": float64(3)},
	})

	assert.True(t, cs.Matches(eventWithMetadata(map[string]any{"count": int32(3)})))
	assert.True(t, cs.Matches(eventWithMetadata(map[string]any{"count": int64(3)})))
	assert.False(t, cs.Matches(eventWithMetadata(map[string]any{"count": 4})))
}

func TestConditionsImplicitAnd(t *testing.T) {
	cs := CompileConditions(map[string]any{
		"metadata.price":    map[string]any{"gt": 100},
		"metadata.category": "books",
	})

	assert.True(t, cs.Matches(eventWithMetadata(map[string]any{"price": 150, "category": "books"})))
	assert.False(t, cs.Matches(eventWithMetadata(map[string]any{"price": 150, "category": "games"})))
	assert.False(t, cs.Matches(eventWithMetadata(map[string]any{"price": 50, "category": "books"})))
}

func TestConditionsEmptySetAlwaysMatches(t *testing.T) {
	assert.True(t, CompileConditions(nil).Matches(eventWithMetadata(nil)))
	assert.True(t, CompileConditions(map[string]any{}).Matches(eventWithMetadata(nil)))
}

func TestConditionsNestedPath(t *testing.T) {
	cs := CompileConditions(map[string]any{
		"metadata.order.total": map[string]any{"gt": 20},
	})

	matching := eventWithMetadata(map[string]any{
		"order": map[string]any{"total": float64(25)},
	})
	assert.True(t, cs.Matches(matching))

	// Descending through a scalar is a non-match, not an error
	scalarParent := eventWithMetadata(map[string]any{"order": "none"})
	assert.False(t, cs.Matches(scalarParent))
}

func TestConditionsTopLevelField(t *testing.T) {
	cs := CompileConditions(map[string]any{
		"user_id": "user-1",
	})
	assert.True(t, cs.Matches(eventWithMetadata(nil)))
}
