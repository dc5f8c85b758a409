package inventory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/model"
)

func TestApplyQuantity(t *testing.T) {
	item := model.Item{ID: "a", Name: "Rice", Quantity: 3}

	tests := []struct {
		quantity int
		kind     IntentKind
	}{
		{5, IntentUpdate},
		{1, IntentUpdate},
		{0, IntentDelete},
		{-4, IntentDelete},
	}

	for _, tt := range tests {
		intent := ApplyQuantity(item, tt.quantity)
		assert.Equal(t, tt.kind, intent.Kind, "quantity %d", tt.quantity)
		assert.Equal(t, item, intent.Item)
		if tt.kind == IntentUpdate {
			assert.Equal(t, tt.quantity, intent.Quantity)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	n, err := ParseQuantity(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = ParseQuantity("0")
	require.NoError(t, err, "zero parses; positivity is checked by the operation")
	assert.Equal(t, 0, n)

	for _, in := range []string{"", "abc", "3abc", "1.5"} {
		_, err := ParseQuantity(in)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "ParseQuantity(%q) = %v", in, err)
		assert.Equal(t, "quantity", verr.Field)
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "updated", OutcomeUpdated.String())
	assert.Equal(t, "deleted", OutcomeDeleted.String())
}
