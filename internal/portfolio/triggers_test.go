package portfolio

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func bracketed(direction types.Direction, sl, tp float64) types.Position {
	return types.Position{
		ID:         "pos-1",
		Direction:  direction,
		EntryPrice: 100,
		Quantity:   10,
		StopLoss:   optional.Some(sl),
		TakeProfit: optional.Some(tp),
	}
}

func TestEvaluateTriggers(t *testing.T) {
	tests := []struct {
		name     string
		position types.Position
		price    float64
		reason   types.CloseReason
		hit      bool
	}{
		{"buy between thresholds", bracketed(types.DirectionBuy, 95, 105), 100, "", false},
		{"buy stop loss touched", bracketed(types.DirectionBuy, 95, 105), 95, types.CloseReasonStopLoss, true},
		{"buy stop loss crossed", bracketed(types.DirectionBuy, 95, 105), 94, types.CloseReasonStopLoss, true},
		{"buy take profit crossed", bracketed(types.DirectionBuy, 95, 105), 106, types.CloseReasonTakeProfit, true},
		{"sell stop loss crossed", bracketed(types.DirectionSell, 105, 95), 106, types.CloseReasonStopLoss, true},
		{"sell take profit touched", bracketed(types.DirectionSell, 105, 95), 95, types.CloseReasonTakeProfit, true},
		{"sell between thresholds", bracketed(types.DirectionSell, 105, 95), 100, "", false},
		{"no thresholds", types.Position{Direction: types.DirectionBuy, EntryPrice: 100, Quantity: 1}, 1, "", false},
		{"invalid price", bracketed(types.DirectionBuy, 95, 105), 0, "", false},
		// misconfigured bracket where one price satisfies both: stop loss wins
		{"both satisfied", bracketed(types.DirectionBuy, 110, 105), 106, types.CloseReasonStopLoss, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, hit := EvaluateTriggers(tt.position, tt.price)
			assert.Equal(t, tt.hit, hit)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestEntryOrderTriggered(t *testing.T) {
	order := func(kind types.EntryOrderType, dir types.Direction) types.PendingOrder {
		return types.PendingOrder{OrderType: kind, Direction: dir, TargetPrice: 50, Status: types.OrderStatusPending}
	}

	tests := []struct {
		name      string
		order     types.PendingOrder
		price     float64
		triggered bool
	}{
		{"limit buy above", order(types.EntryOrderTypeLimit, types.DirectionBuy), 51, false},
		{"limit buy at", order(types.EntryOrderTypeLimit, types.DirectionBuy), 50, true},
		{"limit buy below", order(types.EntryOrderTypeLimit, types.DirectionBuy), 49, true},
		{"limit sell below", order(types.EntryOrderTypeLimit, types.DirectionSell), 49, false},
		{"limit sell above", order(types.EntryOrderTypeLimit, types.DirectionSell), 51, true},
		{"stop buy below", order(types.EntryOrderTypeStop, types.DirectionBuy), 49, false},
		{"stop buy at", order(types.EntryOrderTypeStop, types.DirectionBuy), 50, true},
		{"stop sell above", order(types.EntryOrderTypeStop, types.DirectionSell), 52, false},
		{"stop sell below", order(types.EntryOrderTypeStop, types.DirectionSell), 49, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.triggered, EntryOrderTriggered(tt.order, tt.price))
		})
	}

	filled := order(types.EntryOrderTypeStop, types.DirectionSell)
	filled.Status = types.OrderStatusFilled
	assert.False(t, EntryOrderTriggered(filled, 10))
}

func TestValidateThresholds(t *testing.T) {
	none := optional.None[float64]()

	assert.NoError(t, ValidateThresholds(types.DirectionBuy, 100, optional.Some(105.0), optional.Some(95.0)))
	assert.NoError(t, ValidateThresholds(types.DirectionSell, 100, optional.Some(95.0), optional.Some(105.0)))
	assert.NoError(t, ValidateThresholds(types.DirectionBuy, 100, none, none))

	err := ValidateThresholds(types.DirectionBuy, 100, optional.Some(99.0), none)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidTakeProfit))

	err = ValidateThresholds(types.DirectionSell, 100, none, optional.Some(99.0))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidStopLoss))
}
