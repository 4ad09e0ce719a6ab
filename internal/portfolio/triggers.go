package portfolio

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// EvaluateTriggers reports whether price crosses the stop-loss or take-profit
// of an open position. Stop-loss is checked first, so it wins whenever both
// thresholds are satisfied by the same evaluated price.
func EvaluateTriggers(position types.Position, price float64) (types.CloseReason, bool) {
	if !finitePositive(price) {
		return "", false
	}

	if position.StopLoss.IsSome() && stopLossHit(position.Direction, position.StopLoss.Unwrap(), price) {
		return types.CloseReasonStopLoss, true
	}

	if position.TakeProfit.IsSome() && takeProfitHit(position.Direction, position.TakeProfit.Unwrap(), price) {
		return types.CloseReasonTakeProfit, true
	}

	return "", false
}

func stopLossHit(direction types.Direction, stopLoss, price float64) bool {
	if direction == types.DirectionSell {
		return price >= stopLoss
	}

	return price <= stopLoss
}

func takeProfitHit(direction types.Direction, takeProfit, price float64) bool {
	if direction == types.DirectionSell {
		return price <= takeProfit
	}

	return price >= takeProfit
}

// EntryOrderTriggered reports whether price fills a pending entry order.
//
//	limit buy  price <= target    stop buy  price >= target
//	limit sell price >= target    stop sell price <= target
func EntryOrderTriggered(order types.PendingOrder, price float64) bool {
	if order.Status != types.OrderStatusPending || !finitePositive(price) {
		return false
	}

	favorable := order.OrderType == types.EntryOrderTypeLimit
	buy := order.Direction == types.DirectionBuy

	switch {
	case favorable && buy, !favorable && !buy:
		return price <= order.TargetPrice
	default:
		return price >= order.TargetPrice
	}
}

// ValidateThresholds checks that take-profit and stop-loss sit on the correct
// side of the reference price: above and below it for a buy, the reverse for a sell.
func ValidateThresholds(direction types.Direction, reference float64, takeProfit, stopLoss optional.Option[float64]) error {
	buy := direction == types.DirectionBuy

	if takeProfit.IsSome() {
		tp := takeProfit.Unwrap()
		if (buy && tp <= reference) || (!buy && tp >= reference) {
			return errors.Newf(errors.ErrCodeInvalidTakeProfit,
				"take profit %v is on the wrong side of %v for a %s", tp, reference, direction)
		}
	}

	if stopLoss.IsSome() {
		sl := stopLoss.Unwrap()
		if (buy && sl >= reference) || (!buy && sl <= reference) {
			return errors.Newf(errors.ErrCodeInvalidStopLoss,
				"stop loss %v is on the wrong side of %v for a %s", sl, reference, direction)
		}
	}

	return nil
}
