// Package portfolio holds the position and entry-order domain model: margin
// and PnL arithmetic, threshold triggers, lifecycle transitions and the
// in-memory Book projection of backend state.
//
// Every function outside Book is pure and needs no locking.
package portfolio

import (
	"math"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/shopspring/decimal"
)

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// MarginRequired returns quantity*entryPrice/leverage.
func MarginRequired(quantity, entryPrice, leverage float64) (float64, error) {
	if !finitePositive(leverage) {
		return 0, errors.Newf(errors.ErrCodeInvalidLeverage, "leverage must be positive, got %v", leverage)
	}

	if !finitePositive(quantity) {
		return 0, errors.Newf(errors.ErrCodeInvalidQuantity, "quantity must be positive, got %v", quantity)
	}

	if !finitePositive(entryPrice) {
		return 0, errors.Newf(errors.ErrCodeInvalidPrice, "entry price must be positive, got %v", entryPrice)
	}

	margin := decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(entryPrice)).
		Div(decimal.NewFromFloat(leverage))

	return margin.InexactFloat64(), nil
}

// UnrealizedPnL marks the position to currentPrice. Buy: (current-entry)*qty.
// Sell: (entry-current)*qty. A non-finite price yields zero.
func UnrealizedPnL(position types.Position, currentPrice float64) float64 {
	return RealizedPnL(position.Direction, position.EntryPrice, currentPrice, position.Quantity)
}

// RealizedPnL is the PnL of closing quantity units opened at entry and closed at exit.
func RealizedPnL(direction types.Direction, entry, exit, quantity float64) float64 {
	if !finite(entry) || !finite(exit) || !finite(quantity) {
		return 0
	}

	delta := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))
	if direction == types.DirectionSell {
		delta = delta.Neg()
	}

	return delta.Mul(decimal.NewFromFloat(quantity)).InexactFloat64()
}

// Notional returns quantity*price.
func Notional(quantity, price float64) float64 {
	if !finite(quantity) || !finite(price) {
		return 0
	}

	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(price)).InexactFloat64()
}
