package portfolio

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// State is a node of the order/position lifecycle.
type State string

// Event moves the lifecycle from one state to another.
type Event string

const (
	StatePending   State = "pending"
	StateFilled    State = "filled"
	StateOpen      State = "open"
	StateClosed    State = "closed"
	StateCancelled State = "cancelled"
)

const (
	EventFill   Event = "fill"
	EventCancel Event = "cancel"
	EventOpen   Event = "open"
	EventClose  Event = "close"
)

// transitions is the complete edge set; anything else is rejected.
var transitions = map[State]map[Event]State{
	StatePending: {EventFill: StateFilled, EventCancel: StateCancelled},
	StateFilled:  {EventOpen: StateOpen},
	StateOpen:    {EventClose: StateClosed},
}

// IsTerminal reports whether no event can leave the state.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateCancelled
}

// Transition applies event to state.
func Transition(state State, event Event) (State, error) {
	if next, ok := transitions[state][event]; ok {
		return next, nil
	}

	return state, errors.Newf(errors.ErrCodeInvalidTransition, "cannot %s from %s", event, state)
}

// OrderState maps an order status onto the lifecycle.
func OrderState(status types.OrderStatus) State {
	switch status {
	case types.OrderStatusFilled:
		return StateFilled
	case types.OrderStatusCancelled:
		return StateCancelled
	default:
		return StatePending
	}
}

// NewPosition opens a position at fillPrice, the price the backend executed at.
func NewPosition(params types.OpenPositionParams, fillPrice float64, at time.Time, id string) (types.Position, error) {
	if err := params.Validate(); err != nil {
		return types.Position{}, err
	}

	margin, err := MarginRequired(params.Quantity, fillPrice, params.Leverage)
	if err != nil {
		return types.Position{}, err
	}

	return types.Position{
		ID:             id,
		UserID:         params.UserID,
		Symbol:         params.Symbol,
		MarketType:     params.MarketType,
		Direction:      params.Direction,
		Quantity:       params.Quantity,
		EntryPrice:     fillPrice,
		Leverage:       params.Leverage,
		MarginRequired: margin,
		TakeProfit:     params.TakeProfit,
		StopLoss:       params.StopLoss,
		CreatedAt:      at,
		OrderID:        "",
	}, nil
}

// FillOrder fills a pending order at the observed trigger price, which
// becomes the entry price of the new position. The returned order is the
// terminal copy; the input is not modified.
func FillOrder(order types.PendingOrder, price float64, at time.Time, positionID string) (types.PendingOrder, types.Position, error) {
	filled, err := Transition(OrderState(order.Status), EventFill)
	if err != nil {
		return order, types.Position{}, err
	}

	if _, err := Transition(filled, EventOpen); err != nil {
		return order, types.Position{}, err
	}

	margin, err := MarginRequired(order.Quantity, price, order.Leverage)
	if err != nil {
		return order, types.Position{}, err
	}

	order.Status = types.OrderStatusFilled
	order.FillPrice = optional.Some(price)
	order.ResolvedAt = optional.Some(at)

	position := types.Position{
		ID:             positionID,
		UserID:         order.UserID,
		Symbol:         order.Symbol,
		MarketType:     order.MarketType,
		Direction:      order.Direction,
		Quantity:       order.Quantity,
		EntryPrice:     price,
		Leverage:       order.Leverage,
		MarginRequired: margin,
		TakeProfit:     order.TakeProfit,
		StopLoss:       order.StopLoss,
		CreatedAt:      at,
		OrderID:        order.ID,
	}

	return order, position, nil
}

// CancelOrder moves a pending order to cancelled.
func CancelOrder(order types.PendingOrder, at time.Time) (types.PendingOrder, error) {
	if _, err := Transition(OrderState(order.Status), EventCancel); err != nil {
		return order, err
	}

	order.Status = types.OrderStatusCancelled
	order.ResolvedAt = optional.Some(at)

	return order, nil
}

// ClosePosition finalizes a position at exitPrice. The returned ClosedTrade
// is the only record of the close and is never updated afterwards.
func ClosePosition(position types.Position, exitPrice float64, reason types.CloseReason, at time.Time) (types.ClosedTrade, error) {
	if !finitePositive(exitPrice) {
		return types.ClosedTrade{}, errors.Newf(errors.ErrCodeInvalidPrice, "exit price must be positive, got %v", exitPrice)
	}

	if !reason.Valid() {
		return types.ClosedTrade{}, errors.Newf(errors.ErrCodeInvalidParameter, "unknown close reason %q", reason)
	}

	return types.ClosedTrade{
		Position:    position,
		ExitPrice:   exitPrice,
		RealizedPnL: RealizedPnL(position.Direction, position.EntryPrice, exitPrice, position.Quantity),
		Reason:      reason,
		ClosedAt:    at,
	}, nil
}
