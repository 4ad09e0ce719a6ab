package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Direction is the side of a position or entry order.
type Direction string

// EntryOrderType is the trigger semantics of a pending entry order.
type EntryOrderType string

// OrderStatus is the lifecycle status of a pending entry order.
type OrderStatus string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

const (
	// EntryOrderTypeLimit fills when price reaches the target in the favorable direction.
	EntryOrderTypeLimit EntryOrderType = "limit"
	// EntryOrderTypeStop fills when price reaches the target in the adverse direction (breakout).
	EntryOrderTypeStop EntryOrderType = "stop"
)

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether d is buy or sell.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Valid reports whether t is limit or stop.
func (t EntryOrderType) Valid() bool {
	return t == EntryOrderTypeLimit || t == EntryOrderTypeStop
}

// IsTerminal reports whether the status can no longer change.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// PendingOrder is an entry order awaiting its trigger price.
type PendingOrder struct {
	ID          string         `json:"id" yaml:"id"`
	UserID      string         `json:"user_id" yaml:"user_id"`
	Symbol      string         `json:"symbol" yaml:"symbol"`
	MarketType  MarketType     `json:"market_type" yaml:"market_type"`
	OrderType   EntryOrderType `json:"order_type" yaml:"order_type"`
	Direction   Direction      `json:"direction" yaml:"direction"`
	Quantity    float64        `json:"quantity" yaml:"quantity"`
	TargetPrice float64        `json:"target_price" yaml:"target_price"`
	// Leverage applied to the position created when the order fills.
	Leverage   float64                  `json:"leverage" yaml:"leverage"`
	TakeProfit optional.Option[float64] `json:"take_profit" yaml:"take_profit"`
	StopLoss   optional.Option[float64] `json:"stop_loss" yaml:"stop_loss"`
	Status     OrderStatus              `json:"status" yaml:"status"`
	CreatedAt  time.Time                `json:"created_at" yaml:"created_at"`
	// FillPrice is the first observed trigger price. Set only when Status is filled.
	FillPrice optional.Option[float64] `json:"fill_price" yaml:"fill_price"`
	// ResolvedAt is when the order left pending.
	ResolvedAt optional.Option[time.Time] `json:"resolved_at" yaml:"resolved_at"`
}

// Key returns the instrument the order is placed on.
func (o PendingOrder) Key() AssetKey {
	return AssetKey{MarketType: o.MarketType, Symbol: o.Symbol}
}

// PlaceEntryOrderParams is the intent to place a limit or stop entry order.
type PlaceEntryOrderParams struct {
	UserID      string                   `json:"user_id" validate:"required"`
	Symbol      string                   `json:"symbol" validate:"required"`
	MarketType  MarketType               `json:"market_type" validate:"required,oneof=stocks forex crypto"`
	OrderType   EntryOrderType           `json:"order_type" validate:"required,oneof=limit stop"`
	Direction   Direction                `json:"direction" validate:"required,oneof=buy sell"`
	Quantity    float64                  `json:"quantity" validate:"gt=0"`
	TargetPrice float64                  `json:"target_price" validate:"gt=0"`
	Leverage    float64                  `json:"leverage" validate:"gt=0"`
	TakeProfit  optional.Option[float64] `json:"take_profit"`
	StopLoss    optional.Option[float64] `json:"stop_loss"`
}

// Validate validates the PlaceEntryOrderParams struct.
func (p *PlaceEntryOrderParams) Validate() error {
	if err := validateStruct(p, "invalid entry order"); err != nil {
		return err
	}

	return validateThresholds(p.TakeProfit, p.StopLoss)
}

// CancelEntryOrderParams is the intent to cancel a pending entry order.
type CancelEntryOrderParams struct {
	OrderID string `json:"order_id" validate:"required"`
}

// Validate validates the CancelEntryOrderParams struct.
func (p *CancelEntryOrderParams) Validate() error {
	return validateStruct(p, "invalid cancel request")
}

// FillEntryOrderParams reports an observed trigger for a pending entry order.
type FillEntryOrderParams struct {
	OrderID      string    `json:"order_id" validate:"required"`
	TriggerPrice float64   `json:"trigger_price" validate:"gt=0"`
	ObservedAt   time.Time `json:"observed_at" validate:"required"`
}

// Validate validates the FillEntryOrderParams struct.
func (p *FillEntryOrderParams) Validate() error {
	return validateStruct(p, "invalid fill request")
}
