package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// PositionStatus is the lifecycle status of a position.
type PositionStatus string

// CloseReason records which transition closed a position.
type CloseReason string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

const (
	CloseReasonManual     CloseReason = "manual"
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonTakeProfit CloseReason = "take_profit"
)

// Valid reports whether r is a known close reason.
func (r CloseReason) Valid() bool {
	return r == CloseReasonManual || r == CloseReasonStopLoss || r == CloseReasonTakeProfit
}

// Position is an open leveraged trade. EntryPrice and CreatedAt are fixed at
// open. Unrealized PnL is deliberately not a field: it is always derived from
// the latest mark price, see PositionView.
type Position struct {
	ID             string                   `json:"id" yaml:"id"`
	UserID         string                   `json:"user_id" yaml:"user_id"`
	Symbol         string                   `json:"symbol" yaml:"symbol"`
	MarketType     MarketType               `json:"market_type" yaml:"market_type"`
	Direction      Direction                `json:"direction" yaml:"direction"`
	Quantity       float64                  `json:"quantity" yaml:"quantity"`
	EntryPrice     float64                  `json:"entry_price" yaml:"entry_price"`
	Leverage       float64                  `json:"leverage" yaml:"leverage"`
	MarginRequired float64                  `json:"margin_required" yaml:"margin_required"`
	TakeProfit     optional.Option[float64] `json:"take_profit" yaml:"take_profit"`
	StopLoss       optional.Option[float64] `json:"stop_loss" yaml:"stop_loss"`
	CreatedAt      time.Time                `json:"created_at" yaml:"created_at"`
	// OrderID is the entry order this position was filled from, empty for market opens.
	OrderID string `json:"order_id,omitempty" yaml:"order_id,omitempty"`
}

// Key returns the instrument the position is held in.
func (p Position) Key() AssetKey {
	return AssetKey{MarketType: p.MarketType, Symbol: p.Symbol}
}

// PositionView is a read-time projection of a position against the latest
// mark. It is rebuilt on every read and must not be kept across ticks.
type PositionView struct {
	Position
	// Marked is false when no live price has been observed for the instrument yet.
	Marked        bool      `json:"marked"`
	MarkPrice     float64   `json:"mark_price"`
	MarkSequence  uint64    `json:"mark_sequence"`
	MarkedAt      time.Time `json:"marked_at"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	// Closing is true while a triggered close is awaiting backend confirmation.
	Closing bool `json:"closing"`
}

// ClosedTrade is the terminal record of a position. Created once by the
// close transition and never updated again.
type ClosedTrade struct {
	Position    Position    `json:"position" yaml:"position"`
	ExitPrice   float64     `json:"exit_price" yaml:"exit_price"`
	RealizedPnL float64     `json:"realized_pnl" yaml:"realized_pnl"`
	Reason      CloseReason `json:"reason" yaml:"reason"`
	ClosedAt    time.Time   `json:"closed_at" yaml:"closed_at"`
}

// OpenPositionParams is the intent to open a position at the current market price.
type OpenPositionParams struct {
	UserID     string     `json:"user_id" validate:"required"`
	Symbol     string     `json:"symbol" validate:"required"`
	MarketType MarketType `json:"market_type" validate:"required,oneof=stocks forex crypto"`
	Direction  Direction  `json:"direction" validate:"required,oneof=buy sell"`
	Quantity   float64    `json:"quantity" validate:"gt=0"`
	// Price is the client-observed reference price. The backend fills at its own price.
	Price      float64                  `json:"price" validate:"gt=0"`
	Leverage   float64                  `json:"leverage" validate:"gt=0"`
	TakeProfit optional.Option[float64] `json:"take_profit"`
	StopLoss   optional.Option[float64] `json:"stop_loss"`
}

// Validate validates the OpenPositionParams struct.
func (p *OpenPositionParams) Validate() error {
	if err := validateStruct(p, "invalid open position request"); err != nil {
		return err
	}

	return validateThresholds(p.TakeProfit, p.StopLoss)
}

// ClosePositionParams is the intent to close an open position.
type ClosePositionParams struct {
	PositionID string `json:"position_id" validate:"required"`
	// CurrentPrice is the client-observed reference price; the backend decides the exit price.
	CurrentPrice float64     `json:"current_price" validate:"gt=0"`
	Reason       CloseReason `json:"reason" validate:"required,oneof=manual stop_loss take_profit"`
}

// Validate validates the ClosePositionParams struct.
func (p *ClosePositionParams) Validate() error {
	return validateStruct(p, "invalid close request")
}

// RemoveFromPortfolioParams detaches a watchlist or portfolio entry.
type RemoveFromPortfolioParams struct {
	UserID     string     `json:"user_id" validate:"required"`
	Symbol     string     `json:"symbol" validate:"required"`
	MarketType MarketType `json:"market_type" validate:"required,oneof=stocks forex crypto"`
}

// Validate validates the RemoveFromPortfolioParams struct.
func (p *RemoveFromPortfolioParams) Validate() error {
	return validateStruct(p, "invalid remove request")
}
