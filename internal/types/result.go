package types

import "github.com/moznion/go-optional"

// TradeAction names the operation a TradeResult answers.
type TradeAction string

const (
	TradeActionOpenPosition        TradeAction = "open_position"
	TradeActionPlaceEntryOrder     TradeAction = "place_entry_order"
	TradeActionCancelEntryOrder    TradeAction = "cancel_entry_order"
	TradeActionFillEntryOrder      TradeAction = "fill_entry_order"
	TradeActionClosePosition       TradeAction = "close_position"
	TradeActionRemoveFromPortfolio TradeAction = "remove_from_portfolio"
)

// TradeResult is the outcome of a single execution intent. When Success is
// false the backend rejected the mutation and Reason carries its message;
// none of the entity fields are set.
type TradeResult struct {
	Success  bool                          `json:"success"`
	Action   TradeAction                   `json:"action"`
	Position optional.Option[Position]     `json:"position"`
	Order    optional.Option[PendingOrder] `json:"order"`
	Trade    optional.Option[ClosedTrade]  `json:"trade"`
	// Removed is set by remove_from_portfolio.
	Removed optional.Option[AssetKey] `json:"removed"`
	Reason  string                    `json:"reason,omitempty"`
	// Code is the backend rejection code, if one was supplied.
	Code string `json:"code,omitempty"`
}

// Rejected builds an unsuccessful result.
func Rejected(action TradeAction, reason, code string) TradeResult {
	return TradeResult{Action: action, Reason: reason, Code: code}
}
