package types

import "time"

// PortfolioSnapshot is the authoritative portfolio state as returned by the backend.
type PortfolioSnapshot struct {
	UserID string `json:"user_id" yaml:"user_id"`
	// Balance is the cash balance excluding unrealized PnL.
	Balance       float64        `json:"balance" yaml:"balance"`
	Positions     []Position     `json:"positions" yaml:"positions"`
	PendingOrders []PendingOrder `json:"pending_orders" yaml:"pending_orders"`
	ClosedTrades  []ClosedTrade  `json:"closed_trades" yaml:"closed_trades"`
	// Watchlist holds instruments the user follows without holding a position.
	Watchlist []AssetKey `json:"watchlist" yaml:"watchlist"`
	FetchedAt time.Time  `json:"fetched_at" yaml:"fetched_at"`
}

// PortfolioSummary is derived from the current book and latest marks on every read.
type PortfolioSummary struct {
	// Balance is the cash balance excluding unrealized PnL
	Balance float64 `json:"balance" yaml:"balance"`
	// Equity is balance plus unrealized PnL
	Equity float64 `json:"equity" yaml:"equity"`
	// MarginUsed is the sum of margin held by open positions
	MarginUsed float64 `json:"margin_used" yaml:"margin_used"`
	// FreeMargin is equity minus margin used
	FreeMargin float64 `json:"free_margin" yaml:"free_margin"`
	// UnrealizedPnL is the sum over marked open positions
	UnrealizedPnL float64 `json:"unrealized_pnl" yaml:"unrealized_pnl"`
	// RealizedPnL is the sum over closed trades
	RealizedPnL   float64 `json:"realized_pnl" yaml:"realized_pnl"`
	OpenPositions int     `json:"open_positions" yaml:"open_positions"`
	PendingOrders int     `json:"pending_orders" yaml:"pending_orders"`
	// Unmarked counts open positions without a live price yet. Their PnL is excluded.
	Unmarked int `json:"unmarked" yaml:"unmarked"`
}
