package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/types"
)

// TradesWriter records closed trades. A position is recorded at most once.
type TradesWriter struct {
	table
}

// TradeFilter narrows trade queries. Zero values match everything.
type TradeFilter struct {
	Symbol     string
	MarketType types.MarketType
	Reason     types.CloseReason
	Since      time.Time
}

// NewTradesWriter creates a writer mirrored to the parquet file at outputPath.
func NewTradesWriter(outputPath string) *TradesWriter {
	return &TradesWriter{table: table{
		outputPath: outputPath,
		name:       "closed_trades",
		schema: `
			position_id TEXT PRIMARY KEY,
			user_id TEXT,
			order_id TEXT,
			market_type TEXT,
			symbol TEXT,
			direction TEXT,
			quantity DOUBLE,
			entry_price DOUBLE,
			exit_price DOUBLE,
			leverage DOUBLE,
			margin_required DOUBLE,
			take_profit DOUBLE,
			stop_loss DOUBLE,
			realized_pnl DOUBLE,
			reason TEXT,
			opened_at TIMESTAMP,
			closed_at TIMESTAMP`,
		conflict: "(position_id)",
		orderBy:  "closed_at ASC, position_id ASC",
	}}
}

// Initialize opens the database and reloads any previous record.
func (w *TradesWriter) Initialize() error {
	return w.initialize()
}

// Write records a closed trade.
func (w *TradesWriter) Write(trade types.ClosedTrade) error {
	p := trade.Position

	insert := psql.Insert("closed_trades").
		Columns("position_id", "user_id", "order_id", "market_type", "symbol", "direction", "quantity",
			"entry_price", "exit_price", "leverage", "margin_required", "take_profit", "stop_loss",
			"realized_pnl", "reason", "opened_at", "closed_at").
		Values(p.ID, p.UserID, p.OrderID, string(p.MarketType), p.Symbol, string(p.Direction), p.Quantity,
			p.EntryPrice, trade.ExitPrice, p.Leverage, p.MarginRequired, nullable(p.TakeProfit), nullable(p.StopLoss),
			trade.RealizedPnL, string(trade.Reason), p.CreatedAt, trade.ClosedAt).
		Suffix("ON CONFLICT (position_id) DO NOTHING")

	return w.exec(insert)
}

// WriteResult records the trade carried by a confirmed close result and
// ignores every other result.
func (w *TradesWriter) WriteResult(result types.TradeResult) error {
	if !result.Success || result.Trade.IsNone() {
		return nil
	}

	return w.Write(result.Trade.Unwrap())
}

// Flush forces an export to parquet.
func (w *TradesWriter) Flush() error {
	return w.flush()
}

// GetOutputPath returns the parquet file path.
func (w *TradesWriter) GetOutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *TradesWriter) Close() error {
	return w.close()
}

// GetTradeCount returns the number of recorded trades.
func (w *TradesWriter) GetTradeCount() (int, error) {
	var count int

	err := w.scalar(psql.Select("COUNT(*)").From("closed_trades"), &count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}

	return count, nil
}

// GetTotalRealizedPnL sums realized PnL over the trades matching filter.
func (w *TradesWriter) GetTotalRealizedPnL(filter TradeFilter) (float64, error) {
	var total sql.NullFloat64

	err := w.scalar(applyFilter(psql.Select("SUM(realized_pnl)").From("closed_trades"), filter), &total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum realized PnL: %w", err)
	}

	if !total.Valid {
		return 0, nil
	}

	return total.Float64, nil
}

// GetTrades returns the trades matching filter, oldest close first.
func (w *TradesWriter) GetTrades(filter TradeFilter) ([]types.ClosedTrade, error) {
	sel := applyFilter(psql.Select(
		"position_id", "user_id", "order_id", "market_type", "symbol", "direction", "quantity",
		"entry_price", "exit_price", "leverage", "margin_required", "take_profit", "stop_loss",
		"realized_pnl", "reason", "opened_at", "closed_at",
	).From("closed_trades"), filter).OrderBy("closed_at ASC", "position_id ASC")

	var trades []types.ClosedTrade

	err := w.query(func(db *sql.DB) error {
		query, args, err := sel.ToSql()
		if err != nil {
			return err
		}

		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				t                     types.ClosedTrade
				marketType, direction string
				reason                string
				takeProfit, stopLoss  sql.NullFloat64
			)

			err := rows.Scan(
				&t.Position.ID, &t.Position.UserID, &t.Position.OrderID, &marketType, &t.Position.Symbol, &direction,
				&t.Position.Quantity, &t.Position.EntryPrice, &t.ExitPrice, &t.Position.Leverage,
				&t.Position.MarginRequired, &takeProfit, &stopLoss, &t.RealizedPnL, &reason,
				&t.Position.CreatedAt, &t.ClosedAt,
			)
			if err != nil {
				return err
			}

			t.Position.MarketType = types.MarketType(marketType)
			t.Position.Direction = types.Direction(direction)
			t.Reason = types.CloseReason(reason)
			t.Position.TakeProfit = fromNullable(takeProfit)
			t.Position.StopLoss = fromNullable(stopLoss)

			trades = append(trades, t)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read trades: %w", err)
	}

	return trades, nil
}

func (w *TradesWriter) scalar(sel squirrel.SelectBuilder, dest any) error {
	return w.query(func(db *sql.DB) error {
		query, args, err := sel.ToSql()
		if err != nil {
			return err
		}

		return db.QueryRow(query, args...).Scan(dest)
	})
}

func applyFilter(sel squirrel.SelectBuilder, filter TradeFilter) squirrel.SelectBuilder {
	if filter.Symbol != "" {
		sel = sel.Where(squirrel.Eq{"symbol": filter.Symbol})
	}

	if filter.MarketType != "" {
		sel = sel.Where(squirrel.Eq{"market_type": string(filter.MarketType)})
	}

	if filter.Reason != "" {
		sel = sel.Where(squirrel.Eq{"reason": string(filter.Reason)})
	}

	if !filter.Since.IsZero() {
		sel = sel.Where(squirrel.GtOrEq{"closed_at": filter.Since})
	}

	return sel
}

func nullable(v optional.Option[float64]) any {
	if v.IsNone() {
		return nil
	}

	return v.Unwrap()
}

func fromNullable(v sql.NullFloat64) optional.Option[float64] {
	if !v.Valid {
		return optional.None[float64]()
	}

	return optional.Some(v.Float64)
}
