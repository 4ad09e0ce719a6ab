package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/types"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func formatOptional(v optional.Option[float64]) string {
	if f, err := v.Take(); err == nil {
		return fmt.Sprintf("%.4f", f)
	}

	return "-"
}

// PositionRows converts position views into table rows. Unmarked positions
// show no PnL.
func PositionRows(views []types.PositionView) [][]string {
	rows := make([][]string, 0, len(views))

	for _, v := range views {
		mark, pnl := "-", "-"
		if v.Marked {
			mark = fmt.Sprintf("%.4f", v.MarkPrice)
			pnl = fmt.Sprintf("%+.2f", v.UnrealizedPnL)
		}

		rows = append(rows, []string{
			v.ID,
			v.Key().String(),
			string(v.Direction),
			fmt.Sprintf("%g", v.Quantity),
			fmt.Sprintf("%.4f", v.EntryPrice),
			mark,
			pnl,
			fmt.Sprintf("%gx", v.Leverage),
			formatOptional(v.StopLoss),
			formatOptional(v.TakeProfit),
		})
	}

	return rows
}

// OrderRows converts pending orders into table rows.
func OrderRows(orders []types.PendingOrder) [][]string {
	rows := make([][]string, 0, len(orders))

	for _, o := range orders {
		rows = append(rows, []string{
			o.ID,
			o.Key().String(),
			string(o.OrderType),
			string(o.Direction),
			fmt.Sprintf("%g", o.Quantity),
			fmt.Sprintf("%.4f", o.TargetPrice),
			string(o.Status),
		})
	}

	return rows
}

// RenderSummary renders balances, positions and pending orders.
func RenderSummary(summary types.PortfolioSummary, positions []types.PositionView, orders []types.PendingOrder) string {
	out := titleStyle.Render("Portfolio") + "\n"
	out += fmt.Sprintf("Balance %.2f  Equity %.2f  Margin %.2f  Free %.2f\n",
		summary.Balance, summary.Equity, summary.MarginUsed, summary.FreeMargin)
	out += fmt.Sprintf("Unrealized %+.2f  Realized %+.2f\n", summary.UnrealizedPnL, summary.RealizedPnL)

	if summary.Unmarked > 0 {
		out += faintStyle.Render(fmt.Sprintf("%d positions have no live price yet", summary.Unmarked)) + "\n"
	}

	if len(positions) > 0 {
		out += "\n" + render([]string{"ID", "Instrument", "Side", "Qty", "Entry", "Mark", "PnL", "Lev", "SL", "TP"}, PositionRows(positions)) + "\n"
	}

	if len(orders) > 0 {
		out += "\n" + render([]string{"ID", "Instrument", "Type", "Side", "Qty", "Target", "Status"}, OrderRows(orders)) + "\n"
	}

	return out
}

// RenderResult renders the outcome of one trade intent.
func RenderResult(result types.TradeResult) string {
	if !result.Success {
		reason := result.Reason
		if result.Code != "" {
			reason += " (" + result.Code + ")"
		}

		return fmt.Sprintf("%s rejected: %s", result.Action, reason)
	}

	switch {
	case result.Trade.IsSome():
		t := result.Trade.Unwrap()

		return fmt.Sprintf("%s: closed %s at %.4f, realized %+.2f (%s)", result.Action, t.Position.ID, t.ExitPrice, t.RealizedPnL, t.Reason)
	case result.Position.IsSome():
		p := result.Position.Unwrap()

		return fmt.Sprintf("%s: position %s %s %g %s at %.4f, margin %.2f", result.Action, p.ID, p.Direction, p.Quantity, p.Key(), p.EntryPrice, p.MarginRequired)
	case result.Order.IsSome():
		o := result.Order.Unwrap()

		return fmt.Sprintf("%s: order %s %s %s at %.4f is %s", result.Action, o.ID, o.OrderType, o.Key(), o.TargetPrice, o.Status)
	case result.Removed.IsSome():
		return fmt.Sprintf("%s: removed %s", result.Action, result.Removed.Unwrap())
	default:
		return string(result.Action) + ": ok"
	}
}

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		}).
		String()
}
