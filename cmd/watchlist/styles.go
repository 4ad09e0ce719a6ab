package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Watchlist palette (ANSI 256).
const (
	colorAccent   = lipgloss.Color("39")
	colorMuted    = lipgloss.Color("244")
	colorBorder   = lipgloss.Color("238")
	colorGain     = lipgloss.Color("42")
	colorLoss     = lipgloss.Color("203")
	colorFallback = lipgloss.Color("214")
	colorAlert    = lipgloss.Color("196")
	colorCursorFg = lipgloss.Color("231")
	colorCursorBg = lipgloss.Color("24")
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).PaddingLeft(1)
	HelpStyle  = lipgloss.NewStyle().Foreground(colorMuted).PaddingLeft(1)
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAlert).PaddingLeft(1)

	// FallbackStyle marks quotes served from configured or last-known prices.
	FallbackStyle = lipgloss.NewStyle().Italic(true).Foreground(colorFallback)

	gainStyle = lipgloss.NewStyle().Foreground(colorGain)
	lossStyle = lipgloss.NewStyle().Foreground(colorLoss)
)

// quoteTableStyles is the header and cursor styling of the quotes table.
func quoteTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Foreground(colorAccent).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorCursorFg).
		Background(colorCursorBg).
		Bold(true)

	return s
}

// trendStyle picks the gain or loss color for a signed move.
func trendStyle(delta float64) (lipgloss.Style, bool) {
	switch {
	case delta > 0:
		return gainStyle, true
	case delta < 0:
		return lossStyle, true
	default:
		return lipgloss.Style{}, false
	}
}

// FormatPriceWithColor renders current with a tick arrow against the price of
// the previous cycle. A zero previous means the symbol was not seen yet.
func FormatPriceWithColor(current, previous float64) string {
	price := fmt.Sprintf("%.4f", current)
	if previous == 0 {
		return price
	}

	style, moved := trendStyle(current - previous)
	if !moved {
		return price
	}

	arrow := "▲"
	if current < previous {
		arrow = "▼"
	}

	return style.Render(price + " " + arrow)
}

// FormatChange renders a session change percentage, or a dash when unknown.
func FormatChange(change float64, ok bool) string {
	if !ok {
		return "-"
	}

	text := fmt.Sprintf("%+.2f%%", change)
	if style, moved := trendStyle(change); moved {
		return style.Render(text)
	}

	return text
}
