package main

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/rxtech-lab/argo-retail/internal/types"
)

// allCategories is the list entry that watches every market type.
const allCategories = "all"

// listItem implements list.Item interface for the category list.
type listItem struct {
	name        string
	description string
}

func (i listItem) Title() string       { return i.name }
func (i listItem) Description() string { return i.description }
func (i listItem) FilterValue() string { return i.name }

// NewCategoryList creates a new list for market type selection.
func NewCategoryList() list.Model {
	items := []list.Item{
		listItem{name: allCategories, description: "Stocks, forex and crypto"},
		listItem{name: string(types.MarketTypeStocks), description: "US equities and ETFs"},
		listItem{name: string(types.MarketTypeForex), description: "Currency pairs"},
		listItem{name: string(types.MarketTypeCrypto), description: "Crypto pairs quoted in USDT"},
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select Market"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// CategoriesFor maps a category list entry to the market types it covers.
func CategoriesFor(name string) []types.MarketType {
	if name == allCategories {
		return types.AllMarketTypes()
	}

	mt, err := types.ParseMarketType(name)
	if err != nil {
		return nil
	}

	return []types.MarketType{mt}
}

// NewSymbolInput creates a new text input for the symbol filter.
func NewSymbolInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "AAPL,BTCUSDT (empty for all)"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "> "

	return ti
}

// ParseSymbols parses comma-separated symbols into a slice.
func ParseSymbols(input string) []string {
	parts := strings.Split(input, ",")
	symbols := make([]string, 0, len(parts))

	for _, p := range parts {
		s := strings.TrimSpace(strings.ToUpper(p))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	return symbols
}

// NewDataTable creates a new table for displaying quotes.
func NewDataTable() table.Model {
	columns := []table.Column{
		{Title: "Symbol", Width: 12},
		{Title: "Market", Width: 8},
		{Title: "Price", Width: 18},
		{Title: "Change", Width: 10},
		{Title: "Source", Width: 10},
		{Title: "Time", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	t.SetStyles(quoteTableStyles())

	return t
}

// UpdateTableRows updates the table with the latest quotes.
func UpdateTableRows(t table.Model, data map[types.AssetKey]types.Asset, prevPrices map[types.AssetKey]float64) table.Model {
	keys := make([]types.AssetKey, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}

	slices.SortFunc(keys, func(a, b types.AssetKey) int {
		if c := strings.Compare(string(a.MarketType), string(b.MarketType)); c != 0 {
			return c
		}

		return strings.Compare(a.Symbol, b.Symbol)
	})

	rows := make([]table.Row, 0, len(data))

	for _, key := range keys {
		asset := data[key]
		source := asset.Source

		if asset.IsFallback() {
			source = FallbackStyle.Render(source)
		}

		rows = append(rows, table.Row{
			asset.Symbol,
			string(asset.MarketType),
			FormatPriceWithColor(asset.Price, prevPrices[key]),
			FormatChange(asset.ChangePercent.Unwrap(), asset.ChangePercent.IsSome()),
			source,
			asset.UpdatedAt.Format("15:04:05"),
		})
	}

	t.SetRows(rows)

	return t
}
