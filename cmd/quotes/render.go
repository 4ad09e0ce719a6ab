package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// AssetRows converts assets into table rows.
func AssetRows(assets []types.Asset) [][]string {
	rows := make([][]string, 0, len(assets))

	for _, a := range assets {
		change := "-"
		if v, err := a.ChangePercent.Take(); err == nil {
			change = fmt.Sprintf("%+.2f%%", v)
		}

		rows = append(rows, []string{
			string(a.MarketType),
			a.Symbol,
			a.Name.TakeOr(""),
			fmt.Sprintf("%.4f", a.Price),
			change,
			a.Source,
			a.UpdatedAt.Format(time.TimeOnly),
		})
	}

	return rows
}

// RenderAssets renders a quote table.
func RenderAssets(assets []types.Asset) string {
	return render([]string{"Market", "Symbol", "Name", "Price", "Change", "Source", "Updated"}, AssetRows(assets))
}

// AttemptRows converts provider attempts into table rows.
func AttemptRows(attempts []marketdata.Attempt) [][]string {
	rows := make([][]string, 0, len(attempts))

	for _, a := range attempts {
		status := "ok"
		if a.Err != nil {
			status = a.Err.Error()
		}

		rows = append(rows, []string{
			a.Provider,
			fmt.Sprintf("%d/%d", a.Accepted, a.Requested),
			a.Duration.Round(time.Millisecond).String(),
			status,
		})
	}

	return rows
}

// RenderAttempts renders the per-provider diagnostics of a fetch.
func RenderAttempts(attempts []marketdata.Attempt) string {
	return render([]string{"Provider", "Quotes", "Took", "Status"}, AttemptRows(attempts))
}

// RenderProviders renders provider metadata.
func RenderProviders(infos []marketdata.ProviderInfo) string {
	rows := make([][]string, 0, len(infos))

	for _, info := range infos {
		auth := "no"
		if info.RequiresAuth {
			auth = "yes"
		}

		markets := ""
		for i, mt := range info.MarketTypes {
			if i > 0 {
				markets += ","
			}

			markets += string(mt)
		}

		rows = append(rows, []string{info.Name, info.DisplayName, markets, auth, info.Description})
	}

	return render([]string{"Name", "Display", "Markets", "Auth", "Description"}, rows)
}

func render(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})

	return t.String()
}
