package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-retail/internal/config"
	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/internal/version"
	"github.com/urfave/cli/v3"
)

func watchAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The TUI owns the terminal, so the aggregator logs nowhere.
	aggregator, err := cfg.NewAggregator(logger.NewNopLogger())
	if err != nil {
		return fmt.Errorf("failed to create quote aggregator: %w", err)
	}

	interval := cmd.Duration("interval")
	if interval <= 0 {
		interval = cfg.MarketData.PollInterval
	}

	m := NewModel(aggregator, interval)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.SetProgram(p)

	_, err = p.Run()

	return err
}

func main() {
	cmd := &cli.Command{
		Name:    "watchlist",
		Usage:   "Watch live quotes across stocks, forex and crypto",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file; defaults and environment only when empty",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file",
				Value: ".env",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Polling interval, defaults to the configured one",
			},
		},
		Action: watchAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
