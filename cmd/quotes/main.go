package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-retail/internal/config"
	"github.com/rxtech-lab/argo-retail/internal/journal"
	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/internal/version"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var configFlags = []cli.Flag{
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
	&cli.StringSliceFlag{
		Name:    "market-type",
		Aliases: []string{"m"},
		Usage:   "Market types to quote (stocks, forex, crypto); all when omitted",
	},
	&cli.StringFlag{
		Name:  "strategy",
		Usage: "Provider fan-out, sequential or race; defaults to the configured one",
	},
}

// setup loads the config and builds the logger and aggregator shared by the subcommands.
func setup(cmd *cli.Command) (*config.Config, *logger.Logger, *marketdata.Aggregator, error) {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	switch strategy := marketdata.Strategy(cmd.String("strategy")); strategy {
	case "":
	case marketdata.StrategySequential, marketdata.StrategyRace:
		cfg.MarketData.Strategy = strategy
	default:
		return nil, nil, nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown strategy %q", strategy)
	}

	aggregator, err := cfg.NewAggregator(log.Named("marketdata"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create quote aggregator: %w", err)
	}

	return cfg, log, aggregator, nil
}

// marketTypes parses the --market-type values, defaulting to all categories.
func marketTypes(cmd *cli.Command) ([]types.MarketType, error) {
	raw := cmd.StringSlice("market-type")
	if len(raw) == 0 {
		return types.AllMarketTypes(), nil
	}

	out := make([]types.MarketType, 0, len(raw))

	for _, r := range raw {
		mt, err := types.ParseMarketType(r)
		if err != nil {
			return nil, err
		}

		out = append(out, mt)
	}

	return out, nil
}

// fetchAction runs a single aggregation cycle and prints the result.
func fetchAction(ctx context.Context, cmd *cli.Command) error {
	_, log, aggregator, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	mts, err := marketTypes(cmd)
	if err != nil {
		return err
	}

	result := aggregator.FetchResult(ctx, mts...)

	if cmd.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(result.Assets)
	}

	fmt.Println(RenderAssets(result.Assets))

	if cmd.Bool("verbose") {
		fmt.Println(RenderAttempts(result.Attempts))
	}

	if result.Fallbacks > 0 {
		fmt.Printf("%d of %d quotes are fallback prices\n", result.Fallbacks, len(result.Assets))
	}

	return nil
}

// recordAction polls for a number of cycles and journals every batch.
func recordAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, aggregator, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	mts, err := marketTypes(cmd)
	if err != nil {
		return err
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = cfg.Journal.Dir
	}

	j, err := journal.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	interval := cmd.Duration("interval")
	if interval <= 0 {
		interval = cfg.MarketData.PollInterval
	}

	cycles := cmd.Int("cycles")
	poller := marketdata.NewPoller(aggregator, interval, mts...)
	bar := progressbar.Default(int64(cycles), "recording quotes")
	recorded := 0

	for batch := range poller.Stream(ctx) {
		if err := j.RecordBatch(batch); err != nil {
			log.Error("failed to record batch", zap.Uint64("sequence", batch.Sequence), zap.Error(err))
		}

		recorded++
		_ = bar.Add(1)

		if recorded >= int(cycles) {
			break
		}
	}

	count, err := j.Quotes.GetQuoteCount()
	if err != nil {
		return err
	}

	fmt.Printf("\nRecorded %d cycles, %d quotes in %s\n", recorded, count, j.Quotes.GetOutputPath())

	return nil
}

// latestAction prints the newest journaled live quote per instrument.
func latestAction(_ context.Context, cmd *cli.Command) error {
	mts, err := marketTypes(cmd)
	if err != nil {
		return err
	}

	writer := journal.NewQuotesWriter(filepath.Join(cmd.String("dir"), "quotes.parquet"))
	if err := writer.Initialize(); err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer writer.Close()

	assets, err := writer.LatestQuotes(mts...)
	if err != nil {
		return err
	}

	fmt.Println(RenderAssets(assets))

	return nil
}

// providersAction lists supported providers or prints one provider's config schema.
func providersAction(_ context.Context, cmd *cli.Command) error {
	if name := cmd.String("schema"); name != "" {
		schema, err := marketdata.GetProviderConfigSchema(name)
		if err != nil {
			return err
		}

		fmt.Println(schema)

		return nil
	}

	names := marketdata.GetSupportedProviders()
	infos := make([]marketdata.ProviderInfo, 0, len(names))

	for _, name := range names {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil {
			return err
		}

		infos = append(infos, info)
	}

	fmt.Println(RenderProviders(infos))

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "quotes",
		Usage:   "Fetch and record aggregated quotes",
		Version: version.GetVersion(),
		Flags:   append(configFlags, &cli.BoolFlag{Name: "json", Usage: "Print quotes as JSON"}, &cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print per-provider attempts"}),
		Action:  fetchAction,
		Commands: []*cli.Command{
			{
				Name:  "record",
				Usage: "Poll quotes and write them to the journal",
				Flags: append(configFlags,
					&cli.IntFlag{Name: "cycles", Aliases: []string{"n"}, Usage: "Number of polling cycles", Value: 10},
					&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Usage: "Polling interval, defaults to the configured one"},
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Journal directory, defaults to the configured one"},
				),
				Action: recordAction,
			},
			{
				Name:  "latest",
				Usage: "Show the newest journaled quote per instrument",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Journal directory", Value: "data/journal"},
					&cli.StringSliceFlag{Name: "market-type", Aliases: []string{"m"}, Usage: "Market types to show; all when omitted"},
				},
				Action: latestAction,
			},
			{
				Name:  "providers",
				Usage: "List quote providers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "schema", Usage: "Print the config schema of the named provider"},
				},
				Action: providersAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
