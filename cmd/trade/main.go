package main

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/config"
	"github.com/rxtech-lab/argo-retail/internal/journal"
	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/internal/portfolio"
	"github.com/rxtech-lab/argo-retail/internal/storage"
	"github.com/rxtech-lab/argo-retail/internal/trading"
	"github.com/rxtech-lab/argo-retail/internal/trading/backend"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/internal/utils"
	"github.com/rxtech-lab/argo-retail/internal/version"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// app bundles what every trade subcommand needs.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	book    *portfolio.Book
	service *trading.Service
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Backend == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "backend is not configured, set BACKEND_URL")
	}

	if cfg.UserID == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "user id is not configured, set ARGO_USER_ID")
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	edge, err := backend.NewEdgeClient(*cfg.Backend, backend.WithLogger(log.Named("backend")))
	if err != nil {
		return nil, err
	}

	book := portfolio.NewBook(cfg.UserID)
	service := trading.NewService(edge, trading.WithBook(book), trading.WithLogger(log.Named("trading")))

	return &app{cfg: cfg, log: log, book: book, service: service}, nil
}

// run wraps a subcommand body with app setup and logger flushing.
func run(fn func(ctx context.Context, cmd *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.log.Sync() //nolint:errcheck

		return fn(ctx, cmd, a)
	}
}

// report prints a confirmed or rejected trade result. An unknown outcome is
// returned as the error alone.
func report(result types.TradeResult, err error) error {
	if _, rejected := backend.RejectionOf(err); err == nil || rejected {
		fmt.Println(RenderResult(result))
	}

	return err
}

func optionalFloat(cmd *cli.Command, name string) optional.Option[float64] {
	if !cmd.IsSet(name) {
		return optional.None[float64]()
	}

	return optional.Some(cmd.Float(name))
}

func marketType(cmd *cli.Command) (types.MarketType, error) {
	return types.ParseMarketType(cmd.String("market-type"))
}

// quantity reads --quantity, or sizes the trade from --percent of the free
// margin after syncing the book.
func quantity(ctx context.Context, cmd *cli.Command, a *app, mt types.MarketType, price float64) (float64, error) {
	if !cmd.IsSet("percent") {
		if !cmd.IsSet("quantity") {
			return 0, errors.New(errors.ErrCodeMissingParameter, "either --quantity or --percent is required")
		}

		return cmd.Float("quantity"), nil
	}

	if err := a.service.Reconcile(ctx); err != nil {
		return 0, err
	}

	qty := utils.CalculateOrderQuantityByPercentage(a.book.Summary().FreeMargin, price, cmd.Float("leverage"),
		cmd.Float("percent")/100, utils.QuantityPrecision(mt))
	if qty <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidQuantity, "free margin is too small for the requested size")
	}

	return qty, nil
}

func portfolioAction(ctx context.Context, _ *cli.Command, a *app) error {
	if err := a.service.Reconcile(ctx); err != nil {
		return err
	}

	fmt.Print(RenderSummary(a.book.Summary(), a.book.Positions(), a.book.PendingOrders()))

	return nil
}

func openAction(ctx context.Context, cmd *cli.Command, a *app) error {
	mt, err := marketType(cmd)
	if err != nil {
		return err
	}

	qty, err := quantity(ctx, cmd, a, mt, cmd.Float("price"))
	if err != nil {
		return err
	}

	return report(a.service.OpenPosition(ctx, types.OpenPositionParams{
		UserID:     a.cfg.UserID,
		Symbol:     cmd.String("symbol"),
		MarketType: mt,
		Direction:  types.Direction(cmd.String("direction")),
		Quantity:   qty,
		Price:      cmd.Float("price"),
		Leverage:   cmd.Float("leverage"),
		TakeProfit: optionalFloat(cmd, "take-profit"),
		StopLoss:   optionalFloat(cmd, "stop-loss"),
	}))
}

func placeOrderAction(ctx context.Context, cmd *cli.Command, a *app) error {
	mt, err := marketType(cmd)
	if err != nil {
		return err
	}

	qty, err := quantity(ctx, cmd, a, mt, cmd.Float("target"))
	if err != nil {
		return err
	}

	return report(a.service.PlaceEntryOrder(ctx, types.PlaceEntryOrderParams{
		UserID:      a.cfg.UserID,
		Symbol:      cmd.String("symbol"),
		MarketType:  mt,
		OrderType:   types.EntryOrderType(cmd.String("type")),
		Direction:   types.Direction(cmd.String("direction")),
		Quantity:    qty,
		TargetPrice: cmd.Float("target"),
		Leverage:    cmd.Float("leverage"),
		TakeProfit:  optionalFloat(cmd, "take-profit"),
		StopLoss:    optionalFloat(cmd, "stop-loss"),
	}))
}

func cancelOrderAction(ctx context.Context, cmd *cli.Command, a *app) error {
	return report(a.service.CancelEntryOrder(ctx, cmd.String("id")))
}

func closeAction(ctx context.Context, cmd *cli.Command, a *app) error {
	return report(a.service.ClosePosition(ctx, cmd.String("id"), cmd.Float("price")))
}

func removeAction(ctx context.Context, cmd *cli.Command, a *app) error {
	mt, err := marketType(cmd)
	if err != nil {
		return err
	}

	return report(a.service.RemoveFromPortfolio(ctx, types.RemoveFromPortfolioParams{
		UserID:     a.cfg.UserID,
		Symbol:     cmd.String("symbol"),
		MarketType: mt,
	}))
}

// monitorAction polls quotes and fires stop-loss, take-profit and entry
// triggers until interrupted.
func monitorAction(ctx context.Context, _ *cli.Command, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.service.Reconcile(ctx); err != nil {
		return err
	}

	aggregator, err := a.cfg.NewAggregator(a.log.Named("marketdata"))
	if err != nil {
		return err
	}

	opts := []trading.MonitorOption{
		trading.WithMonitorLogger(a.log.Named("monitor")),
		trading.OnResult(func(result types.TradeResult) {
			fmt.Println(RenderResult(result))
		}),
	}

	if a.cfg.Journal.Enabled {
		j, err := journal.Open(a.cfg.Journal.Dir)
		if err != nil {
			return err
		}
		defer j.Close()

		opts = append(opts,
			trading.OnBatch(func(batch types.QuoteBatch) {
				if err := j.RecordBatch(batch); err != nil {
					a.log.Warn("failed to journal batch", zap.Error(err))
				}
			}),
			trading.OnResult(func(result types.TradeResult) {
				if err := j.RecordResult(result); err != nil {
					a.log.Warn("failed to journal trade", zap.Error(err))
				}
			}),
		)
	}

	monitor := trading.NewMonitor(a.service, a.book, opts...)
	poller := marketdata.NewPoller(aggregator, a.cfg.MarketData.PollInterval, types.AllMarketTypes()...)

	fmt.Printf("Monitoring %d positions and %d pending orders...\n", len(a.book.Positions()), len(a.book.PendingOrders()))

	err = monitor.Run(ctx, poller.Stream(ctx))
	if errors.Is(err, context.Canceled) {
		fmt.Println("Monitor stopped by user")

		return nil
	}

	return err
}

func kycUploadAction(ctx context.Context, cmd *cli.Command, a *app) error {
	if a.cfg.Storage == nil {
		return errors.New(errors.ErrCodeInvalidConfiguration, "storage is not configured, set STORAGE_URL")
	}

	store, err := storage.NewDocumentStore(*a.cfg.Storage, a.log.Named("storage"))
	if err != nil {
		return err
	}

	file := cmd.String("file")

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	objectPath := cmd.String("path")
	if objectPath == "" {
		objectPath = filepath.Join("kyc", a.cfg.UserID, filepath.Base(file))
	}

	uploaded, err := store.Upload(ctx, filepath.ToSlash(objectPath), f, mime.TypeByExtension(filepath.Ext(file)))
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %s\n%s\n", uploaded.Key, store.GetPublicURL(uploaded.Path))

	return nil
}

func configSchemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := config.GetSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	instrumentFlags := []cli.Flag{
		&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "Instrument symbol", Required: true},
		&cli.StringFlag{Name: "market-type", Aliases: []string{"m"}, Usage: "stocks, forex or crypto", Required: true},
	}

	sizingFlags := []cli.Flag{
		&cli.StringFlag{Name: "direction", Aliases: []string{"d"}, Usage: "buy or sell", Required: true},
		&cli.FloatFlag{Name: "quantity", Aliases: []string{"q"}, Usage: "Units to trade"},
		&cli.FloatFlag{Name: "percent", Usage: "Size the trade as a percentage of free margin instead of --quantity"},
		&cli.FloatFlag{Name: "leverage", Aliases: []string{"l"}, Usage: "Leverage multiplier", Value: 1},
		&cli.FloatFlag{Name: "take-profit", Usage: "Take-profit price"},
		&cli.FloatFlag{Name: "stop-loss", Usage: "Stop-loss price"},
	}

	flags := func(groups ...[]cli.Flag) []cli.Flag {
		var out []cli.Flag
		for _, g := range groups {
			out = append(out, g...)
		}

		return out
	}

	cmd := &cli.Command{
		Name:    "trade",
		Usage:   "Execute trades against the account backend",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to the YAML config file"},
			&cli.StringFlag{Name: "env-file", Usage: "Path to a .env file", Value: ".env"},
		},
		Commands: []*cli.Command{
			{
				Name:   "portfolio",
				Usage:  "Show balances, positions and pending orders",
				Action: run(portfolioAction),
			},
			{
				Name:  "open",
				Usage: "Open a position at market",
				Flags: flags(instrumentFlags, sizingFlags, []cli.Flag{
					&cli.FloatFlag{Name: "price", Aliases: []string{"p"}, Usage: "Reference price seen by the client", Required: true},
				}),
				Action: run(openAction),
			},
			{
				Name:  "place-order",
				Usage: "Place a limit or stop entry order",
				Flags: flags(instrumentFlags, sizingFlags, []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "limit or stop", Value: string(types.EntryOrderTypeLimit)},
					&cli.FloatFlag{Name: "target", Usage: "Trigger price", Required: true},
				}),
				Action: run(placeOrderAction),
			},
			{
				Name:   "cancel-order",
				Usage:  "Cancel a pending entry order",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "id", Usage: "Order id", Required: true}},
				Action: run(cancelOrderAction),
			},
			{
				Name:  "close",
				Usage: "Close a position manually",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Position id", Required: true},
					&cli.FloatFlag{Name: "price", Aliases: []string{"p"}, Usage: "Reference price seen by the client", Required: true},
				},
				Action: run(closeAction),
			},
			{
				Name:   "remove",
				Usage:  "Remove an instrument from the watchlist",
				Flags:  instrumentFlags,
				Action: run(removeAction),
			},
			{
				Name:   "monitor",
				Usage:  "Watch quotes and execute stop-loss, take-profit and entry triggers",
				Action: run(monitorAction),
			},
			{
				Name:  "kyc-upload",
				Usage: "Upload an identity document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "File to upload", Required: true},
					&cli.StringFlag{Name: "path", Usage: "Object path, defaults to kyc/<user>/<file name>"},
				},
				Action: run(kycUploadAction),
			},
			{
				Name:   "config-schema",
				Usage:  "Print the JSON schema of the config file",
				Action: configSchemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
