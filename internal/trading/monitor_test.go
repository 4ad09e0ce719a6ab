package trading

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/portfolio"
	"github.com/rxtech-lab/argo-retail/internal/trading/backend"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/mocks"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type MonitorTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	executor *mocks.MockExecutor
	book     *portfolio.Book
	monitor  *Monitor
	at       time.Time
	seq      uint64
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorTestSuite))
}

func (suite *MonitorTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.executor = mocks.NewMockExecutor(suite.ctrl)
	suite.at = time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	suite.seq = 0
	suite.book = portfolio.NewBook("user-1")
	suite.book.Reset(suite.snapshot())
	suite.monitor = NewMonitor(suite.executor, suite.book)
}

func (suite *MonitorTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *MonitorTestSuite) snapshot() types.PortfolioSnapshot {
	return types.PortfolioSnapshot{
		UserID:  "user-1",
		Balance: 1000,
		Positions: []types.Position{{
			ID:         "pos-1",
			Symbol:     "ETHUSDT",
			MarketType: types.MarketTypeCrypto,
			Direction:  types.DirectionBuy,
			Quantity:   1,
			EntryPrice: 3000,
			Leverage:   10,
			StopLoss:   optional.Some(2900.0),
			TakeProfit: optional.Some(3200.0),
		}},
		PendingOrders: []types.PendingOrder{{
			ID:          "ord-1",
			Symbol:      "XYZ",
			MarketType:  types.MarketTypeStocks,
			OrderType:   types.EntryOrderTypeStop,
			Direction:   types.DirectionSell,
			Quantity:    2,
			TargetPrice: 50,
			Leverage:    1,
			Status:      types.OrderStatusPending,
		}},
	}
}

func (suite *MonitorTestSuite) batch(assets ...types.Asset) types.QuoteBatch {
	suite.seq++

	return types.QuoteBatch{Sequence: suite.seq, At: suite.at.Add(time.Duration(suite.seq) * time.Second), Assets: assets}
}

func eth(price float64) types.Asset {
	return types.Asset{Symbol: "ETHUSDT", MarketType: types.MarketTypeCrypto, Price: price, Source: "binance"}
}

func xyz(price float64) types.Asset {
	return types.Asset{Symbol: "XYZ", MarketType: types.MarketTypeStocks, Price: price, Source: "polygon"}
}

func (suite *MonitorTestSuite) closed(exit float64, reason types.CloseReason) types.TradeResult {
	view, err := suite.book.Position("pos-1")
	suite.Require().NoError(err)

	trade, err := portfolio.ClosePosition(view.Position, exit, reason, suite.at)
	suite.Require().NoError(err)

	return types.TradeResult{Success: true, Action: types.TradeActionClosePosition, Trade: optional.Some(trade)}
}

func (suite *MonitorTestSuite) TestNoTriggerNoCall() {
	events := suite.monitor.Handle(context.Background(), suite.batch(eth(3050), xyz(60)))
	suite.Empty(events)
	suite.Equal(50.0, suite.book.Positions()[0].UnrealizedPnL)
}

func (suite *MonitorTestSuite) TestStopLossCloseIsSubmittedOnce() {
	result := suite.closed(2895, types.CloseReasonStopLoss)

	var observed []types.TradeResult
	suite.monitor = NewMonitor(suite.executor, suite.book, OnResult(func(r types.TradeResult) { observed = append(observed, r) }))

	suite.executor.EXPECT().
		ClosePositionWithReason(gomock.Any(), types.ClosePositionParams{PositionID: "pos-1", CurrentPrice: 2890, Reason: types.CloseReasonStopLoss}).
		Return(result, nil).
		Times(1)

	suite.monitor.Handle(context.Background(), suite.batch(eth(2890)))
	suite.monitor.Handle(context.Background(), suite.batch(eth(2880)))

	suite.Empty(suite.book.Positions())
	suite.Len(suite.book.ClosedTrades(), 1)
	suite.Equal(-105.0, suite.book.Summary().RealizedPnL)
	suite.Len(observed, 1)
}

func (suite *MonitorTestSuite) TestStopSellFillsAtObservedTick() {
	var params types.FillEntryOrderParams

	suite.executor.EXPECT().
		FillEntryOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p types.FillEntryOrderParams) (types.TradeResult, error) {
			params = p

			return types.TradeResult{
				Success:  true,
				Action:   types.TradeActionFillEntryOrder,
				Order:    optional.Some(types.PendingOrder{ID: "ord-1", Status: types.OrderStatusFilled}),
				Position: optional.Some(types.Position{ID: "pos-2", Symbol: "XYZ", MarketType: types.MarketTypeStocks, Direction: types.DirectionSell, Quantity: 2, EntryPrice: p.TriggerPrice}),
			}, nil
		})

	suite.Empty(suite.monitor.Handle(context.Background(), suite.batch(xyz(52))))
	suite.Len(suite.monitor.Handle(context.Background(), suite.batch(xyz(49))), 1)

	suite.Equal("ord-1", params.OrderID)
	suite.Equal(49.0, params.TriggerPrice)
	suite.Empty(suite.book.PendingOrders())

	position, err := suite.book.Position("pos-2")
	suite.Require().NoError(err)
	suite.Equal(49.0, position.EntryPrice)
}

func (suite *MonitorTestSuite) TestRejectionReleasesLatch() {
	gomock.InOrder(
		suite.executor.EXPECT().
			ClosePositionWithReason(gomock.Any(), gomock.Any()).
			Return(types.Rejected(types.TradeActionClosePosition, "market closed", ""), backend.Reject("market closed", "")),
		suite.executor.EXPECT().
			ClosePositionWithReason(gomock.Any(), gomock.Any()).
			Return(suite.closed(2850, types.CloseReasonStopLoss), nil),
	)

	suite.monitor.Handle(context.Background(), suite.batch(eth(2890)))
	suite.Len(suite.book.Positions(), 1)
	suite.False(suite.book.Positions()[0].Closing)

	suite.monitor.Handle(context.Background(), suite.batch(eth(2850)))
	suite.Empty(suite.book.Positions())
}

func (suite *MonitorTestSuite) TestUnknownOutcomeReconciles() {
	after := suite.snapshot()
	after.Positions = nil
	after.Balance = 895

	gomock.InOrder(
		suite.executor.EXPECT().
			ClosePositionWithReason(gomock.Any(), gomock.Any()).
			Return(types.TradeResult{Action: types.TradeActionClosePosition}, errors.New(errors.ErrCodeBackendUnavailable, "timeout")),
		suite.executor.EXPECT().
			FetchPortfolio(gomock.Any(), "user-1").
			Return(after, nil),
	)

	suite.monitor.Handle(context.Background(), suite.batch(eth(2890)))

	suite.Empty(suite.book.Positions())
	suite.Equal(895.0, suite.book.Summary().Balance)
}

func (suite *MonitorTestSuite) TestFailedReconcileRetriesOnNextBatch() {
	gomock.InOrder(
		suite.executor.EXPECT().
			ClosePositionWithReason(gomock.Any(), gomock.Any()).
			Return(types.TradeResult{}, errors.New(errors.ErrCodeBackendUnavailable, "timeout")),
		suite.executor.EXPECT().
			FetchPortfolio(gomock.Any(), "user-1").
			Return(types.PortfolioSnapshot{}, errors.New(errors.ErrCodeBackendUnavailable, "still down")),
		suite.executor.EXPECT().
			FetchPortfolio(gomock.Any(), "user-1").
			Return(suite.snapshot(), nil),
	)

	suite.monitor.Handle(context.Background(), suite.batch(eth(2890)))
	suite.True(suite.book.Positions()[0].Closing)

	// latched while unreconciled, so no second close is submitted
	suite.monitor.Handle(context.Background(), suite.batch(eth(2880)))
	suite.False(suite.book.Positions()[0].Closing)
}

func (suite *MonitorTestSuite) TestFallbackBatchNeverTriggers() {
	asset := eth(10)
	asset.Source = types.SourceFallback

	suite.Empty(suite.monitor.Handle(context.Background(), suite.batch(asset)))
}

func (suite *MonitorTestSuite) TestRunConsumesStreamInOrder() {
	var seen []uint64

	suite.monitor = NewMonitor(suite.executor, suite.book, OnBatch(func(b types.QuoteBatch) { seen = append(seen, b.Sequence) }))

	batches := []types.QuoteBatch{suite.batch(eth(3010)), suite.batch(eth(3020)), suite.batch(eth(3030))}

	err := suite.monitor.Run(context.Background(), slices.Values(batches))
	suite.NoError(err)
	suite.Equal([]uint64{1, 2, 3}, seen)

	price, _, ok := suite.book.Mark(types.AssetKey{MarketType: types.MarketTypeCrypto, Symbol: "ETHUSDT"})
	suite.True(ok)
	suite.Equal(3030.0, price)
}

func (suite *MonitorTestSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := suite.monitor.Run(ctx, slices.Values([]types.QuoteBatch{suite.batch(eth(3010))}))
	suite.ErrorIs(err, context.Canceled)

	_, _, ok := suite.book.Mark(types.AssetKey{MarketType: types.MarketTypeCrypto, Symbol: "ETHUSDT"})
	suite.False(ok)
}
