package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-retail/internal/types"
	perrors "github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockBinanceAPIClient implements BinanceAPIClient for testing.
type mockBinanceAPIClient struct {
	stats     []*binance.PriceChangeStats
	err       error
	requested [][]string
}

func (m *mockBinanceAPIClient) NewListPriceChangeStatsService() BinancePriceChangeStatsService {
	return &mockBinanceStatsService{client: m}
}

type mockBinanceStatsService struct {
	client  *mockBinanceAPIClient
	symbols []string
}

func (m *mockBinanceStatsService) Symbols(symbols []string) BinancePriceChangeStatsService {
	m.symbols = symbols

	return m
}

func (m *mockBinanceStatsService) Do(_ context.Context) ([]*binance.PriceChangeStats, error) {
	m.client.requested = append(m.client.requested, m.symbols)
	if m.client.err != nil {
		return nil, m.client.err
	}

	return m.client.stats, nil
}

func priceStats(symbol, last, change string) *binance.PriceChangeStats {
	//nolint:exhaustruct // only the fields the adapter reads
	return &binance.PriceChangeStats{Symbol: symbol, LastPrice: last, PriceChangePercent: change}
}

type BinanceClientTestSuite struct {
	suite.Suite
}

func TestBinanceClientSuite(t *testing.T) {
	suite.Run(t, new(BinanceClientTestSuite))
}

func (suite *BinanceClientTestSuite) crypto(symbols ...string) ([]types.MarketType, map[types.MarketType][]string) {
	return []types.MarketType{types.MarketTypeCrypto}, map[types.MarketType][]string{types.MarketTypeCrypto: symbols}
}

func (suite *BinanceClientTestSuite) TestNewBinanceClient() {
	client, err := NewBinanceClient()
	suite.NoError(err)
	suite.NotNil(client.apiClient)
	suite.Equal("binance", client.Name())
	suite.True(client.Supports(types.MarketTypeCrypto))
	suite.False(client.Supports(types.MarketTypeStocks))
}

func (suite *BinanceClientTestSuite) TestFetchParsesDecimalStrings() {
	stats := priceStats("BTCUSDT", "65000.50", "-1.25")
	stats.CloseTime = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	api := &mockBinanceAPIClient{stats: []*binance.PriceChangeStats{stats, priceStats("ETHUSDT", "3200", "0.5")}}
	client := NewBinanceClientWithAPI(api)

	mts, syms := suite.crypto("BTCUSDT", "ETHUSDT")
	assets, err := client.Fetch(context.Background(), mts, syms)
	suite.NoError(err)
	suite.Len(assets, 2)
	suite.Equal(65000.50, assets[0].Price)
	suite.Equal(-1.25, assets[0].ChangePercent.Unwrap())
	suite.Equal(time.UnixMilli(stats.CloseTime), assets[0].UpdatedAt)
	suite.Equal("binance", assets[1].Source)
	suite.Equal([][]string{{"BTCUSDT", "ETHUSDT"}}, api.requested)
}

func (suite *BinanceClientTestSuite) TestFetchIgnoresUnrequestedSymbols() {
	api := &mockBinanceAPIClient{stats: []*binance.PriceChangeStats{priceStats("DOGEUSDT", "0.1", "0")}}
	client := NewBinanceClientWithAPI(api)

	mts, syms := suite.crypto("BTCUSDT")
	assets, err := client.Fetch(context.Background(), mts, syms)
	suite.NoError(err)
	suite.Empty(assets)
}

func (suite *BinanceClientTestSuite) TestFetchRejectsUnparsablePrice() {
	for _, last := range []string{"", "abc", "0", "-5"} {
		api := &mockBinanceAPIClient{stats: []*binance.PriceChangeStats{priceStats("BTCUSDT", last, "0")}}
		client := NewBinanceClientWithAPI(api)

		mts, syms := suite.crypto("BTCUSDT")
		_, err := client.Fetch(context.Background(), mts, syms)
		suite.True(perrors.HasCode(err, perrors.ErrCodeMalformedResponse), "lastPrice %q", last)
	}
}

func (suite *BinanceClientTestSuite) TestFetchRejectsUnparsableChange() {
	api := &mockBinanceAPIClient{stats: []*binance.PriceChangeStats{priceStats("BTCUSDT", "1", "n/a")}}
	client := NewBinanceClientWithAPI(api)

	mts, syms := suite.crypto("BTCUSDT")
	_, err := client.Fetch(context.Background(), mts, syms)
	suite.True(perrors.HasCode(err, perrors.ErrCodeMalformedResponse))
}

func (suite *BinanceClientTestSuite) TestFetchSkipsInvalidEntriesKeepsValid() {
	api := &mockBinanceAPIClient{stats: []*binance.PriceChangeStats{
		priceStats("BTCUSDT", "abc", "0"),
		nil,
		priceStats("ETHUSDT", "3200", "0.5"),
		priceStats("SOLUSDT", "150", "n/a"),
	}}
	client := NewBinanceClientWithAPI(api)

	mts, syms := suite.crypto("BTCUSDT", "ETHUSDT", "SOLUSDT")
	assets, err := client.Fetch(context.Background(), mts, syms)

	suite.True(perrors.HasCode(err, perrors.ErrCodeMalformedResponse))
	suite.Contains(err.Error(), "BTCUSDT")
	suite.Contains(err.Error(), "SOLUSDT")
	suite.Require().Len(assets, 1)
	suite.Equal("ETHUSDT", assets[0].Symbol)
	suite.Equal(3200.0, assets[0].Price)
}

func (suite *BinanceClientTestSuite) TestFetchRateLimited() {
	api := &mockBinanceAPIClient{err: &common.APIError{Code: -1003, Message: "Too many requests"}}
	client := NewBinanceClientWithAPI(api)

	mts, syms := suite.crypto("BTCUSDT")
	_, err := client.Fetch(context.Background(), mts, syms)
	suite.True(perrors.HasCode(err, perrors.ErrCodeRateLimited))
}

func (suite *BinanceClientTestSuite) TestFetchOtherAPIError() {
	api := &mockBinanceAPIClient{err: &common.APIError{Code: -1121, Message: "Invalid symbol."}}
	client := NewBinanceClientWithAPI(api)

	mts, syms := suite.crypto("BTCUSDT")
	_, err := client.Fetch(context.Background(), mts, syms)
	suite.True(perrors.HasCode(err, perrors.ErrCodeProviderUnavailable))
}

func (suite *BinanceClientTestSuite) TestFetchNetworkError() {
	api := &mockBinanceAPIClient{err: errors.New("i/o timeout")}
	client := NewBinanceClientWithAPI(api)

	mts, syms := suite.crypto("BTCUSDT")
	_, err := client.Fetch(context.Background(), mts, syms)
	suite.True(perrors.HasCode(err, perrors.ErrCodeProviderUnavailable))
}

func (suite *BinanceClientTestSuite) TestFetchBatchesLargeRequests() {
	symbols := make([]string, 0, binanceBatchSize+5)
	for i := 0; i < binanceBatchSize+5; i++ {
		symbols = append(symbols, "S"+string(rune('A'+i%26))+"USDT")
	}

	api := &mockBinanceAPIClient{stats: []*binance.PriceChangeStats{}}
	client := NewBinanceClientWithAPI(api)

	mts, syms := suite.crypto(symbols...)
	_, err := client.Fetch(context.Background(), mts, syms)
	suite.NoError(err)
	suite.Len(api.requested, 2)
	suite.Len(api.requested[0], binanceBatchSize)
	suite.Len(api.requested[1], 5)
}
