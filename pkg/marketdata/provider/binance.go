package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/utils"
)

// binanceBatchSize bounds the symbols sent in one 24h ticker request.
const binanceBatchSize = 100

// binanceRateLimitCode is the API error code for "too many requests".
const binanceRateLimitCode = -1003

// BinanceAPIClient is the subset of the Binance client used for quotes.
type BinanceAPIClient interface {
	NewListPriceChangeStatsService() BinancePriceChangeStatsService
}

// BinancePriceChangeStatsService is the 24h ticker statistics request builder.
type BinancePriceChangeStatsService interface {
	Symbols(symbols []string) BinancePriceChangeStatsService
	Do(ctx context.Context) ([]*binance.PriceChangeStats, error)
}

// binanceAPIClientWrapper adapts *binance.Client to BinanceAPIClient.
type binanceAPIClientWrapper struct {
	client *binance.Client
}

func (w *binanceAPIClientWrapper) NewListPriceChangeStatsService() BinancePriceChangeStatsService {
	return &binanceStatsServiceWrapper{service: w.client.NewListPriceChangeStatsService()}
}

type binanceStatsServiceWrapper struct {
	service *binance.ListPriceChangeStatsService
}

func (w *binanceStatsServiceWrapper) Symbols(symbols []string) BinancePriceChangeStatsService {
	w.service = w.service.Symbols(symbols)

	return w
}

func (w *binanceStatsServiceWrapper) Do(ctx context.Context) ([]*binance.PriceChangeStats, error) {
	return w.service.Do(ctx)
}

// BinanceClient quotes crypto pairs from Binance public 24h ticker statistics.
type BinanceClient struct {
	apiClient BinanceAPIClient
	now       func() time.Time
}

func NewBinanceClient() (*BinanceClient, error) {
	return NewBinanceClientWithAPI(&binanceAPIClientWrapper{client: binance.NewClient("", "")}), nil
}

// NewBinanceClientWithAPI creates a client on top of an existing API implementation.
func NewBinanceClientWithAPI(api BinanceAPIClient) *BinanceClient {
	return &BinanceClient{apiClient: api, now: time.Now}
}

func (c *BinanceClient) Name() string {
	return string(ProviderBinance)
}

func (c *BinanceClient) Supports(marketType types.MarketType) bool {
	return marketType == types.MarketTypeCrypto
}

func (c *BinanceClient) Fetch(ctx context.Context, marketTypes []types.MarketType, symbols map[types.MarketType][]string) ([]types.Asset, error) {
	out := collector{provider: c.Name()}

	for _, mt := range requested(c, marketTypes, symbols) {
		for _, chunk := range utils.ChunkStrings(symbols[mt], binanceBatchSize) {
			if err := ctxErr(ctx, c.Name()); err != nil {
				out.fail(mt, err)

				break
			}

			batch, err := c.fetchChunk(ctx, mt, chunk)
			out.add(batch)

			if err != nil {
				out.fail(mt, err)
			}
		}
	}

	return out.result()
}

func (c *BinanceClient) fetchChunk(ctx context.Context, marketType types.MarketType, symbols []string) ([]types.Asset, error) {
	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	stats, err := c.apiClient.NewListPriceChangeStatsService().Symbols(symbols).Do(ctx)
	if err != nil {
		return nil, classifyBinanceError(err)
	}

	now := c.now()
	assets := make([]types.Asset, 0, len(stats))

	// bad entries are skipped and left unresolved for the next provider
	var invalid []string

	for _, s := range stats {
		if s == nil {
			invalid = append(invalid, "nil ticker entry")

			continue
		}

		if _, ok := wanted[s.Symbol]; !ok {
			continue
		}

		price, err := strconv.ParseFloat(s.LastPrice, 64)
		if err != nil || price <= 0 {
			invalid = append(invalid, fmt.Sprintf("lastPrice %q for %s", s.LastPrice, s.Symbol))
			delete(wanted, s.Symbol)

			continue
		}

		change, err := strconv.ParseFloat(s.PriceChangePercent, 64)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("priceChangePercent %q for %s", s.PriceChangePercent, s.Symbol))
			delete(wanted, s.Symbol)

			continue
		}

		asset := newAsset(c.Name(), marketType, s.Symbol, price, now)
		asset.ChangePercent = someFloat(change)

		if s.CloseTime > 0 {
			asset.UpdatedAt = time.UnixMilli(s.CloseTime)
		}

		assets = append(assets, asset)
		delete(wanted, s.Symbol)
	}

	if len(invalid) > 0 {
		return assets, malformed(c.Name(), "invalid ticker data: %s", strings.Join(invalid, "; "))
	}

	return assets, nil
}

func classifyBinanceError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == binanceRateLimitCode {
		return rateLimited(string(ProviderBinance), err)
	}

	if common.IsAPIError(err) {
		return unavailable(string(ProviderBinance), err)
	}

	return fromStatus(string(ProviderBinance), statusFromError(err), err)
}

// statusFromError extracts the HTTP status from errors that expose one.
func statusFromError(err error) int {
	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode()
	}

	return http.StatusServiceUnavailable
}
