package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// PolygonAPIClient is the subset of the Polygon REST client used for quotes.
type PolygonAPIClient interface {
	GetAllTickersSnapshot(ctx context.Context, params *models.GetAllTickersSnapshotParams, options ...models.RequestOption) (*models.GetAllTickersSnapshotResponse, error)
}

// PolygonClient quotes stocks, forex and crypto from the Polygon.io full-market snapshot.
type PolygonClient struct {
	apiClient PolygonAPIClient
	now       func() time.Time
}

func NewPolygonClient(apiKey string) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon apiKey is required")
	}

	return NewPolygonClientWithAPI(polygon.New(apiKey)), nil
}

// NewPolygonClientWithAPI creates a client on top of an existing API implementation.
func NewPolygonClientWithAPI(api PolygonAPIClient) *PolygonClient {
	return &PolygonClient{apiClient: api, now: time.Now}
}

func (c *PolygonClient) Name() string {
	return string(ProviderPolygon)
}

func (c *PolygonClient) Supports(marketType types.MarketType) bool {
	switch marketType {
	case types.MarketTypeStocks, types.MarketTypeForex, types.MarketTypeCrypto:
		return true
	default:
		return false
	}
}

func (c *PolygonClient) Fetch(ctx context.Context, marketTypes []types.MarketType, symbols map[types.MarketType][]string) ([]types.Asset, error) {
	out := collector{provider: c.Name()}

	for _, mt := range requested(c, marketTypes, symbols) {
		if err := ctxErr(ctx, c.Name()); err != nil {
			out.fail(mt, err)

			continue
		}

		batch, err := c.fetchCategory(ctx, mt, symbols[mt])
		out.add(batch)

		if err != nil {
			out.fail(mt, err)
		}
	}

	return out.result()
}

func (c *PolygonClient) fetchCategory(ctx context.Context, marketType types.MarketType, symbols []string) ([]types.Asset, error) {
	// polygon ticker -> registry symbol
	lookup := make(map[string]string, len(symbols))
	tickers := make([]string, 0, len(symbols))

	for _, sym := range symbols {
		ticker := ToPolygonTicker(marketType, sym)
		lookup[ticker] = sym
		tickers = append(tickers, ticker)
	}

	joined := strings.Join(tickers, ",")

	//nolint:exhaustruct // third-party struct with many optional fields
	params := &models.GetAllTickersSnapshotParams{
		Locale:     polygonLocale(marketType),
		MarketType: polygonMarket(marketType),
		Tickers:    &joined,
	}

	resp, err := c.apiClient.GetAllTickersSnapshot(ctx, params)
	if err != nil {
		return nil, classifyPolygonError(err)
	}

	if resp == nil {
		return nil, malformed(c.Name(), "empty snapshot response for %s", marketType)
	}

	now := c.now()
	assets := make([]types.Asset, 0, len(resp.Tickers))

	var unpriced []string

	for _, snap := range resp.Tickers {
		sym, ok := lookup[snap.Ticker]
		if !ok {
			continue
		}

		price := snapshotPrice(snap)
		if price <= 0 {
			// left unresolved for the next provider
			unpriced = append(unpriced, snap.Ticker)
			delete(lookup, snap.Ticker)

			continue
		}

		asset := newAsset(c.Name(), marketType, sym, price, now)
		asset.ChangePercent = someFloat(snap.TodaysChangePerc)

		if updated := time.Time(snap.Updated); !updated.IsZero() && updated.Unix() > 0 {
			asset.UpdatedAt = updated
		}

		assets = append(assets, asset)
		delete(lookup, snap.Ticker)
	}

	if len(unpriced) > 0 {
		return assets, malformed(c.Name(), "no positive price for %s", strings.Join(unpriced, ","))
	}

	return assets, nil
}

// snapshotPrice prefers the last trade, then today's close, then the previous close.
func snapshotPrice(snap models.TickerSnapshot) float64 {
	for _, p := range []float64{snap.LastTrade.Price, snap.Day.Close, snap.PrevDay.Close} {
		if p > 0 {
			return p
		}
	}

	return 0
}

// ToPolygonTicker maps a registry symbol to its Polygon ticker.
// Forex pairs are prefixed with C:, crypto pairs with X: and quoted in USD.
func ToPolygonTicker(marketType types.MarketType, symbol string) string {
	switch marketType {
	case types.MarketTypeForex:
		return "C:" + symbol
	case types.MarketTypeCrypto:
		base := strings.TrimSuffix(strings.TrimSuffix(symbol, "USDT"), "USD")

		return fmt.Sprintf("X:%sUSD", base)
	default:
		return symbol
	}
}

func polygonLocale(marketType types.MarketType) models.MarketLocale {
	if marketType == types.MarketTypeStocks {
		return models.US
	}

	return models.Global
}

func polygonMarket(marketType types.MarketType) models.MarketType {
	switch marketType {
	case types.MarketTypeForex:
		return models.Forex
	case types.MarketTypeCrypto:
		return models.Crypto
	default:
		return models.Stocks
	}
}

func classifyPolygonError(err error) error {
	var apiErr *models.ErrorResponse
	if errors.As(err, &apiErr) {
		return fromStatus(string(ProviderPolygon), apiErr.StatusCode, err)
	}

	return unavailable(string(ProviderPolygon), err)
}
