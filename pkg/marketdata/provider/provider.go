package provider

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// ProviderType defines the type of quote provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
	ProviderREST    ProviderType = "rest"
)

// Provider fetches live quotes for a set of categories from one external source.
//
// Implementations must be safe for concurrent use and must honour ctx.
// Categories with an empty symbol list are never queried. Symbols the source
// cannot resolve are left out of the result. A failing category does not
// discard the others: Fetch returns the assets it did quote together with a
// *PartialError naming the failed categories. Errors are *errors.Error (or a
// PartialError of them) with one of ErrCodeProviderUnavailable,
// ErrCodeRateLimited or ErrCodeMalformedResponse. Returned assets are valid
// whether or not err is nil.
type Provider interface {
	// Name is the value written to Asset.Source.
	Name() string
	// Supports reports whether the provider can quote the category at all.
	Supports(marketType types.MarketType) bool
	// Fetch returns quotes for the requested symbols of each category.
	// example:
	// Fetch(ctx, []types.MarketType{types.MarketTypeCrypto}, map[types.MarketType][]string{types.MarketTypeCrypto: {"BTCUSDT"}})
	Fetch(ctx context.Context, marketTypes []types.MarketType, symbols map[types.MarketType][]string) ([]types.Asset, error)
}

// NewQuoteProvider creates a quote provider from its configuration.
func NewQuoteProvider(config ProviderConfig) (Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case ProviderPolygon:
		return NewPolygonClient(config.APIKey)
	case ProviderBinance:
		return NewBinanceClient()
	case ProviderREST:
		return NewRESTClient(RESTClientConfig{
			Name:        config.Name,
			BaseURL:     config.BaseURL,
			APIKey:      config.APIKey,
			BatchSize:   config.BatchSize,
			MarketTypes: config.MarketTypes,
			Timeout:     config.Timeout,
		})
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported quote provider: %s", config.Type)
	}
}

// requested yields the categories of a Fetch call that are supported and have symbols.
func requested(p Provider, marketTypes []types.MarketType, symbols map[types.MarketType][]string) []types.MarketType {
	out := make([]types.MarketType, 0, len(marketTypes))
	for _, mt := range marketTypes {
		if !p.Supports(mt) || len(symbols[mt]) == 0 {
			continue
		}

		out = append(out, mt)
	}

	return out
}

// newAsset fills the common Asset fields for a live quote.
func newAsset(source string, marketType types.MarketType, symbol string, price float64, at time.Time) types.Asset {
	//nolint:exhaustruct // optional metadata is filled by the caller
	return types.Asset{
		Symbol:     symbol,
		MarketType: marketType,
		Price:      price,
		Source:     source,
		UpdatedAt:  at,
	}
}
