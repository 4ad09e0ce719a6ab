package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// MarketType is the category tag a symbol is listed under.
type MarketType string

const (
	MarketTypeStocks MarketType = "stocks"
	MarketTypeForex  MarketType = "forex"
	MarketTypeCrypto MarketType = "crypto"
)

// SourceFallback tags assets produced from static fallback data instead of a live provider.
const SourceFallback = "fallback"

// AllMarketTypes lists the supported categories in display order.
func AllMarketTypes() []MarketType {
	return []MarketType{MarketTypeStocks, MarketTypeForex, MarketTypeCrypto}
}

// ParseMarketType parses a category name case-insensitively.
func ParseMarketType(raw string) (MarketType, error) {
	mt := MarketType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllMarketTypes() {
		if mt == known {
			return mt, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeUnsupportedMarketType, "unsupported market type: %q", raw)
}

// AssetKey identifies a quoted instrument. Symbols are only unique within a market type.
type AssetKey struct {
	MarketType MarketType `json:"market_type" yaml:"market_type"`
	Symbol     string     `json:"symbol" yaml:"symbol"`
}

func (k AssetKey) String() string {
	return fmt.Sprintf("%s:%s", k.MarketType, k.Symbol)
}

// Asset is an immutable quote snapshot. A new value is produced on every aggregation cycle.
type Asset struct {
	Symbol     string     `json:"symbol" yaml:"symbol" validate:"required"`
	MarketType MarketType `json:"market_type" yaml:"market_type" validate:"required,oneof=stocks forex crypto"`
	Price      float64    `json:"price" yaml:"price" validate:"gt=0"`
	// Name is the display name reported by the provider, if any.
	Name optional.Option[string] `json:"name" yaml:"name"`
	// ChangePercent is the session change in percent, if the provider reports one.
	ChangePercent optional.Option[float64] `json:"change_percent" yaml:"change_percent"`
	// Source is the provider name, or SourceFallback for static substitute data.
	Source    string    `json:"source" yaml:"source" validate:"required"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Key returns the (market type, symbol) identity of the asset.
func (a Asset) Key() AssetKey {
	return AssetKey{MarketType: a.MarketType, Symbol: a.Symbol}
}

// IsFallback reports whether the asset carries fallback data rather than a live quote.
func (a Asset) IsFallback() bool {
	return a.Source == SourceFallback
}

// Validate checks the asset shape. Adapters wrap failures as malformed responses.
func (a *Asset) Validate() error {
	if err := validate.Struct(a); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid asset", err)
	}

	return nil
}
