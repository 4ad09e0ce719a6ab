// Package symbols holds the tradable universe grouped by market category.
package symbols

import (
	"slices"
	"strings"

	"github.com/rxtech-lab/argo-retail/internal/types"
)

// Registry is an immutable mapping from market category to its ordered symbol list.
// It performs no I/O and is safe for concurrent use.
type Registry struct {
	order   []types.MarketType
	symbols map[types.MarketType][]string
}

// NewRegistry builds a registry from the given universe. Symbols are trimmed,
// upper-cased and de-duplicated per category; first occurrence wins the position.
// Categories are ordered by AllMarketTypes first, then any others alphabetically.
func NewRegistry(universe map[types.MarketType][]string) *Registry {
	r := &Registry{
		order:   make([]types.MarketType, 0, len(universe)),
		symbols: make(map[types.MarketType][]string, len(universe)),
	}

	for mt, list := range universe {
		seen := make(map[string]struct{}, len(list))
		cleaned := make([]string, 0, len(list))

		for _, raw := range list {
			sym := strings.ToUpper(strings.TrimSpace(raw))
			if sym == "" {
				continue
			}

			if _, dup := seen[sym]; dup {
				continue
			}

			seen[sym] = struct{}{}
			cleaned = append(cleaned, sym)
		}

		r.symbols[mt] = cleaned
	}

	for _, mt := range types.AllMarketTypes() {
		if _, ok := r.symbols[mt]; ok {
			r.order = append(r.order, mt)
		}
	}

	var extra []types.MarketType

	for mt := range r.symbols {
		if !slices.Contains(r.order, mt) {
			extra = append(extra, mt)
		}
	}

	slices.Sort(extra)
	r.order = append(r.order, extra...)

	return r
}

// MarketTypes returns the configured categories in stable order.
func (r *Registry) MarketTypes() []types.MarketType {
	return slices.Clone(r.order)
}

// Symbols returns a copy of the symbols for a single category, or nil if unknown.
func (r *Registry) Symbols(marketType types.MarketType) []string {
	return slices.Clone(r.symbols[marketType])
}

// Contains reports whether symbol is listed under marketType.
func (r *Registry) Contains(marketType types.MarketType, symbol string) bool {
	return slices.Contains(r.symbols[marketType], strings.ToUpper(symbol))
}

// GetSymbolsForMarketType returns the symbols for each requested category.
// Unknown categories map to an empty list.
func (r *Registry) GetSymbolsForMarketType(marketTypes ...types.MarketType) map[types.MarketType][]string {
	out := make(map[types.MarketType][]string, len(marketTypes))
	for _, mt := range marketTypes {
		list := slices.Clone(r.symbols[mt])
		if list == nil {
			list = []string{}
		}

		out[mt] = list
	}

	return out
}

// GetAllMarketSymbols returns every symbol across categories, de-duplicated,
// in category order then symbol order.
func (r *Registry) GetAllMarketSymbols() []string {
	seen := make(map[string]struct{})
	all := make([]string, 0)

	for _, mt := range r.order {
		for _, sym := range r.symbols[mt] {
			if _, dup := seen[sym]; dup {
				continue
			}

			seen[sym] = struct{}{}
			all = append(all, sym)
		}
	}

	return all
}

// DefaultRegistry returns the built-in universe used when configuration supplies none.
func DefaultRegistry() *Registry {
	return NewRegistry(map[types.MarketType][]string{
		types.MarketTypeStocks: {"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "META", "SPY"},
		types.MarketTypeForex:  {"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD", "USDCHF"},
		types.MarketTypeCrypto: {"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT", "XRPUSDT"},
	})
}
