package marketdata

import (
	"slices"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata/provider"
)

// ProviderInfo contains metadata about a quote provider.
type ProviderInfo struct {
	Name         string             `json:"name"`
	DisplayName  string             `json:"displayName"`
	Description  string             `json:"description"`
	RequiresAuth bool               `json:"requiresAuth"`
	MarketTypes  []types.MarketType `json:"marketTypes"`
	// Priority is the default position in the fallback chain, lowest first.
	Priority int `json:"priority"`
}

// providerRegistry holds metadata about all supported providers.
var providerRegistry = map[provider.ProviderType]ProviderInfo{
	provider.ProviderPolygon: {
		Name:         string(provider.ProviderPolygon),
		DisplayName:  "Polygon.io",
		Description:  "Primary provider: full-market snapshots for US stocks, forex pairs and crypto",
		RequiresAuth: true,
		MarketTypes:  types.AllMarketTypes(),
		Priority:     0,
	},
	provider.ProviderBinance: {
		Name:         string(provider.ProviderBinance),
		DisplayName:  "Binance",
		Description:  "Cryptocurrency exchange 24h ticker statistics, no key required",
		RequiresAuth: false,
		MarketTypes:  []types.MarketType{types.MarketTypeCrypto},
		Priority:     1,
	},
	provider.ProviderREST: {
		Name:         string(provider.ProviderREST),
		DisplayName:  "REST endpoint",
		Description:  "Generic JSON quote endpoint used as a configurable backup",
		RequiresAuth: false,
		MarketTypes:  types.AllMarketTypes(),
		Priority:     2,
	},
}

// GetSupportedProviders returns all supported provider names in default priority order.
func GetSupportedProviders() []string {
	infos := make([]ProviderInfo, 0, len(providerRegistry))
	for _, info := range providerRegistry {
		infos = append(infos, info)
	}

	slices.SortFunc(infos, func(a, b ProviderInfo) int { return a.Priority - b.Priority })

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}

	return names
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[provider.ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}

	info.MarketTypes = slices.Clone(info.MarketTypes)

	return info, nil
}

// GetProviderConfigSchema returns the JSON schema for a provider's configuration.
func GetProviderConfigSchema(providerName string) (string, error) {
	return provider.GetConfigSchema(providerName)
}
