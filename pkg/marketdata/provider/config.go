package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/utils"
)

// ProviderConfig is the configuration of one entry in the provider priority list.
type ProviderConfig struct {
	Type ProviderType `json:"type" yaml:"type" jsonschema:"title=Type,description=Provider implementation,required,enum=polygon,enum=binance,enum=rest" validate:"required,oneof=polygon binance rest"`
	// Name overrides the source tag for REST providers.
	Name        string             `json:"name,omitempty" yaml:"name,omitempty" jsonschema:"title=Name,description=Source tag for assets from this provider"`
	APIKey      string             `json:"apiKey,omitempty" yaml:"api_key,omitempty" jsonschema:"title=API Key,description=Credential for the provider" keychain:"true" validate:"required_if=Type polygon"`
	BaseURL     string             `json:"baseUrl,omitempty" yaml:"base_url,omitempty" jsonschema:"title=Base URL,description=Quote endpoint base URL" validate:"omitempty,url"`
	BatchSize   int                `json:"batchSize,omitempty" yaml:"batch_size,omitempty" jsonschema:"title=Batch Size,description=Maximum symbols per request,minimum=0" validate:"gte=0"`
	MarketTypes []types.MarketType `json:"marketTypes,omitempty" yaml:"market_types,omitempty" jsonschema:"title=Market Types,description=Categories a REST provider serves" validate:"dive,oneof=stocks forex crypto"`
	Timeout     time.Duration      `json:"timeout,omitempty" yaml:"timeout,omitempty" jsonschema:"title=Timeout,description=HTTP client timeout" validate:"gte=0"`
}

// PolygonConfig is the user-facing configuration of the Polygon.io adapter.
type PolygonConfig struct {
	ApiKey string `json:"apiKey" jsonschema:"title=API Key,description=Polygon.io API key for authentication,required" keychain:"true" validate:"required"`
}

// BinanceConfig is the user-facing configuration of the Binance adapter.
// Public market data does not require authentication.
type BinanceConfig struct{}

// RESTConfig is the user-facing configuration of a generic REST quote endpoint.
type RESTConfig struct {
	Name        string             `json:"name" jsonschema:"title=Name,description=Source tag for assets from this provider,required" validate:"required"`
	BaseURL     string             `json:"baseUrl" jsonschema:"title=Base URL,description=Endpoint base URL; quotes are read from GET {baseUrl}/quotes,required" validate:"required,url"`
	ApiKey      string             `json:"apiKey,omitempty" jsonschema:"title=API Key,description=Optional bearer token" keychain:"true"`
	BatchSize   int                `json:"batchSize,omitempty" jsonschema:"title=Batch Size,description=Maximum symbols per request,minimum=0" validate:"gte=0"`
	MarketTypes []types.MarketType `json:"marketTypes" jsonschema:"title=Market Types,description=Categories served by this endpoint,required" validate:"required,min=1,dive,oneof=stocks forex crypto"`
}

// Validate validates the ProviderConfig struct.
func (c *ProviderConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid provider config", err)
	}

	if c.Type == ProviderREST && c.BaseURL == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "rest provider requires base_url")
	}

	return nil
}

// GetConfigSchema returns the JSON schema for a provider's configuration.
func GetConfigSchema(providerName string) (string, error) {
	switch ProviderType(providerName) {
	case ProviderPolygon:
		//nolint:exhaustruct // Empty struct is intentional for schema generation
		return utils.GetSchemaFromConfig(PolygonConfig{})
	case ProviderBinance:
		return utils.GetSchemaFromConfig(BinanceConfig{})
	case ProviderREST:
		//nolint:exhaustruct // Empty struct is intentional for schema generation
		return utils.GetSchemaFromConfig(RESTConfig{})
	default:
		return "", errors.Newf(errors.ErrCodeInvalidProvider, "unsupported quote provider: %s", providerName)
	}
}

// ParseConfig parses a JSON configuration for the given provider into a ProviderConfig.
func ParseConfig(providerName string, jsonConfig string) (ProviderConfig, error) {
	//nolint:exhaustruct // filled per provider below
	config := ProviderConfig{Type: ProviderType(providerName)}

	switch config.Type {
	case ProviderPolygon:
		var parsed PolygonConfig
		if err := json.Unmarshal([]byte(jsonConfig), &parsed); err != nil {
			return config, fmt.Errorf("failed to parse JSON config: %w", err)
		}

		config.APIKey = parsed.ApiKey
	case ProviderBinance:
	case ProviderREST:
		var parsed RESTConfig
		if err := json.Unmarshal([]byte(jsonConfig), &parsed); err != nil {
			return config, fmt.Errorf("failed to parse JSON config: %w", err)
		}

		if err := validator.New().Struct(parsed); err != nil {
			return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid rest provider config", err)
		}

		config.Name = parsed.Name
		config.BaseURL = parsed.BaseURL
		config.APIKey = parsed.ApiKey
		config.BatchSize = parsed.BatchSize
		config.MarketTypes = parsed.MarketTypes
	default:
		return config, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported quote provider: %s", providerName)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}
