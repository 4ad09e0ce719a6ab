// Package config loads the application configuration from a YAML file,
// an optional .env file, and environment variables. Secrets are expected
// to come from the environment; the file may leave them empty.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/internal/storage"
	"github.com/rxtech-lab/argo-retail/internal/trading/backend"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/internal/version"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata/symbols"
	"github.com/rxtech-lab/argo-retail/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvLogLevel           = "LOG_LEVEL"
	EnvUserID             = "ARGO_USER_ID"
	EnvPolygonAPIKey      = "POLYGON_API_KEY"
	EnvRESTQuotesAPIKey   = "REST_QUOTES_API_KEY"
	EnvBackendURL         = "BACKEND_URL"
	EnvBackendAPIKey      = "BACKEND_API_KEY"
	EnvBackendAccessToken = "BACKEND_ACCESS_TOKEN"
	EnvStorageURL         = "STORAGE_URL"
	EnvStorageAPIKey      = "STORAGE_API_KEY"
	EnvJournalDir         = "JOURNAL_DIR"
)

// Config is the root configuration.
type Config struct {
	// Version is the app version the file was written for. Empty skips the check.
	Version    string              `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Config Version"`
	LogLevel   string              `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn error"`
	UserID     string              `yaml:"user_id" json:"user_id" jsonschema:"title=User ID"`
	MarketData MarketDataConfig    `yaml:"market_data" json:"market_data" jsonschema:"title=Market Data"`
	Backend    *backend.EdgeConfig `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"title=Trade Backend"`
	Storage    *storage.Config     `yaml:"storage,omitempty" json:"storage,omitempty" jsonschema:"title=Document Storage"`
	Journal    JournalConfig       `yaml:"journal" json:"journal" jsonschema:"title=Session Journal"`
}

// MarketDataConfig configures the aggregator and its providers.
type MarketDataConfig struct {
	Strategy        marketdata.Strategy           `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy,enum=sequential,enum=race" validate:"omitempty,oneof=sequential race"`
	ProviderTimeout time.Duration                 `yaml:"provider_timeout" json:"provider_timeout" jsonschema:"title=Provider Timeout" validate:"gte=0"`
	PollInterval    time.Duration                 `yaml:"poll_interval" json:"poll_interval" jsonschema:"title=Poll Interval" validate:"gte=0"`
	Providers       []provider.ProviderConfig     `yaml:"providers" json:"providers" jsonschema:"title=Providers,description=Priority order; first entry is asked first" validate:"dive"`
	Symbols         map[types.MarketType][]string `yaml:"symbols,omitempty" json:"symbols,omitempty" jsonschema:"title=Symbols,description=Replaces the built-in universe when set"`
	FallbackPrices  marketdata.FallbackPrices     `yaml:"fallback_prices,omitempty" json:"fallback_prices,omitempty" jsonschema:"title=Fallback Prices"`
}

// JournalConfig configures the local session journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" jsonschema:"title=Enabled"`
	Dir     string `yaml:"dir" json:"dir" jsonschema:"title=Directory" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		MarketData: MarketDataConfig{
			Strategy:        marketdata.StrategySequential,
			ProviderTimeout: marketdata.DefaultProviderTimeout,
			PollInterval:    marketdata.DefaultPollInterval,
		},
		Journal: JournalConfig{Dir: "data/journal"},
	}
}

// Load reads envFile (if it exists), then the YAML file at path (if set),
// then applies environment overrides and validates the result.
func Load(path string, envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load %s", envFile)
			}
		}
	}

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
		}

		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv fills secrets and endpoints from the environment. Environment
// values win over the file.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvLogLevel, &c.LogLevel)
	set(EnvUserID, &c.UserID)

	for i := range c.MarketData.Providers {
		p := &c.MarketData.Providers[i]

		switch p.Type {
		case provider.ProviderPolygon:
			set(EnvPolygonAPIKey, &p.APIKey)
		case provider.ProviderREST:
			set(EnvRESTQuotesAPIKey, &p.APIKey)
		default:
		}
	}

	if url, ok := lookup(EnvBackendURL); ok && url != "" && c.Backend == nil {
		c.Backend = &backend.EdgeConfig{}
	}

	if c.Backend != nil {
		set(EnvBackendURL, &c.Backend.BaseURL)
		set(EnvBackendAPIKey, &c.Backend.APIKey)
		set(EnvBackendAccessToken, &c.Backend.AccessToken)
	}

	if url, ok := lookup(EnvStorageURL); ok && url != "" && c.Storage == nil {
		c.Storage = &storage.Config{Bucket: "kyc"}
	}

	if c.Storage != nil {
		set(EnvStorageURL, &c.Storage.BaseURL)
		set(EnvStorageAPIKey, &c.Storage.APIKey)
	}

	if dir, ok := lookup(EnvJournalDir); ok && dir != "" {
		c.Journal.Dir = dir
		c.Journal.Enabled = true
	}
}

// applyDefaults supplies a provider list when none is configured: Polygon
// when a key is available, then Binance, which needs no credentials.
func (c *Config) applyDefaults(lookup func(string) (string, bool)) {
	if len(c.MarketData.Providers) > 0 {
		return
	}

	if key, ok := lookup(EnvPolygonAPIKey); ok && key != "" {
		c.MarketData.Providers = append(c.MarketData.Providers, provider.ProviderConfig{Type: provider.ProviderPolygon, APIKey: key})
	}

	c.MarketData.Providers = append(c.MarketData.Providers, provider.ProviderConfig{Type: provider.ProviderBinance})
}

// Validate checks the whole tree, including each provider entry.
func (c *Config) Validate() error {
	if err := version.CheckConfigCompatibility(version.GetVersion(), c.Version); err != nil {
		return err
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	for i := range c.MarketData.Providers {
		if err := c.MarketData.Providers[i].Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "market_data.providers[%d]", i)
		}
	}

	return nil
}

// Registry builds the symbol registry from the configured universe.
func (c *Config) Registry() *symbols.Registry {
	if len(c.MarketData.Symbols) == 0 {
		return symbols.DefaultRegistry()
	}

	return symbols.NewRegistry(c.MarketData.Symbols)
}

// Providers builds the quote providers in priority order.
func (c *Config) Providers() ([]provider.Provider, error) {
	providers := make([]provider.Provider, 0, len(c.MarketData.Providers))

	for _, pc := range c.MarketData.Providers {
		p, err := provider.NewQuoteProvider(pc)
		if err != nil {
			return nil, err
		}

		providers = append(providers, p)
	}

	return providers, nil
}

// NewAggregator wires the registry and providers into an aggregator.
func (c *Config) NewAggregator(log *logger.Logger) (*marketdata.Aggregator, error) {
	providers, err := c.Providers()
	if err != nil {
		return nil, err
	}

	opts := []marketdata.Option{
		marketdata.WithProviderTimeout(c.MarketData.ProviderTimeout),
		marketdata.WithLogger(log),
	}

	if c.MarketData.Strategy != "" {
		opts = append(opts, marketdata.WithStrategy(c.MarketData.Strategy))
	}

	if len(c.MarketData.FallbackPrices) > 0 {
		opts = append(opts, marketdata.WithFallbackPrices(c.MarketData.FallbackPrices))
	}

	return marketdata.NewAggregator(c.Registry(), providers, opts...), nil
}

// Summary returns a copy safe to print, with secrets masked.
func (c *Config) Summary() Config {
	out := *c
	out.MarketData.Providers = make([]provider.ProviderConfig, len(c.MarketData.Providers))

	for i, p := range c.MarketData.Providers {
		p.APIKey = utils.MaskSecret(p.APIKey)
		out.MarketData.Providers[i] = p
	}

	if c.Backend != nil {
		b := *c.Backend
		b.APIKey = utils.MaskSecret(b.APIKey)
		b.AccessToken = utils.MaskSecret(b.AccessToken)
		out.Backend = &b
	}

	if c.Storage != nil {
		s := *c.Storage
		s.APIKey = utils.MaskSecret(s.APIKey)
		s.AccessToken = utils.MaskSecret(s.AccessToken)
		out.Storage = &s
	}

	return out
}

// GetSchema returns the JSON schema of the configuration file.
func GetSchema() (string, error) {
	//nolint:exhaustruct // empty struct for schema generation
	return utils.GetSchemaFromConfig(Config{})
}
