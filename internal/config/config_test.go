package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/internal/version"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata/provider"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	for _, key := range []string{EnvLogLevel, EnvUserID, EnvPolygonAPIKey, EnvRESTQuotesAPIKey, EnvBackendURL, EnvBackendAPIKey, EnvBackendAccessToken, EnvStorageURL, EnvStorageAPIKey, EnvJournalDir} {
		suite.T().Setenv(key, "")
		suite.Require().NoError(os.Unsetenv(key))
	}
}

func (suite *ConfigTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]

		return v, ok
	}
}

func (suite *ConfigTestSuite) TestLoadYAMLWithEnvSecrets() {
	path := suite.write("config.yaml", `
log_level: debug
user_id: user-1
market_data:
  strategy: race
  provider_timeout: 2s
  poll_interval: 10s
  providers:
    - type: polygon
    - type: binance
    - type: rest
      name: backup
      base_url: https://quotes.example.com
      market_types: [forex]
  symbols:
    stocks: [aapl, msft]
    forex: [eurusd]
  fallback_prices:
    stocks:
      AAPL: 200
backend:
  base_url: https://project.example.com/functions/v1
`)
	envFile := suite.write(".env", "POLYGON_API_KEY=pk_live_123456\nBACKEND_ACCESS_TOKEN=token-1\n")

	cfg, err := Load(path, envFile)
	suite.Require().NoError(err)

	suite.Equal("debug", cfg.LogLevel)
	suite.Equal(marketdata.StrategyRace, cfg.MarketData.Strategy)
	suite.Equal(2*time.Second, cfg.MarketData.ProviderTimeout)
	suite.Equal(10*time.Second, cfg.MarketData.PollInterval)
	suite.Require().Len(cfg.MarketData.Providers, 3)
	suite.Equal("pk_live_123456", cfg.MarketData.Providers[0].APIKey)
	suite.Equal("token-1", cfg.Backend.AccessToken)
	suite.Equal(200.0, cfg.MarketData.FallbackPrices[types.MarketTypeStocks]["AAPL"])

	registry := cfg.Registry()
	suite.Equal([]string{"AAPL", "MSFT"}, registry.Symbols(types.MarketTypeStocks))

	providers, err := cfg.Providers()
	suite.Require().NoError(err)
	suite.Len(providers, 3)
	suite.Equal("backup", providers[2].Name())

	agg, err := cfg.NewAggregator(nil)
	suite.Require().NoError(err)
	suite.Equal(registry.MarketTypes(), agg.Registry().MarketTypes())
}

func (suite *ConfigTestSuite) TestMissingPolygonKeyIsInvalid() {
	path := suite.write("config.yaml", "market_data:\n  providers:\n    - type: polygon\n")

	_, err := Load(path, "")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestInvalidValues() {
	cases := map[string]string{
		"strategy":  "market_data:\n  strategy: fastest\n",
		"log level": "log_level: loud\n",
		"backend":   "backend:\n  base_url: not a url\n",
		"storage":   "storage:\n  base_url: https://s.example.com\n",
		"journal":   "journal:\n  enabled: true\n  dir: \"\"\n",
		"yaml":      "market_data: [\n",
	}

	for name, content := range cases {
		suite.Run(name, func() {
			_, err := Load(suite.write("bad.yaml", content), "")
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration), "got %v", err)
		})
	}
}

func (suite *ConfigTestSuite) TestConfigVersion() {
	original := version.Version
	defer func() { version.Version = original }()

	version.Version = "v1.2.0"

	_, err := Load(suite.write("old.yaml", "version: v1.1.3\n"), "")
	suite.NoError(err)

	_, err = Load(suite.write("new.yaml", "version: v1.4.0\n"), "")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration), "got %v", err)
}

func (suite *ConfigTestSuite) TestMissingFile() {
	_, err := Load(filepath.Join(suite.dir, "absent.yaml"), "")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestDefaultsWithoutFile() {
	cfg, err := Load("", filepath.Join(suite.dir, "absent.env"))
	suite.Require().NoError(err)

	suite.Equal("info", cfg.LogLevel)
	suite.Equal(marketdata.StrategySequential, cfg.MarketData.Strategy)
	suite.Require().Len(cfg.MarketData.Providers, 1)
	suite.Equal(provider.ProviderBinance, cfg.MarketData.Providers[0].Type)
	suite.Nil(cfg.Backend)
	suite.False(cfg.Journal.Enabled)
	suite.Equal(cfg.Registry().GetAllMarketSymbols(), cfg.Registry().GetAllMarketSymbols())
}

func (suite *ConfigTestSuite) TestDefaultProvidersPreferPolygonWhenKeyed() {
	cfg := Default()
	cfg.applyDefaults(env(map[string]string{EnvPolygonAPIKey: "key"}))

	suite.Require().Len(cfg.MarketData.Providers, 2)
	suite.Equal(provider.ProviderPolygon, cfg.MarketData.Providers[0].Type)
	suite.Equal(provider.ProviderBinance, cfg.MarketData.Providers[1].Type)
}

func (suite *ConfigTestSuite) TestEnvCreatesSections() {
	cfg := Default()
	cfg.applyEnv(env(map[string]string{
		EnvBackendURL:    "https://b.example.com",
		EnvBackendAPIKey: "anon",
		EnvStorageURL:    "https://s.example.com",
		EnvJournalDir:    "/tmp/journal",
		EnvUserID:        "user-7",
	}))

	suite.Require().NotNil(cfg.Backend)
	suite.Equal("https://b.example.com", cfg.Backend.BaseURL)
	suite.Equal("anon", cfg.Backend.APIKey)
	suite.Require().NotNil(cfg.Storage)
	suite.Equal("kyc", cfg.Storage.Bucket)
	suite.True(cfg.Journal.Enabled)
	suite.Equal("/tmp/journal", cfg.Journal.Dir)
	suite.Equal("user-7", cfg.UserID)
}

func (suite *ConfigTestSuite) TestSummaryMasksSecrets() {
	cfg := Default()
	cfg.MarketData.Providers = []provider.ProviderConfig{{Type: provider.ProviderPolygon, APIKey: "abcdefgh"}}
	cfg.applyEnv(env(map[string]string{EnvBackendURL: "https://b.example.com", EnvBackendAccessToken: "secret-token"}))

	summary := cfg.Summary()
	suite.Equal("****efgh", summary.MarketData.Providers[0].APIKey)
	suite.Equal("********oken", summary.Backend.AccessToken)
	suite.Equal("abcdefgh", cfg.MarketData.Providers[0].APIKey)
	suite.Equal("secret-token", cfg.Backend.AccessToken)
}

func (suite *ConfigTestSuite) TestSchema() {
	schema, err := GetSchema()
	suite.Require().NoError(err)
	suite.Contains(schema, "market_data")
	suite.Contains(schema, "provider_timeout")
}
