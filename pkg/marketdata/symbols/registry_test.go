package symbols

import (
	"testing"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestNormalizesInput() {
	reg := NewRegistry(map[types.MarketType][]string{
		types.MarketTypeStocks: {" aapl", "MSFT", "AAPL", ""},
	})

	suite.Equal([]string{"AAPL", "MSFT"}, reg.Symbols(types.MarketTypeStocks))
	suite.True(reg.Contains(types.MarketTypeStocks, "msft"))
	suite.False(reg.Contains(types.MarketTypeCrypto, "MSFT"))
}

func (suite *RegistryTestSuite) TestInputIsCopied() {
	input := map[types.MarketType][]string{types.MarketTypeCrypto: {"BTCUSDT"}}
	reg := NewRegistry(input)
	input[types.MarketTypeCrypto][0] = "DOGEUSDT"

	suite.Equal([]string{"BTCUSDT"}, reg.Symbols(types.MarketTypeCrypto))

	out := reg.GetSymbolsForMarketType(types.MarketTypeCrypto)
	out[types.MarketTypeCrypto][0] = "ETHUSDT"
	suite.Equal([]string{"BTCUSDT"}, reg.Symbols(types.MarketTypeCrypto))
}

func (suite *RegistryTestSuite) TestUnknownCategoryIsEmpty() {
	reg := NewRegistry(map[types.MarketType][]string{types.MarketTypeForex: {"EURUSD"}})

	out := reg.GetSymbolsForMarketType(types.MarketTypeForex, types.MarketTypeStocks)
	suite.Equal([]string{"EURUSD"}, out[types.MarketTypeForex])
	suite.NotNil(out[types.MarketTypeStocks])
	suite.Empty(out[types.MarketTypeStocks])
}

func (suite *RegistryTestSuite) TestStableOrder() {
	reg := NewRegistry(map[types.MarketType][]string{
		types.MarketTypeCrypto: {"BTCUSDT", "ETHUSDT"},
		types.MarketTypeStocks: {"AAPL"},
		types.MarketTypeForex:  {"EURUSD"},
		"futures":              {"ES"},
	})

	suite.Equal([]types.MarketType{types.MarketTypeStocks, types.MarketTypeForex, types.MarketTypeCrypto, "futures"}, reg.MarketTypes())
	suite.Equal([]string{"AAPL", "EURUSD", "BTCUSDT", "ETHUSDT", "ES"}, reg.GetAllMarketSymbols())
}

func (suite *RegistryTestSuite) TestAllSymbolsDeduplicatesAcrossCategories() {
	reg := NewRegistry(map[types.MarketType][]string{
		types.MarketTypeStocks: {"COIN"},
		types.MarketTypeCrypto: {"COIN", "BTCUSDT"},
	})

	suite.Equal([]string{"COIN", "BTCUSDT"}, reg.GetAllMarketSymbols())
}

func (suite *RegistryTestSuite) TestDefaultRegistry() {
	reg := DefaultRegistry()
	suite.Len(reg.MarketTypes(), 3)
	suite.Contains(reg.Symbols(types.MarketTypeCrypto), "BTCUSDT")
	suite.Contains(reg.Symbols(types.MarketTypeForex), "EURUSD")
}
