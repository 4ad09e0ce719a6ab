package portfolio

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type PnLTestSuite struct {
	suite.Suite
}

func TestPnLSuite(t *testing.T) {
	suite.Run(t, new(PnLTestSuite))
}

func (suite *PnLTestSuite) TestMarginRequired() {
	margin, err := MarginRequired(10, 100, 5)
	suite.NoError(err)
	suite.Equal(200.0, margin)

	margin, err = MarginRequired(1000, 1.0842, 30)
	suite.NoError(err)
	suite.InDelta(36.14, margin, 1e-9)
}

func (suite *PnLTestSuite) TestMarginRequiredRejectsBadInputs() {
	tests := []struct {
		name                      string
		quantity, price, leverage float64
		code                      errors.ErrorCode
	}{
		{"zero leverage", 1, 100, 0, errors.ErrCodeInvalidLeverage},
		{"negative leverage", 1, 100, -2, errors.ErrCodeInvalidLeverage},
		{"nan leverage", 1, 100, math.NaN(), errors.ErrCodeInvalidLeverage},
		{"zero quantity", 0, 100, 1, errors.ErrCodeInvalidQuantity},
		{"negative quantity", -1, 100, 1, errors.ErrCodeInvalidQuantity},
		{"zero price", 1, 0, 1, errors.ErrCodeInvalidPrice},
		{"infinite price", 1, math.Inf(1), 1, errors.ErrCodeInvalidPrice},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := MarginRequired(tt.quantity, tt.price, tt.leverage)
			suite.Equal(tt.code, errors.GetCode(err))
		})
	}
}

func (suite *PnLTestSuite) TestMarginRequiredMatchesFormula() {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		q := rng.Float64()*1000 + 0.001
		p := rng.Float64()*10000 + 0.0001
		l := rng.Float64()*100 + 0.01

		margin, err := MarginRequired(q, p, l)
		suite.Require().NoError(err)
		suite.InEpsilon(q*p/l, margin, 1e-9)
	}
}

func (suite *PnLTestSuite) TestUnrealizedPnLExamples() {
	buy := types.Position{Direction: types.DirectionBuy, EntryPrice: 100, Quantity: 10}
	sell := types.Position{Direction: types.DirectionSell, EntryPrice: 100, Quantity: 10}

	suite.Equal(15.0, UnrealizedPnL(buy, 101.5))
	suite.Equal(-15.0, UnrealizedPnL(sell, 101.5))
	suite.Equal(0.0, UnrealizedPnL(buy, 100))
	suite.Equal(60.0, UnrealizedPnL(sell, 94))
	suite.Equal(0.0, UnrealizedPnL(buy, math.NaN()))
}

func (suite *PnLTestSuite) TestUnrealizedPnLMatchesFormula() {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		entry := rng.Float64()*1000 + 0.01
		// deltas cover zero, negative and positive moves
		current := entry + (rng.Float64()-0.5)*entry
		if i%10 == 0 {
			current = entry
		}

		qty := rng.Float64()*100 + 0.001

		buy := types.Position{Direction: types.DirectionBuy, EntryPrice: entry, Quantity: qty}
		sell := types.Position{Direction: types.DirectionSell, EntryPrice: entry, Quantity: qty}

		suite.InDelta((current-entry)*qty, UnrealizedPnL(buy, current), 1e-6)
		suite.InDelta((entry-current)*qty, UnrealizedPnL(sell, current), 1e-6)
		suite.InDelta(0, UnrealizedPnL(buy, current)+UnrealizedPnL(sell, current), 1e-9)
	}
}

func (suite *PnLTestSuite) TestRealizedPnLIsExactForDecimalPrices() {
	suite.Equal(0.3, RealizedPnL(types.DirectionBuy, 0.1, 0.4, 1))
	suite.Equal(15.0, RealizedPnL(types.DirectionBuy, 100, 101.5, 10))
}

func (suite *PnLTestSuite) TestNotional() {
	suite.Equal(1015.0, Notional(10, 101.5))
	suite.Equal(0.0, Notional(math.Inf(1), 1))
}
