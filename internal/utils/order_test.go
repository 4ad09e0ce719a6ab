package utils

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsTestSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestCalculateMaxQuantity() {
	tests := []struct {
		name        string
		freeMargin  float64
		price       float64
		leverage    float64
		precision   int
		expectedQty float64
	}{
		{
			name:        "Unleveraged whole shares",
			freeMargin:  1000.0,
			price:       100.0,
			leverage:    1,
			expectedQty: 10,
		},
		{
			name:        "Leverage multiplies buying power",
			freeMargin:  1000.0,
			price:       100.0,
			leverage:    5,
			expectedQty: 50,
		},
		{
			name:        "Whole shares round down",
			freeMargin:  1050.0,
			price:       100.0,
			leverage:    1,
			expectedQty: 10,
		},
		{
			name:        "Fractional precision",
			freeMargin:  1000.0,
			price:       65000.0,
			leverage:    2,
			precision:   6,
			expectedQty: 0.030769,
		},
		{
			name:        "Zero margin",
			freeMargin:  0.0,
			price:       100.0,
			leverage:    1,
			expectedQty: 0,
		},
		{
			name:        "Zero price",
			freeMargin:  1000.0,
			price:       0.0,
			leverage:    1,
			expectedQty: 0,
		},
		{
			name:        "Zero leverage",
			freeMargin:  1000.0,
			price:       100.0,
			leverage:    0,
			expectedQty: 0,
		},
		{
			name:        "Margin less than one share",
			freeMargin:  50.0,
			price:       100.0,
			leverage:    1,
			expectedQty: 0,
		},
		{
			name:        "Infinite margin",
			freeMargin:  math.Inf(1),
			price:       100.0,
			leverage:    1,
			expectedQty: 0,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			qty := CalculateMaxQuantity(tc.freeMargin, tc.price, tc.leverage, tc.precision)
			suite.InDelta(tc.expectedQty, qty, 1e-9, "Quantity mismatch")
			suite.LessOrEqual(qty*tc.price/math.Max(tc.leverage, 1), tc.freeMargin+1e-9)
		})
	}
}

func (suite *UtilsTestSuite) TestCalculateOrderQuantityByPercentage() {
	tests := []struct {
		name        string
		freeMargin  float64
		price       float64
		leverage    float64
		percentage  float64
		expectedQty float64
	}{
		{
			name:        "Half the margin",
			freeMargin:  1000.0,
			price:       100.0,
			leverage:    1,
			percentage:  0.5,
			expectedQty: 5,
		},
		{
			name:        "Percentage capped at the whole margin",
			freeMargin:  1000.0,
			price:       100.0,
			leverage:    1,
			percentage:  3,
			expectedQty: 10,
		},
		{
			name:        "Non-positive percentage",
			freeMargin:  1000.0,
			price:       100.0,
			leverage:    1,
			percentage:  0,
			expectedQty: 0,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			qty := CalculateOrderQuantityByPercentage(tc.freeMargin, tc.price, tc.leverage, tc.percentage, 0)
			suite.InDelta(tc.expectedQty, qty, 1e-9, "Quantity mismatch")
		})
	}
}

func (suite *UtilsTestSuite) TestRoundToDecimalPrecision() {
	suite.InDelta(1.23, RoundToDecimalPrecision(1.239, 2), 1e-12)
	suite.InDelta(7.0, RoundToDecimalPrecision(7.99, 0), 1e-12)
}

func (suite *UtilsTestSuite) TestQuantityPrecision() {
	suite.Equal(0, QuantityPrecision(types.MarketTypeStocks))
	suite.Equal(2, QuantityPrecision(types.MarketTypeForex))
	suite.Equal(6, QuantityPrecision(types.MarketTypeCrypto))
}
