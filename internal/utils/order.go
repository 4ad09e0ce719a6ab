package utils

import (
	"math"

	"github.com/rxtech-lab/argo-retail/internal/types"
)

// CalculateMaxQuantity calculates the largest quantity whose margin fits in
// freeMargin at the given price and leverage, respecting decimal precision.
func CalculateMaxQuantity(freeMargin float64, price float64, leverage float64, decimalPrecision int) float64 {
	if price <= 0 || freeMargin <= 0 || leverage <= 0 {
		return 0
	}

	if math.IsInf(freeMargin, 0) || math.IsNaN(freeMargin) || math.IsInf(price, 0) || math.IsNaN(price) {
		return 0
	}

	maxQty := RoundToDecimalPrecision(freeMargin*leverage/price, decimalPrecision)

	// Flooring can still leave the margin a hair above freeMargin through float error.
	step := math.Pow10(-decimalPrecision)
	for maxQty > 0 && maxQty*price/leverage > freeMargin {
		maxQty = RoundToDecimalPrecision(maxQty-step, decimalPrecision)
	}

	return math.Max(maxQty, 0)
}

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// CalculateOrderQuantityByPercentage sizes an order to use the given fraction
// of the free margin.
func CalculateOrderQuantityByPercentage(freeMargin float64, price float64, leverage float64, percentage float64, decimalPrecision int) float64 {
	if percentage <= 0 {
		return 0
	}

	return CalculateMaxQuantity(freeMargin*math.Min(percentage, 1), price, leverage, decimalPrecision)
}

// QuantityPrecision is the number of quantity decimals used for sizing per
// market type. Stocks trade in whole shares.
func QuantityPrecision(marketType types.MarketType) int {
	switch marketType {
	case types.MarketTypeCrypto:
		return 6
	case types.MarketTypeForex:
		return 2
	default:
		return 0
	}
}
