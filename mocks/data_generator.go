package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-retail/internal/types"
)

// DataGenerator generates realistic quote batches for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how quote batches are generated.
type GeneratorConfig struct {
	// Assets are the instruments quoted in every batch
	Assets []types.AssetKey
	// Source is the provider name stamped on every asset
	Source string
	// StartTime is the time of the first batch
	StartTime time.Time
	// Interval is the duration between batches
	Interval time.Duration
	// Count is the number of batches to generate
	Count int
	// InitialPrice is the starting price of every asset
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per batch)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// FirstSequence is the sequence of the first batch
	FirstSequence uint64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Assets:        []types.AssetKey{{MarketType: types.MarketTypeStocks, Symbol: "TEST"}},
		Source:        "mock",
		StartTime:     time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:      time.Second,
		Count:         10000,
		InitialPrice:  100.0,
		Volatility:    0.002, // 0.2% per batch
		Trend:         0.0,   // neutral
		FirstSequence: 1,
	}
}

// Generate creates a series of quote batches based on the configuration.
// Each asset follows its own geometric Brownian motion path.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.QuoteBatch {
	batches := make([]types.QuoteBatch, config.Count)
	prices := make([]float64, len(config.Assets))

	for i := range prices {
		prices[i] = config.InitialPrice
	}

	currentTime := config.StartTime

	for i := range config.Count {
		assets := make([]types.Asset, len(config.Assets))

		for j, key := range config.Assets {
			prices[j] = g.Step(prices[j], config.Volatility, config.Trend/float64(config.Count))
			assets[j] = types.Asset{
				Symbol:     key.Symbol,
				MarketType: key.MarketType,
				Price:      roundToDecimals(prices[j], 4),
				Source:     config.Source,
				UpdatedAt:  currentTime,
			}
		}

		batches[i] = types.QuoteBatch{
			Sequence: config.FirstSequence + uint64(i),
			At:       currentTime,
			Assets:   assets,
		}

		currentTime = currentTime.Add(config.Interval)
	}

	return batches
}

// Step advances a single price by one random-walk step with the given
// volatility and drift.
func (g *DataGenerator) Step(price, volatility, drift float64) float64 {
	// Box-Muller transform for a normal sample
	u1 := g.rng.Float64()
	u2 := g.rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	next := price * (1 + volatility*z + drift)
	if next <= 0 {
		next = price * 0.99 // Prevent negative prices
	}

	return next
}

// GenerateMultiSymbol generates batches where each asset starts from a
// slightly different price.
func (g *DataGenerator) GenerateMultiSymbol(keys []types.AssetKey, baseConfig GeneratorConfig) []types.QuoteBatch {
	config := baseConfig
	config.Assets = keys
	batches := g.Generate(config)

	scale := make([]float64, len(keys))
	for i := range scale {
		scale[i] = 0.8 + g.rng.Float64()*0.4
	}

	for i := range batches {
		for j := range batches[i].Assets {
			batches[i].Assets[j].Price = roundToDecimals(batches[i].Assets[j].Price*scale[j], 4)
		}
	}

	return batches
}

// Generate10K is a convenience function to generate 10,000 batches
// with default settings for benchmarking.
func Generate10K(symbol string) []types.QuoteBatch {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Assets = []types.AssetKey{{MarketType: types.MarketTypeStocks, Symbol: symbol}}
	config.Count = 10000

	return gen.Generate(config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
