package marketdata

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata/symbols"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Strategy selects how the aggregator calls its providers.
type Strategy string

const (
	// StrategySequential asks providers one at a time in priority order and
	// stops once every requested symbol is resolved.
	StrategySequential Strategy = "sequential"
	// StrategyRace asks every supporting provider at once and cancels the
	// rest as soon as the collected results cover the request.
	StrategyRace Strategy = "race"
)

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 5 * time.Second

// Fetcher is anything that can produce a quote set for categories.
type Fetcher interface {
	Fetch(ctx context.Context, marketTypes ...types.MarketType) []types.Asset
}

// Attempt records the outcome of one provider call during a fetch.
type Attempt struct {
	Provider string
	// Requested is the number of symbols asked for.
	Requested int
	// Accepted is the number of assets kept after merging.
	Accepted int
	Err      error
	Duration time.Duration
}

// Result is a fetch outcome with its per-provider attempts.
type Result struct {
	Assets   []types.Asset
	Attempts []Attempt
	// Fallbacks is the number of assets substituted with fallback data.
	Fallbacks int
}

// Aggregator resolves quotes for categories across an ordered provider list.
// Provider failures never reach the caller; unresolved symbols degrade to
// fallback-tagged assets.
type Aggregator struct {
	registry  *symbols.Registry
	providers []provider.Provider
	timeout   time.Duration
	strategy  Strategy
	fallback  FallbackPrices
	logger    *logger.Logger
	now       func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithProviderTimeout bounds each provider call. Non-positive values are ignored.
func WithProviderTimeout(timeout time.Duration) Option {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithStrategy selects sequential or race fan-out.
func WithStrategy(strategy Strategy) Option {
	return func(a *Aggregator) {
		if strategy == StrategyRace || strategy == StrategySequential {
			a.strategy = strategy
		}
	}
}

// WithFallbackPrices sets the configured static prices used before the built-in table.
func WithFallbackPrices(prices FallbackPrices) Option {
	return func(a *Aggregator) {
		a.fallback = prices
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l.Named("aggregator")
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an aggregator. Providers are tried in slice order.
// A nil registry uses the built-in universe.
func NewAggregator(registry *symbols.Registry, providers []provider.Provider, opts ...Option) *Aggregator {
	if registry == nil {
		registry = symbols.DefaultRegistry()
	}

	a := &Aggregator{
		registry:  registry,
		providers: slices.Clone(providers),
		timeout:   DefaultProviderTimeout,
		strategy:  StrategySequential,
		fallback:  FallbackPrices{},
		logger:    logger.NewNopLogger(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Registry returns the symbol universe the aggregator resolves against.
func (a *Aggregator) Registry() *symbols.Registry {
	return a.registry
}

// Fetch returns one asset per registry symbol of each requested category, in
// request order then registry order. It never fails; see FetchResult.
func (a *Aggregator) Fetch(ctx context.Context, marketTypes ...types.MarketType) []types.Asset {
	return a.FetchResult(ctx, marketTypes...).Assets
}

// FetchResult is Fetch with per-provider diagnostics.
func (a *Aggregator) FetchResult(ctx context.Context, marketTypes ...types.MarketType) Result {
	order := dedupe(marketTypes)
	want := a.registry.GetSymbolsForMarketType(order...)

	var attempts []Attempt

	var resolved map[types.AssetKey]types.Asset

	switch a.strategy {
	case StrategyRace:
		resolved, attempts = a.race(ctx, order, want)
	default:
		resolved, attempts = a.sequential(ctx, order, want)
	}

	at := a.now()
	result := Result{Attempts: attempts}

	for _, mt := range order {
		for _, sym := range want[mt] {
			if asset, ok := resolved[types.AssetKey{MarketType: mt, Symbol: sym}]; ok {
				result.Assets = append(result.Assets, asset)

				continue
			}

			result.Assets = append(result.Assets, a.fallback.fallbackAsset(mt, sym, at))
			result.Fallbacks++
		}
	}

	if result.Fallbacks > 0 {
		a.logger.Warn("serving fallback quotes",
			zap.Int("fallbacks", result.Fallbacks),
			zap.Int("total", len(result.Assets)),
		)
	}

	return result
}

func (a *Aggregator) sequential(ctx context.Context, order []types.MarketType, want map[types.MarketType][]string) (map[types.AssetKey]types.Asset, []Attempt) {
	resolved := make(map[types.AssetKey]types.Asset)

	var attempts []Attempt

	for _, p := range a.providers {
		reqTypes, req := missingFor(p, order, want, resolved)
		if len(reqTypes) == 0 {
			continue
		}

		assets, attempt := a.attempt(ctx, p, reqTypes, req)
		attempt.Accepted = merge(resolved, assets, req)

		attempts = append(attempts, attempt)

		if complete(order, want, resolved) {
			break
		}
	}

	return resolved, attempts
}

func (a *Aggregator) race(ctx context.Context, order []types.MarketType, want map[types.MarketType][]string) (map[types.AssetKey]types.Asset, []Attempt) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	empty := map[types.AssetKey]types.Asset{}
	results := make([][]types.Asset, len(a.providers))
	attempts := make([]*Attempt, len(a.providers))
	requests := make([]map[types.MarketType][]string, len(a.providers))
	covered := make(map[types.AssetKey]types.Asset)

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(raceCtx)

	for i, p := range a.providers {
		reqTypes, req := missingFor(p, order, want, empty)
		if len(reqTypes) == 0 {
			continue
		}

		requests[i] = req

		g.Go(func() error {
			assets, attempt := a.attempt(gctx, p, reqTypes, req)

			mu.Lock()
			defer mu.Unlock()

			attempts[i] = &attempt
			results[i] = assets
			merge(covered, assets, req)

			if complete(order, want, covered) {
				cancel()
			}

			return nil
		})
	}

	_ = g.Wait()

	resolved := make(map[types.AssetKey]types.Asset)
	out := make([]Attempt, 0, len(a.providers))

	for i := range a.providers {
		if attempts[i] == nil {
			continue
		}

		attempts[i].Accepted = merge(resolved, results[i], requests[i])

		out = append(out, *attempts[i])
	}

	return resolved, out
}

// attempt runs one bounded provider call. A provider that ignores its context
// is abandoned when the deadline passes.
func (a *Aggregator) attempt(ctx context.Context, p provider.Provider, marketTypes []types.MarketType, req map[types.MarketType][]string) ([]types.Asset, Attempt) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	attempt := Attempt{Provider: p.Name()}
	for _, list := range req {
		attempt.Requested += len(list)
	}

	type outcome struct {
		assets []types.Asset
		err    error
	}

	start := a.now()

	var res outcome

	if err := ctx.Err(); err != nil {
		res.err = errors.Wrapf(errors.ErrCodeProviderUnavailable, err, "%s: not attempted", p.Name())
	} else {
		done := make(chan outcome, 1)

		go func() {
			assets, err := p.Fetch(ctx, marketTypes, req)
			done <- outcome{assets: assets, err: err}
		}()

		select {
		case res = <-done:
		case <-ctx.Done():
			// a response that raced the deadline still counts
			select {
			case res = <-done:
			default:
				res.err = errors.Wrapf(errors.ErrCodeProviderUnavailable, ctx.Err(), "%s: no response", p.Name())
			}
		}
	}

	attempt.Duration = a.now().Sub(start)

	if res.err != nil {
		if errors.GetCode(res.err) == errors.ErrCodeUnknown {
			res.err = errors.Wrapf(errors.ErrCodeProviderUnavailable, res.err, "%s: request failed", p.Name())
		}

		attempt.Err = res.err
		a.logger.Warn("provider failed",
			zap.String("provider", p.Name()),
			zap.String("code", errors.GetCode(res.err).String()),
			zap.Int("partial_assets", len(res.assets)),
			zap.Error(res.err),
		)
	}

	return res.assets, attempt
}

// missingFor builds the request for p: supported categories and their unresolved symbols.
func missingFor(p provider.Provider, order []types.MarketType, want map[types.MarketType][]string, resolved map[types.AssetKey]types.Asset) ([]types.MarketType, map[types.MarketType][]string) {
	var reqTypes []types.MarketType

	req := make(map[types.MarketType][]string)

	for _, mt := range order {
		if !p.Supports(mt) {
			continue
		}

		var missing []string

		for _, sym := range want[mt] {
			if _, ok := resolved[types.AssetKey{MarketType: mt, Symbol: sym}]; !ok {
				missing = append(missing, sym)
			}
		}

		if len(missing) > 0 {
			reqTypes = append(reqTypes, mt)
			req[mt] = missing
		}
	}

	return reqTypes, req
}

// merge keeps the first valid value for each requested key and returns how
// many assets were accepted. Unrequested, duplicate and invalid assets are dropped.
func merge(resolved map[types.AssetKey]types.Asset, assets []types.Asset, req map[types.MarketType][]string) int {
	accepted := 0

	for _, asset := range assets {
		key := asset.Key()
		if !slices.Contains(req[key.MarketType], key.Symbol) {
			continue
		}

		if _, exists := resolved[key]; exists {
			continue
		}

		if asset.IsFallback() || asset.Validate() != nil {
			continue
		}

		resolved[key] = asset
		accepted++
	}

	return accepted
}

func complete(order []types.MarketType, want map[types.MarketType][]string, resolved map[types.AssetKey]types.Asset) bool {
	for _, mt := range order {
		for _, sym := range want[mt] {
			if _, ok := resolved[types.AssetKey{MarketType: mt, Symbol: sym}]; !ok {
				return false
			}
		}
	}

	return true
}

func dedupe(marketTypes []types.MarketType) []types.MarketType {
	out := make([]types.MarketType, 0, len(marketTypes))
	for _, mt := range marketTypes {
		if !slices.Contains(out, mt) {
			out = append(out, mt)
		}
	}

	return out
}
