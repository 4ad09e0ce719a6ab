package marketdata

import (
	"context"
	"iter"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-retail/internal/types"
)

// DefaultPollInterval is used when the poller is created without an interval.
const DefaultPollInterval = 5 * time.Second

// Poller turns repeated aggregator fetches into an ordered stream of batches.
type Poller struct {
	fetcher     Fetcher
	interval    time.Duration
	marketTypes []types.MarketType
	sequence    atomic.Uint64
	now         func() time.Time
}

// NewPoller creates a poller over the given categories.
func NewPoller(fetcher Fetcher, interval time.Duration, marketTypes ...types.MarketType) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Poller{
		fetcher:     fetcher,
		interval:    interval,
		marketTypes: slices.Clone(marketTypes),
		now:         time.Now,
	}
}

// Poll runs a single fetch cycle. The sequence number and timestamp are taken
// before the fetch starts, so concurrent cycles are ordered by start time.
func (p *Poller) Poll(ctx context.Context) types.QuoteBatch {
	seq := p.sequence.Add(1)
	at := p.now()
	assets := p.fetcher.Fetch(ctx, p.marketTypes...)

	return types.QuoteBatch{Sequence: seq, At: at, Assets: assets}
}

// Stream yields a batch immediately and then once per interval until ctx is
// cancelled or the consumer stops iterating.
func (p *Poller) Stream(ctx context.Context) iter.Seq[types.QuoteBatch] {
	return func(yield func(types.QuoteBatch) bool) {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			if ctx.Err() != nil {
				return
			}

			batch := p.Poll(ctx)
			if ctx.Err() != nil {
				return
			}

			if !yield(batch) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}
