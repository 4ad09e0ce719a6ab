package types

import "time"

// QuoteBatch is one aggregation cycle. Sequence is assigned when the cycle
// starts, so a slow earlier cycle always carries a lower sequence than a
// later one even if it completes afterwards.
type QuoteBatch struct {
	Sequence uint64    `json:"sequence"`
	At       time.Time `json:"at"`
	Assets   []Asset   `json:"assets"`
}

// PriceTick is a single ordered price observation for one instrument.
type PriceTick struct {
	Key      AssetKey  `json:"key"`
	Price    float64   `json:"price"`
	Sequence uint64    `json:"sequence"`
	At       time.Time `json:"at"`
}

// Ticks converts the live assets of the batch into price ticks stamped with
// the batch sequence. Fallback assets are skipped: static substitute prices
// must never mark positions or fire triggers.
func (b QuoteBatch) Ticks() []PriceTick {
	ticks := make([]PriceTick, 0, len(b.Assets))
	for _, asset := range b.Assets {
		if asset.IsFallback() || asset.Price <= 0 {
			continue
		}

		at := asset.UpdatedAt
		if at.IsZero() {
			at = b.At
		}

		ticks = append(ticks, PriceTick{
			Key:      asset.Key(),
			Price:    asset.Price,
			Sequence: b.Sequence,
			At:       at,
		})
	}

	return ticks
}

// FallbackCount returns how many assets in the batch are fallback-tagged.
func (b QuoteBatch) FallbackCount() int {
	n := 0

	for _, asset := range b.Assets {
		if asset.IsFallback() {
			n++
		}
	}

	return n
}
