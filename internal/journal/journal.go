package journal

import (
	"errors"
	"path/filepath"

	"github.com/rxtech-lab/argo-retail/internal/types"
)

const (
	quotesFile = "quotes.parquet"
	tradesFile = "closed_trades.parquet"
)

// Journal bundles the quote and trade writers kept in one directory.
type Journal struct {
	Quotes *QuotesWriter
	Trades *TradesWriter
}

// Open initializes both writers under dir.
func Open(dir string) (*Journal, error) {
	j := &Journal{
		Quotes: NewQuotesWriter(filepath.Join(dir, quotesFile)),
		Trades: NewTradesWriter(filepath.Join(dir, tradesFile)),
	}

	if err := j.Quotes.Initialize(); err != nil {
		return nil, err
	}

	if err := j.Trades.Initialize(); err != nil {
		j.Quotes.Close()

		return nil, err
	}

	return j, nil
}

// RecordBatch writes a quote batch.
func (j *Journal) RecordBatch(batch types.QuoteBatch) error {
	return j.Quotes.Write(batch)
}

// RecordResult writes the trade of a confirmed close.
func (j *Journal) RecordResult(result types.TradeResult) error {
	return j.Trades.WriteResult(result)
}

// Close closes both writers.
func (j *Journal) Close() error {
	return errors.Join(j.Quotes.Close(), j.Trades.Close())
}
