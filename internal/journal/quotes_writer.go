package journal

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/types"
)

// QuotesWriter records every asset of every quote batch.
type QuotesWriter struct {
	table
}

// NewQuotesWriter creates a writer mirrored to the parquet file at outputPath.
func NewQuotesWriter(outputPath string) *QuotesWriter {
	return &QuotesWriter{table: table{
		outputPath: outputPath,
		name:       "quotes",
		schema: `
			sequence UBIGINT,
			batch_at TIMESTAMP,
			market_type TEXT,
			symbol TEXT,
			price DOUBLE,
			change_percent DOUBLE,
			name TEXT,
			source TEXT,
			is_fallback BOOLEAN,
			updated_at TIMESTAMP,
			PRIMARY KEY (market_type, symbol, sequence)`,
		conflict: "(market_type, symbol, sequence)",
		orderBy:  "sequence ASC, market_type ASC, symbol ASC",
	}}
}

// Initialize opens the database and reloads any previous record.
func (w *QuotesWriter) Initialize() error {
	return w.initialize()
}

// Write records a batch. Re-writing the same batch is a no-op.
func (w *QuotesWriter) Write(batch types.QuoteBatch) error {
	if len(batch.Assets) == 0 {
		return nil
	}

	insert := psql.Insert("quotes").
		Columns("sequence", "batch_at", "market_type", "symbol", "price", "change_percent", "name", "source", "is_fallback", "updated_at").
		Suffix("ON CONFLICT (market_type, symbol, sequence) DO NOTHING")

	for _, a := range batch.Assets {
		var change, name any
		if a.ChangePercent.IsSome() {
			change = a.ChangePercent.Unwrap()
		}

		if a.Name.IsSome() {
			name = a.Name.Unwrap()
		}

		updated := a.UpdatedAt
		if updated.IsZero() {
			updated = batch.At
		}

		insert = insert.Values(batch.Sequence, batch.At, string(a.MarketType), a.Symbol, a.Price, change, name, a.Source, a.IsFallback(), updated)
	}

	return w.exec(insert)
}

// Flush forces an export to parquet.
func (w *QuotesWriter) Flush() error {
	return w.flush()
}

// GetOutputPath returns the parquet file path.
func (w *QuotesWriter) GetOutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *QuotesWriter) Close() error {
	return w.close()
}

// GetQuoteCount returns the number of recorded rows.
func (w *QuotesWriter) GetQuoteCount() (int, error) {
	var count int

	err := w.query(func(db *sql.DB) error {
		query, args, err := psql.Select("COUNT(*)").From("quotes").ToSql()
		if err != nil {
			return err
		}

		return db.QueryRow(query, args...).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count quotes: %w", err)
	}

	return count, nil
}

// LatestQuotes returns the most recent live quote per instrument, ordered
// by category and symbol. Fallback rows are never returned.
func (w *QuotesWriter) LatestQuotes(marketTypes ...types.MarketType) ([]types.Asset, error) {
	sel := psql.Select("market_type", "symbol", "price", "change_percent", "name", "source", "updated_at").
		From("quotes").
		Where(squirrel.Eq{"is_fallback": false})

	if len(marketTypes) > 0 {
		names := make([]string, 0, len(marketTypes))
		for _, mt := range marketTypes {
			names = append(names, string(mt))
		}

		sel = sel.Where(squirrel.Eq{"market_type": names})
	}

	sel = sel.
		Suffix("QUALIFY row_number() OVER (PARTITION BY market_type, symbol ORDER BY sequence DESC) = 1 ORDER BY market_type, symbol")

	var assets []types.Asset

	err := w.query(func(db *sql.DB) error {
		query, args, err := sel.ToSql()
		if err != nil {
			return err
		}

		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				a          types.Asset
				marketType string
				change     sql.NullFloat64
				name       sql.NullString
			)

			if err := rows.Scan(&marketType, &a.Symbol, &a.Price, &change, &name, &a.Source, &a.UpdatedAt); err != nil {
				return err
			}

			a.MarketType = types.MarketType(marketType)

			if change.Valid {
				a.ChangePercent = optional.Some(change.Float64)
			}

			if name.Valid {
				a.Name = optional.Some(name.String)
			}

			assets = append(assets, a)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read latest quotes: %w", err)
	}

	return assets, nil
}
