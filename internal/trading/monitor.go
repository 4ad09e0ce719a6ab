package trading

import (
	"context"
	"iter"

	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/internal/portfolio"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"go.uber.org/zap"
)

// Executor is the subset of Service the monitor submits triggered actions through.
type Executor interface {
	ClosePositionWithReason(ctx context.Context, params types.ClosePositionParams) (types.TradeResult, error)
	FillEntryOrder(ctx context.Context, params types.FillEntryOrderParams) (types.TradeResult, error)
	FetchPortfolio(ctx context.Context, userID string) (types.PortfolioSnapshot, error)
}

// BatchObserver is called with every batch after it has been applied.
type BatchObserver func(batch types.QuoteBatch)

// ResultObserver is called with every confirmed triggered result.
type ResultObserver func(result types.TradeResult)

// Monitor drives the book from a quote stream. Batches are applied in
// stream order; trigger events are submitted one at a time before the next
// batch is read, so a position is never closed twice by the monitor.
type Monitor struct {
	executor  Executor
	book      *portfolio.Book
	log       *logger.Logger
	onBatch   []BatchObserver
	onResult  []ResultObserver
	reconcile bool
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorLogger sets the monitor logger.
func WithMonitorLogger(log *logger.Logger) MonitorOption {
	return func(m *Monitor) {
		m.log = log
	}
}

// OnBatch registers an observer for applied batches.
func OnBatch(fn BatchObserver) MonitorOption {
	return func(m *Monitor) {
		m.onBatch = append(m.onBatch, fn)
	}
}

// OnResult registers an observer for confirmed triggered results.
func OnResult(fn ResultObserver) MonitorOption {
	return func(m *Monitor) {
		m.onResult = append(m.onResult, fn)
	}
}

// NewMonitor creates a monitor for book.
func NewMonitor(executor Executor, book *portfolio.Book, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		executor: executor,
		book:     book,
		log:      logger.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run consumes batches until the stream ends or ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, batches iter.Seq[types.QuoteBatch]) error {
	for batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.Handle(ctx, batch)
	}

	return ctx.Err()
}

// Handle applies one batch and submits every trigger it fires. It returns
// the events that fired.
func (m *Monitor) Handle(ctx context.Context, batch types.QuoteBatch) []portfolio.TriggerEvent {
	events := m.book.ApplyBatch(batch)

	for _, fn := range m.onBatch {
		fn(batch)
	}

	if n := batch.FallbackCount(); n > 0 {
		m.log.Debug("batch contains fallback quotes", zap.Uint64("sequence", batch.Sequence), zap.Int("fallback", n))
	}

	for _, event := range events {
		m.submit(ctx, event)
	}

	if m.reconcile {
		m.sync(ctx)
	}

	return events
}

func (m *Monitor) submit(ctx context.Context, event portfolio.TriggerEvent) {
	var (
		result types.TradeResult
		err    error
	)

	switch event.Kind {
	case portfolio.TriggerClose:
		m.log.Info("submitting triggered close",
			zap.String("position_id", event.PositionID),
			zap.String("reason", string(event.Reason)),
			zap.Float64("price", event.Price),
			zap.Uint64("sequence", event.Sequence),
		)

		result, err = m.executor.ClosePositionWithReason(ctx, types.ClosePositionParams{
			PositionID:   event.PositionID,
			CurrentPrice: event.Price,
			Reason:       event.Reason,
		})
	case portfolio.TriggerFill:
		m.log.Info("submitting triggered fill",
			zap.String("order_id", event.OrderID),
			zap.Float64("price", event.Price),
			zap.Uint64("sequence", event.Sequence),
		)

		result, err = m.executor.FillEntryOrder(ctx, types.FillEntryOrderParams{
			OrderID:      event.OrderID,
			TriggerPrice: event.Price,
			ObservedAt:   event.At,
		})
	default:
		return
	}

	switch {
	case err == nil:
		m.book.ApplyResult(result)

		for _, fn := range m.onResult {
			fn(result)
		}
	case errors.HasCode(err, errors.ErrCodeBackendUnavailable),
		errors.HasCode(err, errors.ErrCodeMalformedBackendResponse),
		errors.HasCode(err, errors.ErrCodePositionNotFound),
		errors.HasCode(err, errors.ErrCodeAlreadyClosed),
		errors.HasCode(err, errors.ErrCodeOrderNotFound):
		// The local view may be stale; only the backend knows what happened.
		m.log.Warn("triggered action needs reconciliation", zap.String("latch", event.LatchID()), zap.Error(err))
		m.reconcile = true
	default:
		m.log.Warn("triggered action rejected", zap.String("latch", event.LatchID()), zap.String("reason", errors.GetMessage(err)))
		m.book.Release(event)
	}
}

// sync replaces the book with the authoritative portfolio. On failure the
// latches stay in place and the next batch tries again.
func (m *Monitor) sync(ctx context.Context) {
	snapshot, err := m.executor.FetchPortfolio(ctx, m.book.UserID())
	if err != nil {
		m.log.Warn("portfolio reconciliation failed", zap.Error(err))

		return
	}

	m.book.Reset(snapshot)
	m.reconcile = false
}
