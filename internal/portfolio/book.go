package portfolio

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// TriggerKind distinguishes the two automatic actions a price tick can cause.
type TriggerKind string

const (
	TriggerClose TriggerKind = "close"
	TriggerFill  TriggerKind = "fill"
)

// TriggerEvent asks the caller to submit a close or a fill to the backend.
type TriggerEvent struct {
	Kind TriggerKind
	// PositionID is set for close events.
	PositionID string
	// OrderID is set for fill events.
	OrderID  string
	Key      types.AssetKey
	Reason   types.CloseReason
	Price    float64
	Sequence uint64
	At       time.Time
}

// LatchID identifies the position or order the event fired for.
func (e TriggerEvent) LatchID() string {
	if e.Kind == TriggerFill {
		return "order:" + e.OrderID
	}

	return "position:" + e.PositionID
}

type mark struct {
	price    float64
	sequence uint64
	at       time.Time
}

// Book is the client-side projection of one user's portfolio. It is rebuilt
// from backend snapshots and only changes on confirmed results; price ticks
// update marks and fire triggers but never alter positions or orders.
// Safe for concurrent use.
type Book struct {
	mu        sync.RWMutex
	userID    string
	balance   float64
	positions map[string]types.Position
	orders    map[string]types.PendingOrder
	closed    []types.ClosedTrade
	closedIDs map[string]struct{}
	watchlist []types.AssetKey
	marks     map[types.AssetKey]mark
	latched   map[string]TriggerEvent
}

// NewBook creates an empty book for userID.
func NewBook(userID string) *Book {
	return &Book{
		userID:    userID,
		positions: make(map[string]types.Position),
		orders:    make(map[string]types.PendingOrder),
		closedIDs: make(map[string]struct{}),
		marks:     make(map[types.AssetKey]mark),
		latched:   make(map[string]TriggerEvent),
	}
}

// UserID returns the owner of the book.
func (b *Book) UserID() string {
	return b.userID
}

// Reset replaces all entities with the authoritative snapshot and drops every
// latch. Marks survive: they come from the price stream, not the backend.
func (b *Book) Reset(snapshot types.PortfolioSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if snapshot.UserID != "" {
		b.userID = snapshot.UserID
	}

	b.balance = snapshot.Balance
	b.positions = make(map[string]types.Position, len(snapshot.Positions))
	b.orders = make(map[string]types.PendingOrder, len(snapshot.PendingOrders))
	b.closed = slices.Clone(snapshot.ClosedTrades)
	b.closedIDs = make(map[string]struct{}, len(snapshot.ClosedTrades))
	b.watchlist = slices.Clone(snapshot.Watchlist)
	b.latched = make(map[string]TriggerEvent)

	for _, trade := range snapshot.ClosedTrades {
		b.closedIDs[trade.Position.ID] = struct{}{}
	}

	for _, p := range snapshot.Positions {
		if _, done := b.closedIDs[p.ID]; !done {
			b.positions[p.ID] = p
		}
	}

	for _, o := range snapshot.PendingOrders {
		if o.Status == types.OrderStatusPending {
			b.orders[o.ID] = o
		}
	}
}

// ApplyResult folds a confirmed backend result into the book. Unsuccessful
// results change nothing.
func (b *Book) ApplyResult(result types.TradeResult) {
	if !result.Success {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch result.Action {
	case types.TradeActionOpenPosition:
		if result.Position.IsSome() {
			b.addPosition(result.Position.Unwrap())
		}
	case types.TradeActionPlaceEntryOrder:
		if result.Order.IsSome() {
			if o := result.Order.Unwrap(); o.Status == types.OrderStatusPending {
				b.orders[o.ID] = o
			}
		}
	case types.TradeActionCancelEntryOrder:
		if result.Order.IsSome() {
			b.removeOrder(result.Order.Unwrap().ID)
		}
	case types.TradeActionFillEntryOrder:
		if result.Order.IsSome() {
			b.removeOrder(result.Order.Unwrap().ID)
		}

		if result.Position.IsSome() {
			b.addPosition(result.Position.Unwrap())
		}
	case types.TradeActionClosePosition:
		if result.Trade.IsSome() {
			b.addClosed(result.Trade.Unwrap())
		}
	case types.TradeActionRemoveFromPortfolio:
		if result.Removed.IsSome() {
			key := result.Removed.Unwrap()
			b.watchlist = slices.DeleteFunc(b.watchlist, func(k types.AssetKey) bool { return k == key })
		}
	}
}

func (b *Book) addPosition(p types.Position) {
	if _, done := b.closedIDs[p.ID]; done {
		return
	}

	b.positions[p.ID] = p
}

func (b *Book) removeOrder(id string) {
	delete(b.orders, id)
	delete(b.latched, "order:"+id)
}

func (b *Book) addClosed(trade types.ClosedTrade) {
	id := trade.Position.ID
	delete(b.positions, id)
	delete(b.latched, "position:"+id)

	if _, done := b.closedIDs[id]; done {
		return
	}

	b.closedIDs[id] = struct{}{}
	b.closed = append(b.closed, trade)
	b.balance += trade.RealizedPnL
}

// ApplyTick marks the instrument and evaluates triggers against the new
// price before returning. A tick whose sequence is not newer than the last
// applied one for the same instrument is dropped without side effects.
func (b *Book) ApplyTick(tick types.PriceTick) []TriggerEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.applyTick(tick)
}

// ApplyBatch applies the live ticks of a batch. Fallback assets are ignored.
// Multiple ticks for one instrument collapse to the last one, so triggers
// only see the latest price of the batch.
func (b *Book) ApplyBatch(batch types.QuoteBatch) []TriggerEvent {
	ticks := batch.Ticks()

	latest := make(map[types.AssetKey]int, len(ticks))
	for i, t := range ticks {
		latest[t.Key] = i
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var events []TriggerEvent

	for i, t := range ticks {
		if latest[t.Key] != i {
			continue
		}

		events = append(events, b.applyTick(t)...)
	}

	return events
}

func (b *Book) applyTick(tick types.PriceTick) []TriggerEvent {
	if !finitePositive(tick.Price) {
		return nil
	}

	if prev, ok := b.marks[tick.Key]; ok && tick.Sequence <= prev.sequence {
		return nil
	}

	b.marks[tick.Key] = mark{price: tick.Price, sequence: tick.Sequence, at: tick.At}

	var events []TriggerEvent

	for _, p := range sortedPositions(b.positions) {
		if p.Key() != tick.Key {
			continue
		}

		reason, hit := EvaluateTriggers(p, tick.Price)
		if !hit {
			continue
		}

		event := TriggerEvent{
			Kind:       TriggerClose,
			PositionID: p.ID,
			Key:        tick.Key,
			Reason:     reason,
			Price:      tick.Price,
			Sequence:   tick.Sequence,
			At:         tick.At,
		}

		if _, busy := b.latched[event.LatchID()]; busy {
			continue
		}

		b.latched[event.LatchID()] = event
		events = append(events, event)
	}

	for _, o := range sortedOrders(b.orders) {
		if o.Key() != tick.Key || !EntryOrderTriggered(o, tick.Price) {
			continue
		}

		event := TriggerEvent{
			Kind:     TriggerFill,
			OrderID:  o.ID,
			Key:      tick.Key,
			Price:    tick.Price,
			Sequence: tick.Sequence,
			At:       tick.At,
		}

		if _, busy := b.latched[event.LatchID()]; busy {
			continue
		}

		b.latched[event.LatchID()] = event
		events = append(events, event)
	}

	return events
}

// Release clears the latch of a rejected or abandoned trigger so the next
// qualifying tick can fire it again.
func (b *Book) Release(event TriggerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.latched, event.LatchID())
}

// Mark returns the latest live price applied for key.
func (b *Book) Mark(key types.AssetKey) (price float64, sequence uint64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := b.marks[key]

	return m.price, m.sequence, ok
}

// Position returns one open position marked to the latest price.
func (b *Book) Position(id string) (types.PositionView, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.positions[id]
	if !ok {
		if _, done := b.closedIDs[id]; done {
			return types.PositionView{}, errors.Newf(errors.ErrCodeAlreadyClosed, "position %s is already closed", id)
		}

		return types.PositionView{}, errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", id)
	}

	return b.view(p), nil
}

// Order returns one pending order.
func (b *Book) Order(id string) (types.PendingOrder, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	o, ok := b.orders[id]
	if !ok {
		return types.PendingOrder{}, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", id)
	}

	return o, nil
}

// Positions returns every open position, oldest first, with PnL recomputed
// from the current marks.
func (b *Book) Positions() []types.PositionView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sorted := sortedPositions(b.positions)
	views := make([]types.PositionView, 0, len(sorted))

	for _, p := range sorted {
		views = append(views, b.view(p))
	}

	return views
}

func (b *Book) view(p types.Position) types.PositionView {
	v := types.PositionView{Position: p}
	if m, ok := b.marks[p.Key()]; ok {
		v.Marked = true
		v.MarkPrice = m.price
		v.MarkSequence = m.sequence
		v.MarkedAt = m.at
		v.UnrealizedPnL = UnrealizedPnL(p, m.price)
	}

	_, v.Closing = b.latched["position:"+p.ID]

	return v
}

// PendingOrders returns the pending entry orders, oldest first.
func (b *Book) PendingOrders() []types.PendingOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return sortedOrders(b.orders)
}

// ClosedTrades returns the closed trades in the order they were recorded.
func (b *Book) ClosedTrades() []types.ClosedTrade {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.closed)
}

// Watchlist returns the followed instruments.
func (b *Book) Watchlist() []types.AssetKey {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.watchlist)
}

// Summary derives balances from the current entities and marks.
func (b *Book) Summary() types.PortfolioSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := types.PortfolioSummary{
		Balance:       b.balance,
		OpenPositions: len(b.positions),
		PendingOrders: len(b.orders),
	}

	for _, p := range sortedPositions(b.positions) {
		s.MarginUsed += p.MarginRequired

		m, ok := b.marks[p.Key()]
		if !ok {
			s.Unmarked++

			continue
		}

		s.UnrealizedPnL += UnrealizedPnL(p, m.price)
	}

	for _, t := range b.closed {
		s.RealizedPnL += t.RealizedPnL
	}

	s.Equity = s.Balance + s.UnrealizedPnL
	s.FreeMargin = s.Equity - s.MarginUsed

	return s
}

func sortedPositions(m map[string]types.Position) []types.Position {
	out := make([]types.Position, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}

	slices.SortFunc(out, func(a, b types.Position) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return out
}

func sortedOrders(m map[string]types.PendingOrder) []types.PendingOrder {
	out := make([]types.PendingOrder, 0, len(m))
	for _, o := range m {
		out = append(out, o)
	}

	slices.SortFunc(out, func(a, b types.PendingOrder) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return out
}
