// Package trading translates domain intents into backend calls and
// interprets the outcome. Every operation performs at most one backend
// mutation and never retries; a retry is always a new user action.
package trading

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/internal/portfolio"
	"github.com/rxtech-lab/argo-retail/internal/trading/backend"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"go.uber.org/zap"
)

// Backend rejection codes with a dedicated meaning.
const (
	rejectPositionNotFound = "position_not_found"
	rejectAlreadyClosed    = "already_closed"
	rejectOrderNotFound    = "order_not_found"
	rejectNotFound         = "not_found"
)

type openPositionRequest struct {
	types.OpenPositionParams
	MarginRequired float64 `json:"margin_required"`
}

type getPortfolioRequest struct {
	UserID string `json:"user_id"`
}

type positionResponse struct {
	Position *types.Position `json:"position"`
}

type orderResponse struct {
	Order *types.PendingOrder `json:"order"`
}

type fillResponse struct {
	Order    *types.PendingOrder `json:"order"`
	Position *types.Position     `json:"position"`
}

// closeResponse carries the backend's executed exit. The exit price is
// authoritative; the reference price sent by the client is only advisory.
type closeResponse struct {
	Position  *types.Position `json:"position"`
	ExitPrice float64         `json:"exit_price"`
	ClosedAt  time.Time       `json:"closed_at"`
}

// Service executes trade intents against the backend.
type Service struct {
	backend backend.Backend
	book    *portfolio.Book
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBook attaches a book that receives every confirmed result.
func WithBook(book *portfolio.Book) Option {
	return func(s *Service) {
		s.book = book
	}
}

// WithLogger sets the service logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a service over the given backend.
func NewService(b backend.Backend, opts ...Option) *Service {
	s := &Service{
		backend: b,
		log:     logger.NewNopLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Book returns the attached book, or nil.
func (s *Service) Book() *portfolio.Book {
	return s.book
}

// OpenPosition opens a position at the current market price.
func (s *Service) OpenPosition(ctx context.Context, params types.OpenPositionParams) (types.TradeResult, error) {
	action := types.TradeActionOpenPosition

	if err := params.Validate(); err != nil {
		return types.TradeResult{Action: action}, err
	}

	if err := portfolio.ValidateThresholds(params.Direction, params.Price, params.TakeProfit, params.StopLoss); err != nil {
		return types.TradeResult{Action: action}, err
	}

	margin, err := portfolio.MarginRequired(params.Quantity, params.Price, params.Leverage)
	if err != nil {
		return types.TradeResult{Action: action}, err
	}

	var resp positionResponse
	if err := s.backend.Invoke(ctx, backend.FunctionOpenPosition, openPositionRequest{OpenPositionParams: params, MarginRequired: margin}, &resp); err != nil {
		return s.failed(action, err)
	}

	if resp.Position == nil || resp.Position.ID == "" {
		return types.TradeResult{Action: action}, errors.New(errors.ErrCodeMalformedBackendResponse, "open-position: response has no position")
	}

	return s.confirmed(types.TradeResult{Success: true, Action: action, Position: optional.Some(*resp.Position)}), nil
}

// PlaceEntryOrder places a limit or stop entry order. A backend refusal is
// returned as OrderRejected with the backend's reason.
func (s *Service) PlaceEntryOrder(ctx context.Context, params types.PlaceEntryOrderParams) (types.TradeResult, error) {
	action := types.TradeActionPlaceEntryOrder

	if err := params.Validate(); err != nil {
		return types.TradeResult{Action: action}, err
	}

	if err := portfolio.ValidateThresholds(params.Direction, params.TargetPrice, params.TakeProfit, params.StopLoss); err != nil {
		return types.TradeResult{Action: action}, err
	}

	var resp orderResponse
	if err := s.backend.Invoke(ctx, backend.FunctionPlaceEntryOrder, params, &resp); err != nil {
		return s.failed(action, err)
	}

	if resp.Order == nil || resp.Order.ID == "" {
		return types.TradeResult{Action: action}, errors.New(errors.ErrCodeMalformedBackendResponse, "place-entry-order: response has no order")
	}

	return s.confirmed(types.TradeResult{Success: true, Action: action, Order: optional.Some(*resp.Order)}), nil
}

// CancelEntryOrder cancels a pending entry order.
func (s *Service) CancelEntryOrder(ctx context.Context, orderID string) (types.TradeResult, error) {
	action := types.TradeActionCancelEntryOrder

	params := types.CancelEntryOrderParams{OrderID: orderID}
	if err := params.Validate(); err != nil {
		return types.TradeResult{Action: action}, err
	}

	var resp orderResponse
	if err := s.backend.Invoke(ctx, backend.FunctionCancelEntryOrder, params, &resp); err != nil {
		return s.failed(action, err)
	}

	order := types.PendingOrder{ID: orderID, Status: types.OrderStatusCancelled}
	if resp.Order != nil {
		order = *resp.Order
	}

	return s.confirmed(types.TradeResult{Success: true, Action: action, Order: optional.Some(order)}), nil
}

// FillEntryOrder reports an observed trigger price for a pending order. The
// resulting position is opened at that price.
func (s *Service) FillEntryOrder(ctx context.Context, params types.FillEntryOrderParams) (types.TradeResult, error) {
	action := types.TradeActionFillEntryOrder

	if err := params.Validate(); err != nil {
		return types.TradeResult{Action: action}, err
	}

	var resp fillResponse
	if err := s.backend.Invoke(ctx, backend.FunctionFillEntryOrder, params, &resp); err != nil {
		return s.failed(action, err)
	}

	if resp.Position == nil || resp.Position.ID == "" {
		return types.TradeResult{Action: action}, errors.New(errors.ErrCodeMalformedBackendResponse, "fill-entry-order: response has no position")
	}

	order := types.PendingOrder{ID: params.OrderID}
	if resp.Order != nil {
		order = *resp.Order
	}

	order.Status = types.OrderStatusFilled

	return s.confirmed(types.TradeResult{
		Success:  true,
		Action:   action,
		Order:    optional.Some(order),
		Position: optional.Some(*resp.Position),
	}), nil
}

// ClosePosition closes a position manually at the backend's exit price.
func (s *Service) ClosePosition(ctx context.Context, positionID string, currentPrice float64) (types.TradeResult, error) {
	return s.ClosePositionWithReason(ctx, types.ClosePositionParams{
		PositionID:   positionID,
		CurrentPrice: currentPrice,
		Reason:       types.CloseReasonManual,
	})
}

// ClosePositionWithReason submits a close with an explicit reason, used by
// the trigger monitor for stop-loss and take-profit closes.
func (s *Service) ClosePositionWithReason(ctx context.Context, params types.ClosePositionParams) (types.TradeResult, error) {
	action := types.TradeActionClosePosition

	if err := params.Validate(); err != nil {
		return types.TradeResult{Action: action}, err
	}

	var resp closeResponse
	if err := s.backend.Invoke(ctx, backend.FunctionClosePosition, params, &resp); err != nil {
		return s.failed(action, err)
	}

	position, err := s.closedPosition(params.PositionID, resp.Position)
	if err != nil {
		return types.TradeResult{Action: action}, err
	}

	closedAt := resp.ClosedAt
	if closedAt.IsZero() {
		closedAt = s.now()
	}

	trade, err := portfolio.ClosePosition(position, resp.ExitPrice, params.Reason, closedAt)
	if err != nil {
		return types.TradeResult{Action: action}, errors.Wrap(errors.ErrCodeMalformedBackendResponse, "close-position: invalid exit", err)
	}

	return s.confirmed(types.TradeResult{Success: true, Action: action, Trade: optional.Some(trade)}), nil
}

// closedPosition picks the position record used to finalize a close. The
// backend copy wins; the local book is used when the backend omits it.
func (s *Service) closedPosition(id string, fromBackend *types.Position) (types.Position, error) {
	if fromBackend != nil && fromBackend.ID != "" {
		return *fromBackend, nil
	}

	if s.book != nil {
		if view, err := s.book.Position(id); err == nil {
			return view.Position, nil
		}
	}

	return types.Position{}, errors.Newf(errors.ErrCodeMalformedBackendResponse, "close-position: response has no position for %s", id)
}

// RemoveFromPortfolio detaches an entry. Removing an entry that is already
// absent succeeds.
func (s *Service) RemoveFromPortfolio(ctx context.Context, params types.RemoveFromPortfolioParams) (types.TradeResult, error) {
	action := types.TradeActionRemoveFromPortfolio

	if err := params.Validate(); err != nil {
		return types.TradeResult{Action: action}, err
	}

	key := types.AssetKey{MarketType: params.MarketType, Symbol: params.Symbol}

	err := s.backend.Invoke(ctx, backend.FunctionRemoveFromPortfolio, params, nil)
	if err != nil {
		rejection, ok := backend.RejectionOf(err)
		if !ok || rejection.Code != rejectNotFound {
			return s.failed(action, err)
		}

		s.log.Debug("entry already absent", zap.String("key", key.String()))
	}

	return s.confirmed(types.TradeResult{Success: true, Action: action, Removed: optional.Some(key)}), nil
}

// FetchPortfolio loads the authoritative portfolio for userID.
func (s *Service) FetchPortfolio(ctx context.Context, userID string) (types.PortfolioSnapshot, error) {
	if userID == "" {
		return types.PortfolioSnapshot{}, errors.New(errors.ErrCodeMissingParameter, "user id is required")
	}

	var snapshot types.PortfolioSnapshot
	if err := s.backend.Invoke(ctx, backend.FunctionGetPortfolio, getPortfolioRequest{UserID: userID}, &snapshot); err != nil {
		return types.PortfolioSnapshot{}, err
	}

	if snapshot.UserID == "" {
		snapshot.UserID = userID
	}

	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = s.now()
	}

	return snapshot, nil
}

// Reconcile replaces the attached book with the authoritative portfolio.
func (s *Service) Reconcile(ctx context.Context) error {
	if s.book == nil {
		return errors.New(errors.ErrCodeMissingParameter, "no book attached")
	}

	snapshot, err := s.FetchPortfolio(ctx, s.book.UserID())
	if err != nil {
		return err
	}

	s.book.Reset(snapshot)

	return nil
}

func (s *Service) confirmed(result types.TradeResult) types.TradeResult {
	if s.book != nil {
		s.book.ApplyResult(result)
	}

	s.log.Info("trade confirmed", zap.String("action", string(result.Action)))

	return result
}

// failed turns a backend error into the caller-facing result. Rejections
// carry the backend reason; unavailability leaves the outcome unknown.
func (s *Service) failed(action types.TradeAction, err error) (types.TradeResult, error) {
	rejection, ok := backend.RejectionOf(err)
	if !ok {
		s.log.Warn("trade outcome unknown", zap.String("action", string(action)), zap.Error(err))

		return types.TradeResult{Action: action, Reason: errors.GetMessage(err)}, err
	}

	result := types.Rejected(action, rejection.Message, rejection.Code)

	switch rejection.Code {
	case rejectPositionNotFound:
		return result, errors.Wrap(errors.ErrCodePositionNotFound, rejection.Message, err)
	case rejectAlreadyClosed:
		return result, errors.Wrap(errors.ErrCodeAlreadyClosed, rejection.Message, err)
	case rejectOrderNotFound:
		return result, errors.Wrap(errors.ErrCodeOrderNotFound, rejection.Message, err)
	}

	return result, err
}
