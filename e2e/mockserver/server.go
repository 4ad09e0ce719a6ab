// Package mockserver provides a mock trade backend for testing.
// It serves the edge functions, a REST quote endpoint and an object store
// with the same wire shapes the real services use.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-retail/internal/portfolio"
	"github.com/rxtech-lab/argo-retail/internal/trading/backend"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/mocks"
)

// QuotesTarget is the FailNext target for the quote endpoint.
const QuotesTarget = "quotes"

// Rejection codes returned by the mock backend.
const (
	CodeInsufficientMargin = "insufficient_margin"
	CodePositionNotFound   = "position_not_found"
	CodeAlreadyClosed      = "already_closed"
	CodeOrderNotFound      = "order_not_found"
	CodeNotFound           = "not_found"
	CodeInvalidRequest     = "invalid_request"
)

// Failure is an injected response for the next call to a target.
// A Failure without a Message is answered with a bare status and no
// envelope, the way a gateway failure looks.
type Failure struct {
	Status  int
	Message string
	Code    string
}

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	// UserID owns the single portfolio served by the mock
	UserID string
	// InitialBalance is the starting cash balance
	InitialBalance float64
	// Prices are the initial server-side prices
	Prices map[types.AssetKey]float64
	// Watchlist is the initial watchlist
	Watchlist []types.AssetKey
	// Bucket is the only object store bucket accepted
	Bucket string
	// Seed drives the random walk used by Advance
	Seed int64
	// Volatility is the per-step volatility used by Advance
	Volatility float64
}

// MockEdgeServer provides a mock trade backend for testing.
type MockEdgeServer struct {
	mu sync.RWMutex

	// HTTP server
	httpServer *http.Server
	listener   net.Listener

	// Portfolio state
	userID    string
	balance   float64
	positions map[string]types.Position
	orders    map[string]types.PendingOrder
	closed    []types.ClosedTrade
	watchlist []types.AssetKey

	// Market data
	prices     map[types.AssetKey]float64
	generator  *mocks.DataGenerator
	volatility float64

	// Object store
	bucket  string
	objects map[string][]byte

	// Test instrumentation
	failures   map[string][]Failure
	calls      map[string]int
	requestIDs []string

	now func() time.Time
}

// NewMockEdgeServer creates a new mock backend.
func NewMockEdgeServer(config ServerConfig) *MockEdgeServer {
	server := &MockEdgeServer{
		mu:         sync.RWMutex{},
		httpServer: nil,
		listener:   nil,
		userID:     config.UserID,
		balance:    config.InitialBalance,
		positions:  make(map[string]types.Position),
		orders:     make(map[string]types.PendingOrder),
		closed:     nil,
		watchlist:  slices.Clone(config.Watchlist),
		prices:     make(map[types.AssetKey]float64),
		generator:  mocks.NewDataGenerator(config.Seed),
		volatility: config.Volatility,
		bucket:     config.Bucket,
		objects:    make(map[string][]byte),
		failures:   make(map[string][]Failure),
		calls:      make(map[string]int),
		requestIDs: nil,
		now:        time.Now,
	}

	if server.userID == "" {
		server.userID = "user-1"
	}

	if server.bucket == "" {
		server.bucket = "documents"
	}

	if server.volatility <= 0 {
		server.volatility = 0.002
	}

	for key, price := range config.Prices {
		server.prices[key] = price
	}

	return server
}

// Start starts the mock server on the given address.
func (s *MockEdgeServer) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/functions/v1/{function}", s.handleFunction).Methods("POST")
	router.HandleFunc("/quotes", s.handleQuotes).Methods("GET")
	router.HandleFunc("/storage/v1/object/public/{bucket}/{path:.*}", s.handleDownload).Methods("GET")
	router.HandleFunc("/storage/v1/object/{bucket}/{path:.*}", s.handleUpload).Methods("POST")

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = s.httpServer.Serve(listener)
	}()

	return nil
}

// Stop stops the mock server.
func (s *MockEdgeServer) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = s.httpServer.Shutdown(ctx)
	}
}

// Address returns the address the server is listening on.
func (s *MockEdgeServer) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the root URL of the server.
func (s *MockEdgeServer) BaseURL() string {
	return "http://" + s.Address()
}

// FunctionsURL returns the edge functions root.
func (s *MockEdgeServer) FunctionsURL() string {
	return s.BaseURL() + "/functions/v1"
}

// SetPrice sets the server-side price of an instrument.
func (s *MockEdgeServer) SetPrice(key types.AssetKey, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[key] = price
}

// Price returns the server-side price of an instrument.
func (s *MockEdgeServer) Price(key types.AssetKey) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[key]

	return price, ok
}

// Advance moves every price one random-walk step.
func (s *MockEdgeServer) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, price := range s.prices {
		s.prices[key] = s.generator.Step(price, s.volatility, 0)
	}
}

// FailNext queues a failure for the next call to target, which is an edge
// function name or QuotesTarget.
func (s *MockEdgeServer) FailNext(target string, failure Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[target] = append(s.failures[target], failure)
}

// Calls returns how many times target was called, failures included.
func (s *MockEdgeServer) Calls(target string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.calls[target]
}

// RequestIDs returns the request ids of all edge function calls in order.
func (s *MockEdgeServer) RequestIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.requestIDs)
}

// Balance returns the server-side cash balance.
func (s *MockEdgeServer) Balance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balance
}

// Snapshot returns the server-side portfolio.
func (s *MockEdgeServer) Snapshot() types.PortfolioSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// Object returns a stored object by bucket-relative path.
func (s *MockEdgeServer) Object(objectPath string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[objectPath]

	return data, ok
}

func (s *MockEdgeServer) snapshotLocked() types.PortfolioSnapshot {
	positions := make([]types.Position, 0, len(s.positions))
	for _, p := range s.positions {
		positions = append(positions, p)
	}

	slices.SortFunc(positions, func(a, b types.Position) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	orders := make([]types.PendingOrder, 0, len(s.orders))
	for _, o := range s.orders {
		if o.Status == types.OrderStatusPending {
			orders = append(orders, o)
		}
	}

	slices.SortFunc(orders, func(a, b types.PendingOrder) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return types.PortfolioSnapshot{
		UserID:        s.userID,
		Balance:       s.balance,
		Positions:     positions,
		PendingOrders: orders,
		ClosedTrades:  slices.Clone(s.closed),
		Watchlist:     slices.Clone(s.watchlist),
		FetchedAt:     s.now(),
	}
}

// takeFailure records the call and pops a queued failure. Must hold s.mu.
func (s *MockEdgeServer) takeFailure(target string) (Failure, bool) {
	s.calls[target]++

	queue := s.failures[target]
	if len(queue) == 0 {
		return Failure{}, false
	}

	s.failures[target] = queue[1:]

	return queue[0], true
}

func (s *MockEdgeServer) handleFunction(w http.ResponseWriter, r *http.Request) {
	function := backend.Function(mux.Vars(r)["function"])

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requestIDs = append(s.requestIDs, r.Header.Get(backend.RequestIDHeader))

	if failure, ok := s.takeFailure(string(function)); ok {
		writeFailure(w, failure)
		return
	}

	var (
		data      any
		rejection *Failure
	)

	switch function {
	case backend.FunctionOpenPosition:
		data, rejection = s.openPosition(body)
	case backend.FunctionPlaceEntryOrder:
		data, rejection = s.placeEntryOrder(body)
	case backend.FunctionCancelEntryOrder:
		data, rejection = s.cancelEntryOrder(body)
	case backend.FunctionFillEntryOrder:
		data, rejection = s.fillEntryOrder(body)
	case backend.FunctionClosePosition:
		data, rejection = s.closePosition(body)
	case backend.FunctionRemoveFromPortfolio:
		data, rejection = s.removeFromPortfolio(body)
	case backend.FunctionGetPortfolio:
		data = s.snapshotLocked()
	default:
		rejection = &Failure{Status: http.StatusNotFound, Message: "unknown function " + string(function), Code: CodeNotFound}
	}

	if rejection != nil {
		writeFailure(w, *rejection)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": data, "error": nil})
}

func (s *MockEdgeServer) openPosition(body []byte) (any, *Failure) {
	var params types.OpenPositionParams
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, invalid(err)
	}

	fill := params.Price
	if price, ok := s.prices[types.AssetKey{MarketType: params.MarketType, Symbol: params.Symbol}]; ok {
		fill = price
	}

	position, err := portfolio.NewPosition(params, fill, s.now(), uuid.NewString())
	if err != nil {
		return nil, invalid(err)
	}

	if position.MarginRequired > s.freeMarginLocked() {
		return nil, &Failure{Status: http.StatusBadRequest, Message: "insufficient margin", Code: CodeInsufficientMargin}
	}

	s.positions[position.ID] = position

	return map[string]any{"position": position}, nil
}

func (s *MockEdgeServer) placeEntryOrder(body []byte) (any, *Failure) {
	var params types.PlaceEntryOrderParams
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, invalid(err)
	}

	if err := params.Validate(); err != nil {
		return nil, invalid(err)
	}

	order := types.PendingOrder{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		Symbol:      params.Symbol,
		MarketType:  params.MarketType,
		OrderType:   params.OrderType,
		Direction:   params.Direction,
		Quantity:    params.Quantity,
		TargetPrice: params.TargetPrice,
		Leverage:    params.Leverage,
		TakeProfit:  params.TakeProfit,
		StopLoss:    params.StopLoss,
		Status:      types.OrderStatusPending,
		CreatedAt:   s.now(),
	}
	s.orders[order.ID] = order

	return map[string]any{"order": order}, nil
}

func (s *MockEdgeServer) cancelEntryOrder(body []byte) (any, *Failure) {
	var params types.CancelEntryOrderParams
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, invalid(err)
	}

	order, ok := s.orders[params.OrderID]
	if !ok || order.Status != types.OrderStatusPending {
		return nil, &Failure{Status: http.StatusNotFound, Message: "order not found", Code: CodeOrderNotFound}
	}

	cancelled, err := portfolio.CancelOrder(order, s.now())
	if err != nil {
		return nil, invalid(err)
	}

	s.orders[cancelled.ID] = cancelled

	return map[string]any{"order": cancelled}, nil
}

func (s *MockEdgeServer) fillEntryOrder(body []byte) (any, *Failure) {
	var params types.FillEntryOrderParams
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, invalid(err)
	}

	order, ok := s.orders[params.OrderID]
	if !ok || order.Status != types.OrderStatusPending {
		return nil, &Failure{Status: http.StatusNotFound, Message: "order not found", Code: CodeOrderNotFound}
	}

	filled, position, err := portfolio.FillOrder(order, params.TriggerPrice, params.ObservedAt, uuid.NewString())
	if err != nil {
		return nil, invalid(err)
	}

	if position.MarginRequired > s.freeMarginLocked() {
		return nil, &Failure{Status: http.StatusBadRequest, Message: "insufficient margin", Code: CodeInsufficientMargin}
	}

	s.orders[filled.ID] = filled
	s.positions[position.ID] = position

	return map[string]any{"order": filled, "position": position}, nil
}

func (s *MockEdgeServer) closePosition(body []byte) (any, *Failure) {
	var params types.ClosePositionParams
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, invalid(err)
	}

	position, ok := s.positions[params.PositionID]
	if !ok {
		if slices.ContainsFunc(s.closed, func(t types.ClosedTrade) bool { return t.Position.ID == params.PositionID }) {
			return nil, &Failure{Status: http.StatusConflict, Message: "position already closed", Code: CodeAlreadyClosed}
		}

		return nil, &Failure{Status: http.StatusNotFound, Message: "position not found", Code: CodePositionNotFound}
	}

	exit := params.CurrentPrice
	if price, ok := s.prices[position.Key()]; ok {
		exit = price
	}

	trade, err := portfolio.ClosePosition(position, exit, params.Reason, s.now())
	if err != nil {
		return nil, invalid(err)
	}

	s.balance += trade.RealizedPnL
	s.closed = append(s.closed, trade)
	delete(s.positions, position.ID)

	return map[string]any{
		"position":   position,
		"exit_price": trade.ExitPrice,
		"closed_at":  trade.ClosedAt,
	}, nil
}

func (s *MockEdgeServer) removeFromPortfolio(body []byte) (any, *Failure) {
	var params types.RemoveFromPortfolioParams
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, invalid(err)
	}

	key := types.AssetKey{MarketType: params.MarketType, Symbol: params.Symbol}

	idx := slices.Index(s.watchlist, key)
	if idx < 0 {
		return nil, &Failure{Status: http.StatusNotFound, Message: "not in portfolio", Code: CodeNotFound}
	}

	s.watchlist = slices.Delete(s.watchlist, idx, idx+1)

	return map[string]any{"removed": key}, nil
}

func (s *MockEdgeServer) freeMarginLocked() float64 {
	used := 0.0
	for _, p := range s.positions {
		used += p.MarginRequired
	}

	return s.balance - used
}

func (s *MockEdgeServer) handleQuotes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if failure, ok := s.takeFailure(QuotesTarget); ok {
		writeFailure(w, failure)
		return
	}

	marketType := types.MarketType(r.URL.Query().Get("market_type"))

	quotes := make([]map[string]any, 0)

	for _, symbol := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		price, ok := s.prices[types.AssetKey{MarketType: marketType, Symbol: strings.ToUpper(symbol)}]
		if !ok {
			continue
		}

		quotes = append(quotes, map[string]any{
			"symbol": strings.ToUpper(symbol),
			"price":  price,
			"name":   strings.ToUpper(symbol),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

func (s *MockEdgeServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if vars["bucket"] != s.bucket {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Bucket not found", "message": "Bucket not found"})
		return
	}

	objectPath := vars["path"]
	if _, exists := s.objects[objectPath]; exists && r.Header.Get("x-upsert") != "true" {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Duplicate", "message": "The resource already exists"})
		return
	}

	s.objects[objectPath] = data

	writeJSON(w, http.StatusOK, map[string]string{"Key": s.bucket + "/" + objectPath})
}

func (s *MockEdgeServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.mu.RLock()
	data, ok := s.objects[vars["path"]]
	s.mu.RUnlock()

	if vars["bucket"] != s.bucket || !ok {
		http.Error(w, "object not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func invalid(err error) *Failure {
	return &Failure{Status: http.StatusBadRequest, Message: err.Error(), Code: CodeInvalidRequest}
}

func writeFailure(w http.ResponseWriter, failure Failure) {
	status := failure.Status
	if status == 0 {
		status = http.StatusBadRequest
	}

	if failure.Message == "" {
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, status, map[string]any{
		"data":  nil,
		"error": map[string]string{"message": failure.Message, "code": failure.Code},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
