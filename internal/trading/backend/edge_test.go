package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type EdgeClientTestSuite struct {
	suite.Suite
	server *httptest.Server
	client *EdgeClient

	mu         sync.Mutex
	status     int
	body       string
	calls      int
	lastBody   map[string]any
	requestIDs []string
	auth       string
	apikey     string
	delay      time.Duration
}

func TestEdgeClientSuite(t *testing.T) {
	suite.Run(t, new(EdgeClientTestSuite))
}

func (suite *EdgeClientTestSuite) SetupTest() {
	suite.status = http.StatusOK
	suite.body = `{"data":{"id":"pos-1"},"error":null}`
	suite.calls = 0
	suite.requestIDs = nil
	suite.delay = 0

	router := mux.NewRouter()
	router.HandleFunc("/{function}", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)

		suite.mu.Lock()
		suite.calls++
		suite.requestIDs = append(suite.requestIDs, r.Header.Get(RequestIDHeader))
		suite.auth = r.Header.Get("Authorization")
		suite.apikey = r.Header.Get("apikey")
		suite.lastBody = nil
		_ = json.Unmarshal(raw, &suite.lastBody)
		status, body, delay := suite.status, suite.body, suite.delay
		suite.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}).Methods(http.MethodPost)

	suite.server = httptest.NewServer(router)

	client, err := NewEdgeClient(EdgeConfig{
		BaseURL:     suite.server.URL + "/",
		APIKey:      "anon",
		AccessToken: "session",
		Timeout:     time.Second,
	})
	suite.Require().NoError(err)
	suite.client = client
}

func (suite *EdgeClientTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *EdgeClientTestSuite) respond(status int, body string) {
	suite.mu.Lock()
	defer suite.mu.Unlock()

	suite.status = status
	suite.body = body
}

func (suite *EdgeClientTestSuite) TestDecodesData() {
	var out struct {
		ID string `json:"id"`
	}

	err := suite.client.Invoke(context.Background(), FunctionOpenPosition, map[string]any{"symbol": "AAPL"}, &out)
	suite.NoError(err)
	suite.Equal("pos-1", out.ID)
	suite.Equal("AAPL", suite.lastBody["symbol"])
	suite.Equal("Bearer session", suite.auth)
	suite.Equal("anon", suite.apikey)
}

func (suite *EdgeClientTestSuite) TestFreshRequestIDPerCall() {
	for range 2 {
		suite.NoError(suite.client.Invoke(context.Background(), FunctionGetPortfolio, nil, nil))
	}

	suite.Len(suite.requestIDs, 2)
	suite.NotEmpty(suite.requestIDs[0])
	suite.NotEqual(suite.requestIDs[0], suite.requestIDs[1])
}

func (suite *EdgeClientTestSuite) TestStringErrorIsRejection() {
	suite.respond(http.StatusBadRequest, `{"data":null,"error":"insufficient margin"}`)

	err := suite.client.Invoke(context.Background(), FunctionOpenPosition, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderRejected))
	suite.Equal("insufficient margin", errors.GetMessage(err))

	rejection, ok := RejectionOf(err)
	suite.True(ok)
	suite.Empty(rejection.Code)
}

func (suite *EdgeClientTestSuite) TestObjectErrorCarriesCode() {
	suite.respond(http.StatusOK, `{"error":{"message":"position already closed","code":"already_closed"}}`)

	err := suite.client.Invoke(context.Background(), FunctionClosePosition, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderRejected))

	rejection, ok := RejectionOf(err)
	suite.Require().True(ok)
	suite.Equal("already_closed", rejection.Code)
	suite.Equal("position already closed", rejection.Message)
}

func (suite *EdgeClientTestSuite) TestServerErrorIsUnavailable() {
	suite.respond(http.StatusBadGateway, `<html>bad gateway</html>`)

	err := suite.client.Invoke(context.Background(), FunctionClosePosition, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeBackendUnavailable))
	suite.Equal(1, suite.calls)
}

func (suite *EdgeClientTestSuite) TestMissingEnvelopeIsMalformed() {
	suite.respond(http.StatusOK, `{"ok":true}`)

	err := suite.client.Invoke(context.Background(), FunctionOpenPosition, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedBackendResponse))
}

func (suite *EdgeClientTestSuite) TestGarbageBodyIsMalformed() {
	suite.respond(http.StatusOK, `not json`)

	err := suite.client.Invoke(context.Background(), FunctionOpenPosition, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedBackendResponse))
}

func (suite *EdgeClientTestSuite) TestUnexpectedDataShapeIsMalformed() {
	suite.respond(http.StatusOK, `{"data":{"id":42}}`)

	var out struct {
		ID string `json:"id"`
	}

	err := suite.client.Invoke(context.Background(), FunctionOpenPosition, nil, &out)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedBackendResponse))
}

func (suite *EdgeClientTestSuite) TestTimeoutIsUnavailableAndNotRetried() {
	suite.mu.Lock()
	suite.delay = 300 * time.Millisecond
	suite.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := suite.client.Invoke(ctx, FunctionFillEntryOrder, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeBackendUnavailable))

	time.Sleep(350 * time.Millisecond)
	suite.mu.Lock()
	defer suite.mu.Unlock()
	suite.Equal(1, suite.calls)
}

func (suite *EdgeClientTestSuite) TestRequiresBaseURL() {
	_, err := NewEdgeClient(EdgeConfig{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *EdgeClientTestSuite) TestRejectDefaultsMessage() {
	err := Reject("", "x")
	suite.Equal("rejected by backend", errors.GetMessage(err))

	_, ok := RejectionOf(errors.New(errors.ErrCodeOrderRejected, "plain"))
	suite.False(ok)
}
