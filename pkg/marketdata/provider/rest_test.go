package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-retail/internal/types"
	perrors "github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RESTClientTestSuite struct {
	suite.Suite
	server   *httptest.Server
	mu       sync.Mutex
	status   int
	body     string
	requests []string
	auth     string
	failing  string
}

func TestRESTClientSuite(t *testing.T) {
	suite.Run(t, new(RESTClientTestSuite))
}

func (suite *RESTClientTestSuite) SetupTest() {
	suite.status = http.StatusOK
	suite.body = `{"quotes":[]}`
	suite.requests = nil
	suite.failing = ""

	router := mux.NewRouter()
	router.HandleFunc("/quotes", func(w http.ResponseWriter, r *http.Request) {
		suite.mu.Lock()
		suite.requests = append(suite.requests, r.URL.Query().Get("symbols"))
		suite.auth = r.Header.Get("Authorization")
		status, body := suite.status, suite.body
		if suite.failing != "" && r.URL.Query().Get("symbols") == suite.failing {
			status = http.StatusServiceUnavailable
		}
		suite.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}).Methods(http.MethodGet)

	suite.server = httptest.NewServer(router)
}

func (suite *RESTClientTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *RESTClientTestSuite) newClient(batch int) *RESTClient {
	client, err := NewRESTClient(RESTClientConfig{
		Name:        "backup",
		BaseURL:     suite.server.URL + "/",
		APIKey:      "secret",
		BatchSize:   batch,
		MarketTypes: []types.MarketType{types.MarketTypeStocks},
	})
	suite.Require().NoError(err)

	return client
}

func (suite *RESTClientTestSuite) fetch(client *RESTClient, symbols ...string) ([]types.Asset, error) {
	return client.Fetch(context.Background(),
		[]types.MarketType{types.MarketTypeStocks},
		map[types.MarketType][]string{types.MarketTypeStocks: symbols})
}

func (suite *RESTClientTestSuite) TestRequiresBaseURL() {
	_, err := NewRESTClient(RESTClientConfig{})
	suite.True(perrors.HasCode(err, perrors.ErrCodeInvalidConfiguration))
}

func (suite *RESTClientTestSuite) TestSupportsConfiguredCategories() {
	client := suite.newClient(0)
	suite.True(client.Supports(types.MarketTypeStocks))
	suite.False(client.Supports(types.MarketTypeCrypto))

	open, err := NewRESTClient(RESTClientConfig{BaseURL: suite.server.URL})
	suite.NoError(err)
	suite.True(open.Supports(types.MarketTypeCrypto))
	suite.Equal("rest", open.Name())
}

func (suite *RESTClientTestSuite) TestFetchDecodesQuotes() {
	suite.body = `{"quotes":[
		{"symbol":"aapl","price":190.5,"name":"Apple Inc.","change_percent":1.2,"extra":"ignored"},
		{"symbol":"MSFT","price":410}
	]}`
	client := suite.newClient(0)

	assets, err := suite.fetch(client, "AAPL", "MSFT", "GOOGL")
	suite.NoError(err)
	suite.Len(assets, 2)
	suite.Equal("AAPL", assets[0].Symbol)
	suite.Equal("Apple Inc.", assets[0].Name.Unwrap())
	suite.Equal(1.2, assets[0].ChangePercent.Unwrap())
	suite.Equal("backup", assets[0].Source)
	suite.True(assets[1].Name.IsNone())
	suite.True(assets[1].ChangePercent.IsNone())
	suite.Equal("Bearer secret", suite.auth)
	suite.Equal([]string{"AAPL,MSFT,GOOGL"}, suite.requests)
}

func (suite *RESTClientTestSuite) TestFetchBatches() {
	client := suite.newClient(2)

	_, err := suite.fetch(client, "A", "B", "C", "D", "E")
	suite.NoError(err)
	suite.Equal([]string{"A,B", "C,D", "E"}, suite.requests)
}

func (suite *RESTClientTestSuite) TestFetchFailedChunkKeepsOthers() {
	suite.body = `{"quotes":[{"symbol":"A","price":1},{"symbol":"B","price":2}]}`
	suite.failing = "C,D"
	client := suite.newClient(2)

	assets, err := suite.fetch(client, "A", "B", "C", "D")

	suite.True(perrors.HasCode(err, perrors.ErrCodeProviderUnavailable))
	suite.Require().Len(assets, 2)
	suite.Equal("A", assets[0].Symbol)
	suite.Equal("B", assets[1].Symbol)
	suite.Equal([]string{"A,B", "C,D"}, suite.requests)
}

func (suite *RESTClientTestSuite) TestFetchFailsClosedOnBadShapes() {
	bodies := []string{
		`not json`,
		`{}`,
		`{"quotes":[{"symbol":"AAPL"}]}`,
		`{"quotes":[{"symbol":"AAPL","price":0}]}`,
		`{"quotes":[{"symbol":"AAPL","price":"190"}]}`,
		`{"quotes":[{"price":190}]}`,
	}

	for _, body := range bodies {
		suite.body = body
		_, err := suite.fetch(suite.newClient(0), "AAPL")
		suite.True(perrors.HasCode(err, perrors.ErrCodeMalformedResponse), body)
	}
}

func (suite *RESTClientTestSuite) TestFetchStatusMapping() {
	suite.status = http.StatusTooManyRequests
	_, err := suite.fetch(suite.newClient(0), "AAPL")
	suite.True(perrors.HasCode(err, perrors.ErrCodeRateLimited))

	suite.status = http.StatusInternalServerError
	_, err = suite.fetch(suite.newClient(0), "AAPL")
	suite.True(perrors.HasCode(err, perrors.ErrCodeProviderUnavailable))
}

func (suite *RESTClientTestSuite) TestFetchUnreachable() {
	client, err := NewRESTClient(RESTClientConfig{BaseURL: "http://127.0.0.1:1"})
	suite.Require().NoError(err)

	_, err = suite.fetch(client, "AAPL")
	suite.True(perrors.HasCode(err, perrors.ErrCodeProviderUnavailable))
	suite.True(strings.Contains(err.Error(), "rest"))
}
