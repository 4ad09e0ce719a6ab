package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DocumentStoreTestSuite struct {
	suite.Suite
	server      *httptest.Server
	store       *DocumentStore
	status      int
	response    string
	gotBody     string
	gotType     string
	gotUpsert   string
	gotPath     string
	gotAuthHead string
}

func TestDocumentStoreSuite(t *testing.T) {
	suite.Run(t, new(DocumentStoreTestSuite))
}

func (suite *DocumentStoreTestSuite) SetupTest() {
	suite.status = http.StatusOK
	suite.response = `{"Key":"kyc/user-1/passport.pdf"}`

	router := mux.NewRouter()
	router.HandleFunc("/storage/v1/object/{bucket}/{path:.*}", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		suite.gotBody = string(raw)
		suite.gotType = r.Header.Get("Content-Type")
		suite.gotUpsert = r.Header.Get("x-upsert")
		suite.gotPath = mux.Vars(r)["bucket"] + "/" + mux.Vars(r)["path"]
		suite.gotAuthHead = r.Header.Get("Authorization")

		w.WriteHeader(suite.status)
		_, _ = w.Write([]byte(suite.response))
	}).Methods(http.MethodPost)

	suite.server = httptest.NewServer(router)

	store, err := NewDocumentStore(Config{BaseURL: suite.server.URL, Bucket: "kyc", APIKey: "anon", AccessToken: "session"}, nil)
	suite.Require().NoError(err)
	suite.store = store
}

func (suite *DocumentStoreTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *DocumentStoreTestSuite) TestUpload() {
	result, err := suite.store.Upload(context.Background(), "/user-1/passport.pdf", strings.NewReader("%PDF"), "application/pdf")
	suite.Require().NoError(err)
	suite.Equal("user-1/passport.pdf", result.Path)
	suite.Equal("kyc/user-1/passport.pdf", result.Key)

	suite.Equal("%PDF", suite.gotBody)
	suite.Equal("application/pdf", suite.gotType)
	suite.Equal("false", suite.gotUpsert)
	suite.Equal("kyc/user-1/passport.pdf", suite.gotPath)
	suite.Equal("Bearer session", suite.gotAuthHead)
}

func (suite *DocumentStoreTestSuite) TestUploadFailureCarriesReason() {
	suite.status = http.StatusBadRequest
	suite.response = `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`

	_, err := suite.store.Upload(context.Background(), "user-1/passport.pdf", strings.NewReader("x"), "")
	suite.True(errors.HasCode(err, errors.ErrCodeStorageUploadFailed))
	suite.Contains(err.Error(), "The resource already exists")
	suite.Equal("application/octet-stream", suite.gotType)
}

func (suite *DocumentStoreTestSuite) TestUploadRejectsUndecodableSuccess() {
	suite.response = `<html>gateway</html>`

	_, err := suite.store.Upload(context.Background(), "user-1/passport.pdf", strings.NewReader("x"), "")
	suite.True(errors.HasCode(err, errors.ErrCodeStorageUploadFailed))
	suite.Contains(err.Error(), "undecodable response")
}

func (suite *DocumentStoreTestSuite) TestUploadFailureWithPlainBody() {
	suite.status = http.StatusBadGateway
	suite.response = `bad gateway`

	_, err := suite.store.Upload(context.Background(), "user-1/passport.pdf", strings.NewReader("x"), "")
	suite.True(errors.HasCode(err, errors.ErrCodeStorageUploadFailed))
	suite.Contains(err.Error(), "502")
}

func (suite *DocumentStoreTestSuite) TestUploadUnreachable() {
	suite.server.Close()

	_, err := suite.store.Upload(context.Background(), "user-1/a.png", strings.NewReader("x"), "image/png")
	suite.True(errors.HasCode(err, errors.ErrCodeStorageUploadFailed))
}

func (suite *DocumentStoreTestSuite) TestUploadRequiresPath() {
	_, err := suite.store.Upload(context.Background(), "/", strings.NewReader("x"), "")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *DocumentStoreTestSuite) TestGetPublicURL() {
	suite.Equal(suite.server.URL+"/storage/v1/object/public/kyc/user-1/my%20id.png", suite.store.GetPublicURL("user-1/my id.png"))
	suite.Equal(suite.server.URL+"/storage/v1/object/public/kyc/a/b.png", suite.store.GetPublicURL("/a/../a/b.png"))
}

func (suite *DocumentStoreTestSuite) TestRequiresConfig() {
	_, err := NewDocumentStore(Config{BaseURL: "http://x"}, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
