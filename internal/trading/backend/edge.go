package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 15 * time.Second
	// RequestIDHeader carries a fresh id per invocation so the backend can
	// correlate a call whose outcome the client never learned.
	RequestIDHeader = "X-Request-Id"
)

// EdgeConfig configures the edge-function client.
type EdgeConfig struct {
	// BaseURL is the functions root, e.g. https://project.example.co/functions/v1
	BaseURL string `yaml:"base_url" json:"base_url" validate:"required,url" jsonschema:"title=Functions URL"`
	// APIKey is the public project key sent as the apikey header.
	APIKey string `yaml:"api_key" json:"api_key" jsonschema:"title=API Key"`
	// AccessToken is the user session token sent as a bearer token.
	AccessToken string        `yaml:"access_token" json:"access_token" jsonschema:"title=Access Token"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"title=Timeout"`
}

// envelope is the response body of every edge function. Exactly one of the
// two members is expected to be non-null.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

// EdgeClient invokes edge functions with resty.
type EdgeClient struct {
	client *resty.Client
	log    *logger.Logger
	newID  func() string
}

// EdgeOption configures an EdgeClient.
type EdgeOption func(*EdgeClient)

// WithLogger sets the logger used for failed invocations.
func WithLogger(log *logger.Logger) EdgeOption {
	return func(c *EdgeClient) {
		c.log = log
	}
}

// WithRequestIDs replaces the request id generator.
func WithRequestIDs(newID func() string) EdgeOption {
	return func(c *EdgeClient) {
		c.newID = newID
	}
}

// NewEdgeClient creates a client for the functions at config.BaseURL.
func NewEdgeClient(config EdgeConfig, opts ...EdgeOption) (*EdgeClient, error) {
	if config.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "backend base URL is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if config.APIKey != "" {
		client.SetHeader("apikey", config.APIKey)
	}

	if config.AccessToken != "" {
		client.SetAuthToken(config.AccessToken)
	} else if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}

	c := &EdgeClient{
		client: client,
		log:    logger.NewNopLogger(),
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// SetAccessToken switches the bearer token, e.g. after a session refresh.
func (c *EdgeClient) SetAccessToken(token string) {
	c.client.SetAuthToken(token)
}

func (c *EdgeClient) Invoke(ctx context.Context, function Function, payload any, out any) error {
	requestID := c.newID()

	req := c.client.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID)

	if payload != nil {
		req.SetBody(payload)
	} else {
		req.SetBody(map[string]any{})
	}

	resp, err := req.Post("/" + string(function))
	if err != nil {
		c.log.Warn("backend call failed",
			zap.String("function", string(function)),
			zap.String("request_id", requestID),
			zap.Error(err),
		)

		return errors.Wrapf(errors.ErrCodeBackendUnavailable, err, "%s: outcome unknown", function)
	}

	return c.decode(function, requestID, resp.StatusCode(), resp.Body(), out)
}

func (c *EdgeClient) decode(function Function, requestID string, status int, body []byte, out any) error {
	var env envelope

	decodeErr := json.Unmarshal(body, &env)

	if decodeErr == nil && !isNull(env.Error) {
		rejection, err := parseRejection(env.Error)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeMalformedBackendResponse, err, "%s: unreadable error member", function)
		}

		c.log.Info("backend rejected call",
			zap.String("function", string(function)),
			zap.String("request_id", requestID),
			zap.String("code", rejection.Code),
			zap.String("reason", rejection.Message),
		)

		return Reject(rejection.Message, rejection.Code)
	}

	// Gateway and server failures without an error member leave the outcome unknown.
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return errors.Newf(errors.ErrCodeBackendUnavailable, "%s: status %d", function, status)
	}

	if decodeErr != nil {
		return errors.Wrapf(errors.ErrCodeMalformedBackendResponse, decodeErr, "%s: status %d", function, status)
	}

	if status >= http.StatusBadRequest {
		return Reject(http.StatusText(status), "")
	}

	if isNull(env.Data) {
		return errors.Newf(errors.ErrCodeMalformedBackendResponse, "%s: response has neither data nor error", function)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(errors.ErrCodeMalformedBackendResponse, err, "%s: unexpected data shape", function)
	}

	return nil
}

// parseRejection accepts either a bare string or {message, code}.
func parseRejection(raw json.RawMessage) (*Rejection, error) {
	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return &Rejection{Message: message}, nil
	}

	var rejection Rejection
	if err := json.Unmarshal(raw, &rejection); err != nil {
		return nil, err
	}

	return &rejection, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
