// Package storage uploads user documents (KYC files) to the object store
// that sits next to the trade backend.
package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-retail/internal/logger"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"go.uber.org/zap"
)

const defaultTimeout = 60 * time.Second

// Config configures the object store client.
type Config struct {
	BaseURL     string        `yaml:"base_url" json:"base_url" validate:"required,url" jsonschema:"title=Storage URL"`
	Bucket      string        `yaml:"bucket" json:"bucket" validate:"required" jsonschema:"title=Bucket"`
	APIKey      string        `yaml:"api_key" json:"api_key" jsonschema:"title=API Key"`
	AccessToken string        `yaml:"access_token" json:"access_token" jsonschema:"title=Access Token"`
	Upsert      bool          `yaml:"upsert" json:"upsert" jsonschema:"title=Overwrite existing"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"title=Timeout"`
}

// UploadResult identifies a stored object.
type UploadResult struct {
	Path string `json:"path"`
	Key  string `json:"key"`
}

type uploadResponse struct {
	Key   string `json:"Key"`
	Error string `json:"error"`
	// Message accompanies Error on failures.
	Message string `json:"message"`
}

// DocumentStore uploads files and resolves their public URLs.
type DocumentStore struct {
	client  *resty.Client
	baseURL string
	bucket  string
	upsert  bool
	log     *logger.Logger
}

// NewDocumentStore creates a store for config.Bucket.
func NewDocumentStore(config Config, log *logger.Logger) (*DocumentStore, error) {
	if config.BaseURL == "" || config.Bucket == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "storage requires a base URL and a bucket")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	if config.APIKey != "" {
		client.SetHeader("apikey", config.APIKey)
	}

	token := config.AccessToken
	if token == "" {
		token = config.APIKey
	}

	if token != "" {
		client.SetAuthToken(token)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DocumentStore{
		client:  client,
		baseURL: baseURL,
		bucket:  config.Bucket,
		upsert:  config.Upsert,
		log:     log,
	}, nil
}

// Upload stores the content under objectPath. Any failure is StorageUploadFailed.
func (s *DocumentStore) Upload(ctx context.Context, objectPath string, content io.Reader, contentType string) (UploadResult, error) {
	clean, err := cleanPath(objectPath)
	if err != nil {
		return UploadResult{}, err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", boolHeader(s.upsert)).
		SetBody(content).
		Post(s.objectURL(clean))
	if err != nil {
		return UploadResult{}, errors.Wrapf(errors.ErrCodeStorageUploadFailed, err, "upload %s", clean)
	}

	var body uploadResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	// error bodies are not always JSON; their status is reason enough
	if decodeErr != nil && !resp.IsError() {
		s.log.Warn("undecodable upload response", zap.String("path", clean), zap.Int("status", resp.StatusCode()), zap.Error(decodeErr))

		return UploadResult{}, errors.Wrapf(errors.ErrCodeStorageUploadFailed, decodeErr, "upload %s: undecodable response", clean)
	}

	if resp.IsError() || body.Error != "" {
		reason := body.Message
		if reason == "" {
			reason = body.Error
		}

		if reason == "" {
			reason = resp.Status()
		}

		s.log.Warn("document upload failed", zap.String("path", clean), zap.Int("status", resp.StatusCode()), zap.String("reason", reason))

		return UploadResult{}, errors.Newf(errors.ErrCodeStorageUploadFailed, "upload %s: %s", clean, reason)
	}

	key := body.Key
	if key == "" {
		key = s.bucket + "/" + clean
	}

	return UploadResult{Path: clean, Key: key}, nil
}

// GetPublicURL returns the public URL of objectPath. It does not check that
// the object exists.
func (s *DocumentStore) GetPublicURL(objectPath string) string {
	clean, err := cleanPath(objectPath)
	if err != nil {
		clean = strings.TrimLeft(objectPath, "/")
	}

	return s.baseURL + "/storage/v1/object/public/" + url.PathEscape(s.bucket) + "/" + escapePath(clean)
}

func (s *DocumentStore) objectURL(clean string) string {
	return "/storage/v1/object/" + url.PathEscape(s.bucket) + "/" + escapePath(clean)
}

func cleanPath(objectPath string) (string, error) {
	clean := strings.TrimLeft(path.Clean("/"+objectPath), "/")
	if clean == "" || clean == "." {
		return "", errors.New(errors.ErrCodeMissingParameter, "object path is required")
	}

	return clean, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}

func boolHeader(v bool) string {
	if v {
		return "true"
	}

	return "false"
}
