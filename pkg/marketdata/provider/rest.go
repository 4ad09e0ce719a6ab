package provider

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
	"github.com/rxtech-lab/argo-retail/pkg/utils"
)

const defaultRESTTimeout = 10 * time.Second

// RESTClientConfig configures a generic REST quote endpoint.
type RESTClientConfig struct {
	Name        string
	BaseURL     string
	APIKey      string
	BatchSize   int
	MarketTypes []types.MarketType
	Timeout     time.Duration
}

// restQuote is one entry of the quotes payload. Unknown members are ignored,
// known members must have the declared shape.
type restQuote struct {
	Symbol        string   `json:"symbol" validate:"required"`
	Price         *float64 `json:"price" validate:"required,gt=0"`
	Name          string   `json:"name"`
	ChangePercent *float64 `json:"change_percent"`
}

type restQuotesResponse struct {
	Quotes []restQuote `json:"quotes" validate:"required,dive"`
}

// RESTClient quotes any configured category from GET {base}/quotes?symbols=A,B.
type RESTClient struct {
	name        string
	client      *resty.Client
	batchSize   int
	marketTypes []types.MarketType
	validate    *validator.Validate
	now         func() time.Time
}

func NewRESTClient(config RESTClientConfig) (*RESTClient, error) {
	if config.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "rest provider requires a base URL")
	}

	name := config.Name
	if name == "" {
		name = string(ProviderREST)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultRESTTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}

	return &RESTClient{
		name:        name,
		client:      client,
		batchSize:   config.BatchSize,
		marketTypes: slices.Clone(config.MarketTypes),
		validate:    validator.New(),
		now:         time.Now,
	}, nil
}

func (c *RESTClient) Name() string {
	return c.name
}

// Supports reports whether the category is configured. No configured categories means all.
func (c *RESTClient) Supports(marketType types.MarketType) bool {
	if len(c.marketTypes) == 0 {
		return true
	}

	return slices.Contains(c.marketTypes, marketType)
}

func (c *RESTClient) Fetch(ctx context.Context, marketTypes []types.MarketType, symbols map[types.MarketType][]string) ([]types.Asset, error) {
	out := collector{provider: c.name}

	for _, mt := range requested(c, marketTypes, symbols) {
		for _, chunk := range utils.ChunkStrings(symbols[mt], c.batchSize) {
			if err := ctxErr(ctx, c.name); err != nil {
				out.fail(mt, err)

				break
			}

			batch, err := c.fetchChunk(ctx, mt, chunk)
			out.add(batch)

			if err != nil {
				out.fail(mt, err)
			}
		}
	}

	return out.result()
}

func (c *RESTClient) fetchChunk(ctx context.Context, marketType types.MarketType, symbols []string) ([]types.Asset, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		SetQueryParam("market_type", string(marketType)).
		Get("/quotes")
	if err != nil {
		return nil, unavailable(c.name, err)
	}

	if resp.IsError() {
		return nil, fromStatus(c.name, resp.StatusCode(), errors.Newf(errors.ErrCodeUnknown, "status %d", resp.StatusCode()))
	}

	var payload restQuotesResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMalformedResponse, err, "%s: undecodable quotes payload", c.name)
	}

	if err := c.validate.Struct(payload); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMalformedResponse, err, "%s: invalid quotes payload", c.name)
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	now := c.now()
	assets := make([]types.Asset, 0, len(payload.Quotes))

	for _, q := range payload.Quotes {
		sym := strings.ToUpper(q.Symbol)
		if _, ok := wanted[sym]; !ok {
			continue
		}

		asset := newAsset(c.name, marketType, sym, *q.Price, now)
		asset.Name = someString(q.Name)

		if q.ChangePercent != nil {
			asset.ChangePercent = someFloat(*q.ChangePercent)
		}

		assets = append(assets, asset)
		delete(wanted, sym)
	}

	return assets, nil
}
