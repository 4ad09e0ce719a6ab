package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// unavailable wraps a transport or auth failure. A cancelled or expired
// context is reported the same way so the aggregator can move on.
func unavailable(provider string, cause error) *errors.Error {
	return errors.Wrapf(errors.ErrCodeProviderUnavailable, cause, "%s: request failed", provider)
}

func rateLimited(provider string, cause error) *errors.Error {
	return errors.Wrapf(errors.ErrCodeRateLimited, cause, "%s: rate limited", provider)
}

func malformed(provider string, format string, args ...any) *errors.Error {
	e := errors.Newf(errors.ErrCodeMalformedResponse, format, args...)
	e.Message = provider + ": " + e.Message

	return e
}

// fromStatus maps an HTTP status to the provider error taxonomy.
func fromStatus(provider string, status int, cause error) *errors.Error {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusTeapot:
		// binance answers 418 once an IP is banned for ignoring 429s
		return rateLimited(provider, cause)
	default:
		return unavailable(provider, cause)
	}
}

func ctxErr(ctx context.Context, provider string) error {
	if err := ctx.Err(); err != nil {
		return unavailable(provider, err)
	}

	return nil
}

// CategoryFailure is the error one category of a Fetch ended with.
type CategoryFailure struct {
	MarketType types.MarketType
	Err        error
}

// PartialError is returned by Fetch together with the assets that were
// quoted. Categories not listed in Failures are complete; failed categories
// may still carry the symbols quoted before the failure.
type PartialError struct {
	Provider string
	Failures []CategoryFailure
}

func (e *PartialError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.MarketType, f.Err))
	}

	return fmt.Sprintf("%s: %d categories failed: %s", e.Provider, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the category errors, so errors.GetCode reports the first one.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}

	return errs
}

// FailedMarketTypes lists the failed categories in request order.
func (e *PartialError) FailedMarketTypes() []types.MarketType {
	out := make([]types.MarketType, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.MarketType)
	}

	return out
}

// collector accumulates the outcome of a multi-category Fetch.
type collector struct {
	provider string
	assets   []types.Asset
	failures []CategoryFailure
}

func (c *collector) add(assets []types.Asset) {
	c.assets = append(c.assets, assets...)
}

// fail records the first error of a category.
func (c *collector) fail(marketType types.MarketType, err error) {
	for _, f := range c.failures {
		if f.MarketType == marketType {
			return
		}
	}

	c.failures = append(c.failures, CategoryFailure{MarketType: marketType, Err: err})
}

// result returns every collected asset. When nothing was quoted and a single
// category failed, its error is returned as is.
func (c *collector) result() ([]types.Asset, error) {
	switch {
	case len(c.failures) == 0:
		return c.assets, nil
	case len(c.assets) == 0 && len(c.failures) == 1:
		return nil, c.failures[0].Err
	default:
		return c.assets, &PartialError{Provider: c.provider, Failures: c.failures}
	}
}
