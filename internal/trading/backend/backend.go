// Package backend talks to the managed backend that owns every account
// mutation. Each mutation is an edge function invoked once over HTTP; the
// backend decides whether it applies.
package backend

import (
	"context"

	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// Function is the name of an edge function.
type Function string

const (
	FunctionOpenPosition        Function = "open-position"
	FunctionPlaceEntryOrder     Function = "place-entry-order"
	FunctionCancelEntryOrder    Function = "cancel-entry-order"
	FunctionFillEntryOrder      Function = "fill-entry-order"
	FunctionClosePosition       Function = "close-position"
	FunctionRemoveFromPortfolio Function = "remove-from-portfolio"
	FunctionGetPortfolio        Function = "get-portfolio"
)

// Backend invokes one edge function with a JSON payload and decodes the
// data member of the response into out. Implementations never retry.
//
// Errors:
//   - OrderRejected: the backend refused the mutation, nothing changed.
//   - BackendUnavailable: transport failure, the outcome is unknown.
//   - MalformedBackendResponse: the response could not be decoded.
type Backend interface {
	Invoke(ctx context.Context, function Function, payload any, out any) error
}

// Rejection is the backend's own account of a refused mutation. It is the
// cause of every OrderRejected error returned by a Backend.
type Rejection struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (r *Rejection) Error() string {
	if r.Code == "" {
		return r.Message
	}

	return r.Code + ": " + r.Message
}

// Reject builds the OrderRejected error for a backend refusal.
func Reject(message, code string) error {
	if message == "" {
		message = "rejected by backend"
	}

	return errors.Wrap(errors.ErrCodeOrderRejected, message, &Rejection{Message: message, Code: code})
}

// RejectionOf extracts the backend rejection from err, if there is one.
func RejectionOf(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}

	return nil, false
}
