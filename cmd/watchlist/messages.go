package main

import (
	"context"

	"github.com/rxtech-lab/argo-retail/internal/types"
)

// QuotesMsg carries one aggregation cycle from the poller.
type QuotesMsg struct {
	Batch types.QuoteBatch
}

// StreamErrorMsg indicates an error in the quote stream.
type StreamErrorMsg struct {
	Err error
}

// StreamStartedMsg signals that polling has begun.
type StreamStartedMsg struct {
	Cancel context.CancelFunc
}
