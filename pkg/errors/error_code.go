package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidQuantity      ErrorCode = 102
	ErrCodeInvalidLeverage      ErrorCode = 103
	ErrCodeInvalidPrice         ErrorCode = 104
	ErrCodeInvalidDirection     ErrorCode = 105
	ErrCodeInvalidOrderType     ErrorCode = 106
	ErrCodeInvalidTakeProfit    ErrorCode = 107
	ErrCodeInvalidStopLoss      ErrorCode = 108
	ErrCodeInvalidTransition    ErrorCode = 109
	ErrCodeMissingParameter     ErrorCode = 110

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound ErrorCode = 200

	// Execution errors (500-599)
	ErrCodeOrderRejected            ErrorCode = 500
	ErrCodePositionNotFound         ErrorCode = 501
	ErrCodeAlreadyClosed            ErrorCode = 502
	ErrCodeOrderNotFound            ErrorCode = 503
	ErrCodeBackendUnavailable       ErrorCode = 504
	ErrCodeMalformedBackendResponse ErrorCode = 505

	// Market data errors (700-799)
	ErrCodeProviderUnavailable   ErrorCode = 700
	ErrCodeRateLimited           ErrorCode = 701
	ErrCodeMalformedResponse     ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 703
	ErrCodeUnsupportedMarketType ErrorCode = 704

	// Storage errors (900-999)
	ErrCodeStorageUploadFailed ErrorCode = 900
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                  "unknown",
	ErrCodeInvalidParameter:         "invalid_parameter",
	ErrCodeInvalidConfiguration:     "invalid_configuration",
	ErrCodeInvalidQuantity:          "invalid_quantity",
	ErrCodeInvalidLeverage:          "invalid_leverage",
	ErrCodeInvalidPrice:             "invalid_price",
	ErrCodeInvalidDirection:         "invalid_direction",
	ErrCodeInvalidOrderType:         "invalid_order_type",
	ErrCodeInvalidTakeProfit:        "invalid_take_profit",
	ErrCodeInvalidStopLoss:          "invalid_stop_loss",
	ErrCodeInvalidTransition:        "invalid_transition",
	ErrCodeMissingParameter:         "missing_parameter",
	ErrCodeDataNotFound:             "data_not_found",
	ErrCodeOrderRejected:            "order_rejected",
	ErrCodePositionNotFound:         "position_not_found",
	ErrCodeAlreadyClosed:            "already_closed",
	ErrCodeOrderNotFound:            "order_not_found",
	ErrCodeBackendUnavailable:       "backend_unavailable",
	ErrCodeMalformedBackendResponse: "malformed_backend_response",
	ErrCodeProviderUnavailable:      "provider_unavailable",
	ErrCodeRateLimited:              "rate_limited",
	ErrCodeMalformedResponse:        "malformed_response",
	ErrCodeInvalidProvider:          "invalid_provider",
	ErrCodeUnsupportedMarketType:    "unsupported_market_type",
	ErrCodeStorageUploadFailed:      "storage_upload_failed",
}

// String returns the snake_case name of the code, used in logs and CLI output.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}

	return codeNames[ErrCodeUnknown]
}

// IsMarketData reports whether the code belongs to the market data range.
// These codes are absorbed by the aggregator and never reach its callers.
func (c ErrorCode) IsMarketData() bool {
	return c >= 700 && c < 800
}

// IsValidation reports whether the code belongs to the validation range.
func (c ErrorCode) IsValidation() bool {
	return c >= 100 && c < 200
}
