package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// validate is shared; validator caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// fieldCodes maps a failing struct field to the error code surfaced to callers.
var fieldCodes = map[string]errors.ErrorCode{
	"Quantity":     errors.ErrCodeInvalidQuantity,
	"Leverage":     errors.ErrCodeInvalidLeverage,
	"Price":        errors.ErrCodeInvalidPrice,
	"TargetPrice":  errors.ErrCodeInvalidPrice,
	"CurrentPrice": errors.ErrCodeInvalidPrice,
	"TriggerPrice": errors.ErrCodeInvalidPrice,
	"Direction":    errors.ErrCodeInvalidDirection,
	"OrderType":    errors.ErrCodeInvalidOrderType,
	"UserID":       errors.ErrCodeMissingParameter,
	"PositionID":   errors.ErrCodeMissingParameter,
	"OrderID":      errors.ErrCodeMissingParameter,
	"Symbol":       errors.ErrCodeMissingParameter,
	"MarketType":   errors.ErrCodeUnsupportedMarketType,
}

func validateStruct(v any, message string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if code, ok := fieldCodes[fieldErrs[0].StructField()]; ok {
			return errors.Wrap(code, message, err)
		}
	}

	return errors.Wrap(errors.ErrCodeInvalidParameter, message, err)
}

func validateThresholds(takeProfit, stopLoss optional.Option[float64]) error {
	if takeProfit.IsSome() && takeProfit.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidTakeProfit, "take profit must be positive, got %v", takeProfit.Unwrap())
	}

	if stopLoss.IsSome() && stopLoss.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidStopLoss, "stop loss must be positive, got %v", stopLoss.Unwrap())
	}

	return nil
}
