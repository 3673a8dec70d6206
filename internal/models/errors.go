package models

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidQuantity is returned when a line item does not hold a positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be positive and finite")

// ErrNonFiniteValue is returned when a valuation produces NaN or infinity.
var ErrNonFiniteValue = errors.New("valuation is not a finite number")

// NoDataError reports that no usable price data exists for an instrument.
type NoDataError struct {
	Instrument string
	Cause      error
}

func (e *NoDataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no data for %s: %v", e.Instrument, e.Cause)
	}
	return fmt.Sprintf("no data for %s", e.Instrument)
}

func (e *NoDataError) Unwrap() error {
	return e.Cause
}

// InsufficientHistoryError reports that an operation needs more price points
// than the series holds.
type InsufficientHistoryError struct {
	Instrument string
	Operation  string
	Required   int
	Available  int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: %s needs %d points, have %d",
		e.Instrument, e.Operation, e.Required, e.Available)
}

// UnsupportedCurrencyError reports a currency pair outside the configured set.
type UnsupportedCurrencyError struct {
	From string
	To   string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency pair %s/%s", e.From, e.To)
}

// Error kinds reported alongside excluded instruments.
const (
	KindNoData              = "no_data"
	KindInsufficientHistory = "insufficient_history"
	KindUnsupportedCurrency = "unsupported_currency"
	KindError               = "error"
)

// ErrorKind maps an error to the kind reported for an excluded instrument.
// A deadline or cancellation counts as missing data.
func ErrorKind(err error) string {
	var noData *NoDataError
	var history *InsufficientHistoryError
	var currency *UnsupportedCurrencyError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &noData):
		return KindNoData
	case errors.As(err, &history):
		return KindInsufficientHistory
	case errors.As(err, &currency):
		return KindUnsupportedCurrency
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindNoData
	default:
		return KindError
	}
}
