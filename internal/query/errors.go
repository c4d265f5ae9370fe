package query

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ConfigError reports a query that cannot be built as described.
//
// Config errors are programmer mistakes, never transient, and are not
// retried.
type ConfigError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Shape is the query shape being built, if one was chosen.
	Shape Shape

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeNoIntervals indicates a query without intervals.
	ErrCodeNoIntervals ErrorCode = "NO_INTERVALS"

	// ErrCodeNoOrderBy indicates a TopN without exactly one order-by column.
	ErrCodeNoOrderBy ErrorCode = "NO_ORDER_BY"

	// ErrCodeNoLimit indicates a TopN or Select without a limit.
	ErrCodeNoLimit ErrorCode = "NO_LIMIT"

	// ErrCodeNoSearchFilter indicates a Search without a search query.
	ErrCodeNoSearchFilter ErrorCode = "NO_SEARCH_FILTER"

	// ErrCodeNoDataSource indicates a missing or malformed data source.
	ErrCodeNoDataSource ErrorCode = "NO_DATASOURCE"

	// ErrCodeInvalidInterval indicates an unparseable or inverted interval.
	ErrCodeInvalidInterval ErrorCode = "INVALID_INTERVAL"

	// ErrCodeInvalidGranularity indicates an unknown granularity.
	ErrCodeInvalidGranularity ErrorCode = "INVALID_GRANULARITY"

	// ErrCodeInvalidValue indicates a value the request cannot carry.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeInvalidFilter indicates a filter condition that failed to convert.
	ErrCodeInvalidFilter ErrorCode = "INVALID_FILTER"

	// ErrCodeInvalidHaving indicates a having condition that failed to convert.
	ErrCodeInvalidHaving ErrorCode = "INVALID_HAVING"

	// ErrCodeShapeMismatch indicates state the requested shape cannot express.
	ErrCodeShapeMismatch ErrorCode = "SHAPE_MISMATCH"
)

// ErrorCodes lists every ErrorCode.
var ErrorCodes = []ErrorCode{
	ErrCodeNoIntervals,
	ErrCodeNoOrderBy,
	ErrCodeNoLimit,
	ErrCodeNoSearchFilter,
	ErrCodeNoDataSource,
	ErrCodeInvalidInterval,
	ErrCodeInvalidGranularity,
	ErrCodeInvalidValue,
	ErrCodeInvalidFilter,
	ErrCodeInvalidHaving,
	ErrCodeShapeMismatch,
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Shape != "" {
		return fmt.Sprintf("%s: %s (shape=%s)", e.Code, e.Message, e.Shape)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newConfigError(code ErrorCode, shape Shape, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Shape: shape, Message: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if err is or wraps a ConfigError. Errors
// combined with multierr are searched too.
func IsConfigError(err error) bool {
	for _, e := range multierr.Errors(err) {
		var ce *ConfigError
		if errors.As(e, &ce) {
			return true
		}
	}
	return false
}

// HasCode returns true if err is, wraps or combines a ConfigError with the
// given code.
func HasCode(err error, code ErrorCode) bool {
	for _, e := range multierr.Errors(err) {
		var ce *ConfigError
		if errors.As(e, &ce) && ce.Code == code {
			return true
		}
	}
	return false
}

// Codes lists the codes of every ConfigError in err, in order.
func Codes(err error) []ErrorCode {
	var codes []ErrorCode
	for _, e := range multierr.Errors(err) {
		var ce *ConfigError
		if errors.As(e, &ce) {
			codes = append(codes, ce.Code)
		}
	}
	return codes
}
