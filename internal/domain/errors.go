package domain

import (
	"errors"
	"fmt"
)

// DataUnavailableError indicates a provider returned no usable data for a
// ticker. It is an explicit variant rather than an implicit control-flow
// branch: callers switch on it to substitute deterministic fallback data and
// record that a fallback was used.
type DataUnavailableError struct {
	Ticker string
	Source string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("no data available for %s from %s", e.Ticker, e.Source)
}

// IsDataUnavailable reports whether err (or any error it wraps) is a
// *DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}
