package core

import (
	"fmt"
	"strings"
)

// SchemaError reports required ledger columns that are absent from the input header.
// Missing and Optional hold human readable field descriptions such as "date (fecha|date)".
type SchemaError struct {
	Missing  []string
	Optional []string
}

func (e *SchemaError) Error() string {
	msg := "missing required columns: " + strings.Join(e.Missing, ", ")
	if len(e.Optional) > 0 {
		msg += "; optional columns: " + strings.Join(e.Optional, ", ")
	}
	return msg
}

// InsufficientHistoryError is returned on the forecasting path when the ledger
// spans fewer months than a regression fit needs.
type InsufficientHistoryError struct {
	Months   int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: at least %d months of data are needed to forecast, got %d", e.Required, e.Months)
}

// ForecastError wraps a regressor fit or predict failure.
type ForecastError struct {
	Op  string
	Err error
}

func (e *ForecastError) Error() string {
	if e.Err == nil {
		return "forecast " + e.Op + " failed"
	}
	return "forecast " + e.Op + ": " + e.Err.Error()
}

func (e *ForecastError) Unwrap() error {
	return e.Err
}
