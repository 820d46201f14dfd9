package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput means one of the three input tables has no data rows.
	ErrEmptyInput = errors.New("no valid data to calculate")
	// ErrInvalidParams wraps rejected run parameters.
	ErrInvalidParams = errors.New("invalid parameters")
)

// MissingFields lists the required columns absent from one table.
type MissingFields struct {
	Table  string   `json:"table"`
	Fields []string `json:"fields"`
}

// SchemaError reports every missing column of every input table.
type SchemaError struct {
	Tables []MissingFields `json:"tables"`
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Tables))
	for _, t := range e.Tables {
		parts = append(parts, fmt.Sprintf("%s: %s", t.Table, strings.Join(t.Fields, ", ")))
	}
	return "missing required columns: " + strings.Join(parts, "; ")
}

// Missing returns the missing fields for one table, or nil.
func (e *SchemaError) Missing(tableName string) []string {
	for _, t := range e.Tables {
		if t.Table == tableName {
			return t.Fields
		}
	}
	return nil
}

// ComputationError is an unexpected failure inside the calculation pass.
type ComputationError struct {
	Stage string
	Cause error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("calculation error in %s: %v", e.Stage, e.Cause)
}

func (e *ComputationError) Unwrap() error {
	return e.Cause
}
