package sweep

import "fmt"

// Error codes for fatal expansion failures (E200-E499).
const (
	// Referential errors (E2xx): the input references something that
	// does not exist. Indicates a defect in the documents, not expected
	// sparsity of the compatibility matrix.
	ErrUnknownRunner = "E201"

	// Sweep range errors (E3xx): invalid concurrency-sweep descriptor.
	ErrSweepEndBeforeStart = "E301"
	ErrSweepBadStep        = "E302"
	ErrSweepBadStart       = "E303"

	// Filter errors (E4xx).
	ErrUnknownFilterField = "E401"
)

// ReferentialError is a fatal referential-integrity failure: a
// master-config entry references a runner absent from the registry.
type ReferentialError struct {
	Code     string
	EntryKey string
	Message  string
}

// Error implements the error interface.
func (e *ReferentialError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.EntryKey, e.Message)
}

// SweepRangeError is a fatal failure of one entry's concurrency-sweep
// descriptor. Carries the entry identity for reporting.
type SweepRangeError struct {
	Code     string
	EntryKey string
	Message  string
}

// Error implements the error interface.
func (e *SweepRangeError) Error() string {
	if e.EntryKey != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.EntryKey, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// FilterError is a fatal failure of the invoker-supplied filter set,
// raised before any expansion occurs.
type FilterError struct {
	Code    string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FilterError) Error() string {
	return fmt.Sprintf("[%s] filter %q: %s", e.Code, e.Field, e.Message)
}
