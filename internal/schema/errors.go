package schema

import "fmt"

// Validation error codes (E100-E199).
const (
	// Document-level errors
	ErrMalformedDocument = "E105" // document is not valid YAML or has the wrong shape
	ErrEmptyDocument     = "E107" // document contains no entries
	ErrDuplicateKey      = "E106" // same key declared twice

	// Field-level errors
	ErrMissingField = "E101" // required field absent
	ErrWrongType    = "E102" // value has the wrong primitive type
	ErrUnknownField = "E103" // field name not recognized (strict mode)
	ErrOutOfRange   = "E104" // value outside the declared enum or range
)

// Reason categorizes why a field failed validation.
type Reason string

// Failure categories carried on every ConfigValidationError.
const (
	ReasonMissing      Reason = "missing"
	ReasonWrongType    Reason = "wrong-type"
	ReasonUnknownField Reason = "unknown-field"
	ReasonOutOfRange   Reason = "out-of-range"
)

// ConfigValidationError is a structured schema failure: which document,
// which field path, and why. A generation run aborts if any are produced.
type ConfigValidationError struct {
	Document string `json:"document"`
	Path     string `json:"path"`
	Reason   Reason `json:"reason"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Error implements the error interface.
func (e ConfigValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Document, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Document, e.Message)
}

// fieldError builds a ConfigValidationError for a document field.
func fieldError(doc, path string, reason Reason, code, format string, args ...any) ConfigValidationError {
	return ConfigValidationError{
		Document: doc,
		Path:     path,
		Reason:   reason,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}
