// Package schema parses and validates the external YAML configuration
// documents: the master benchmark configuration (model-prefix to
// benchmark-intent entries) and the runner registry (runner name to
// capability descriptor).
//
// Validation is strict: unknown fields, missing required fields, wrong
// primitive types, and out-of-enum values all produce structured
// ConfigValidationError values carrying the offending document, field
// path, and failure reason. Parsing is pure - no side effects - and
// collects all errors rather than stopping at the first.
package schema
