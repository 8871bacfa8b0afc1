// Package matrix defines the benchmark matrix data model: the enumeration
// domains (precision, framework, sequence-length buckets), the validated
// configuration records loaded from YAML documents, and the fully resolved
// JobSpec output records with their content-addressed slugs.
//
// Everything in this package is an immutable value type. Configuration
// records are produced once per generation run by internal/schema and are
// never mutated afterwards; JobSpecs are pure output values.
package matrix
