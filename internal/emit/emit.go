// Package emit serializes resolved job lists for downstream consumers:
// JSON for CI matrix expansion, CSV for spreadsheet review, aligned text
// for terminals, and per-job environment blocks for launcher scripts.
//
// Every writer preserves the jobs' order exactly as given. Injectivity of
// slugs is checked here as the last gate before bytes leave the process.
package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"github.com/perflab/benchmatrix/internal/matrix"
)

// ErrDuplicateSlug is the code for an injectivity failure: two distinct
// jobs resolved to the same slug.
const ErrDuplicateSlug = "E501"

// DuplicateSlugError reports the first slug collision found, with both
// colliding positions for debugging.
type DuplicateSlugError struct {
	Slug   string
	First  int
	Second int
}

// Error implements the error interface.
func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("[%s] slug %q emitted by jobs %d and %d", ErrDuplicateSlug, e.Slug, e.First, e.Second)
}

// CheckInjective verifies that every job carries a distinct slug. A
// collision means two jobs would overwrite each other's result files,
// so emission must not proceed.
func CheckInjective(jobs []matrix.JobSpec) error {
	seen := make(map[string]int, len(jobs))
	for i, j := range jobs {
		if prev, ok := seen[j.Slug]; ok {
			return &DuplicateSlugError{Slug: j.Slug, First: prev, Second: i}
		}
		seen[j.Slug] = i
	}
	return nil
}

// WriteJSON writes the jobs as an indented JSON array. The array order is
// the expansion order; consumers index into it positionally.
func WriteJSON(w io.Writer, jobs []matrix.JobSpec) error {
	if err := CheckInjective(jobs); err != nil {
		return err
	}
	if jobs == nil {
		jobs = []matrix.JobSpec{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(jobs)
}

// WriteCSV writes the jobs as CSV with a header row, one job per line.
func WriteCSV(w io.Writer, jobs []matrix.JobSpec) error {
	if err := CheckInjective(jobs); err != nil {
		return err
	}
	return gocsv.Marshal(&jobs, w)
}

// WriteText writes an aligned human-readable table.
func WriteText(w io.Writer, jobs []matrix.JobSpec) error {
	if err := CheckInjective(jobs); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXP_NAME\tRUNNER\tFRAMEWORK\tPRECISION\tISL\tOSL\tTP\tCONC\tSLUG")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			j.ExpName, j.Runner, j.Framework, j.Precision,
			j.ISL, j.OSL, j.TensorParallel, j.Concurrency, j.Slug)
	}
	return tw.Flush()
}
