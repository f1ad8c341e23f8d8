// Package analysis turns Stripe CSV exports into summary CSVs. Each analysis
// type handles one kind of export; "fees" is the only built-in.
package analysis

import (
	"fmt"
	"io"
	"strings"
)

// Analysis consumes one export and writes one summary CSV.
type Analysis interface {
	Run(r io.Reader, w io.Writer) (Result, error)
	Name() string
}

// Options control how analyses fold and emit rows.
type Options struct {
	Currency   string // expected Currency column value; empty means "eur"
	SortOutput bool   // order output by account ID instead of first-seen
}

// Result reports what a run consumed and produced.
type Result struct {
	Rows     int        // data rows read, excluding the header
	Accounts int        // summary rows written
	Skipped  []RowError // rows excluded from the summary
}

// RowError records why a data row was skipped. Line is 1-based and counts
// the header row.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// MissingFieldError reports a required column absent from the export header.
// Every row would fail the same way, so it aborts the whole run.
type MissingFieldError struct {
	Column string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// InvalidAmountError reports an amount that could not be normalized.
type InvalidAmountError struct {
	Raw string
	Err error
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %v", e.Raw, e.Err)
}

func (e *InvalidAmountError) Unwrap() error { return e.Err }

// Registry holds named analyses.
type Registry struct {
	analyses map[string]Analysis
}

// NewRegistry creates an empty analysis registry.
func NewRegistry() *Registry {
	return &Registry{analyses: make(map[string]Analysis)}
}

// Register adds an analysis. Panics on duplicate name.
func (r *Registry) Register(a Analysis) {
	key := strings.ToLower(a.Name())
	if _, ok := r.analyses[key]; ok {
		panic("duplicate analysis name: " + key)
	}
	r.analyses[key] = a
}

// Get returns the analysis for name, or nil.
func (r *Registry) Get(name string) Analysis {
	return r.analyses[strings.ToLower(name)]
}

// DefaultRegistry returns a registry with all built-in analyses.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	r.Register(NewFeesAnalysis(opts))
	return r
}
