// Package report keeps the records of a run, persists them incrementally to
// a JSON array file and indexes them by content fingerprint.
package report

import (
	"takeout-sifter/internal/domain"
)

// Report is an insertion-ordered set of records keyed by source path.
type Report struct {
	order   []string
	records map[string]domain.Record
}

// New returns an empty Report.
func New() *Report {
	return &Report{records: make(map[string]domain.Record)}
}

// Add stores rec unless its source is already present. It reports whether
// rec was added.
func (r *Report) Add(rec domain.Record) bool {
	if _, ok := r.records[rec.Source]; ok {
		return false
	}
	r.records[rec.Source] = rec
	r.order = append(r.order, rec.Source)
	return true
}

// Has reports whether source has a record.
func (r *Report) Has(source string) bool {
	_, ok := r.records[source]
	return ok
}

// Get returns the record for source.
func (r *Report) Get(source string) (domain.Record, bool) {
	rec, ok := r.records[source]
	return rec, ok
}

// Len is the number of records.
func (r *Report) Len() int { return len(r.order) }

// Records returns the records in insertion order.
func (r *Report) Records() []domain.Record {
	out := make([]domain.Record, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, r.records[s])
	}
	return out
}
