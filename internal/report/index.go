package report

import (
	"log/slog"

	"takeout-sifter/internal/domain"
)

// Collision is a group of sources sharing one fingerprint. Sources[0] is the
// canonical holder, the first source seen with it.
type Collision struct {
	Fingerprint string   `json:"fingerprint"`
	Sources     []string `json:"sources"`
}

// FingerprintIndex maps each fingerprint to its first-seen source and keeps
// every further source sharing it.
type FingerprintIndex struct {
	canonical map[string]string
	groups    map[string][]string
	order     []string // fingerprints in order of first collision
}

// NewFingerprintIndex returns an empty index.
func NewFingerprintIndex() *FingerprintIndex {
	return &FingerprintIndex{
		canonical: make(map[string]string),
		groups:    make(map[string][]string),
	}
}

// Add registers source under fp. It returns the canonical holder of fp and
// whether source collided with it. Empty fingerprints are ignored.
func (x *FingerprintIndex) Add(fp, source string) (canonical string, collided bool) {
	if fp == "" {
		return "", false
	}
	first, ok := x.canonical[fp]
	if !ok {
		x.canonical[fp] = source
		return source, false
	}
	if first == source {
		return first, false
	}
	if _, ok := x.groups[fp]; !ok {
		x.groups[fp] = []string{first}
		x.order = append(x.order, fp)
	}
	x.groups[fp] = append(x.groups[fp], source)
	return first, true
}

// Canonical returns the first source seen with fp.
func (x *FingerprintIndex) Canonical(fp string) (string, bool) {
	s, ok := x.canonical[fp]
	return s, ok
}

// Len is the number of distinct fingerprints.
func (x *FingerprintIndex) Len() int { return len(x.canonical) }

// Collisions returns every fingerprint shared by more than one source.
func (x *FingerprintIndex) Collisions() []Collision {
	out := make([]Collision, 0, len(x.order))
	for _, fp := range x.order {
		out = append(out, Collision{
			Fingerprint: fp,
			Sources:     append([]string(nil), x.groups[fp]...),
		})
	}
	return out
}

// Index builds a FingerprintIndex over records, logging each collision.
func Index(records []domain.Record, log *slog.Logger) *FingerprintIndex {
	x := NewFingerprintIndex()
	for _, rec := range records {
		x.observe(rec, log)
	}
	return x
}

func (x *FingerprintIndex) observe(rec domain.Record, log *slog.Logger) bool {
	canonical, collided := x.Add(rec.Fingerprint(), rec.Source)
	if collided && log != nil {
		log.Warn("fingerprint collision", "path", rec.Source, "canonical", canonical, "hash", rec.Fingerprint())
	}
	return collided
}
