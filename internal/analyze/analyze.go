// Package analyze inspects a persisted report for destination clashes and
// fingerprint duplicate groups. It never modifies the report.
package analyze

import (
	"log/slog"
	"sort"

	"github.com/maruel/natural"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"takeout-sifter/internal/domain"
	"takeout-sifter/internal/report"
)

// Clash is a second source mapped to a destination already taken by Kept.
type Clash struct {
	Destination string `json:"destination"`
	Kept        string `json:"kept"`
	Other       string `json:"other"`
}

// Group is a set of sources sharing one fingerprint.
type Group struct {
	Fingerprint  string   `json:"fingerprint"`
	Sources      []string `json:"sources"`
	Destinations []string `json:"destinations"`
	// Cleaned holds the single collapsed destination when Resolved.
	Cleaned  string `json:"cleaned,omitempty"`
	Resolved bool   `json:"resolved"`
}

// Result is the outcome of one analysis.
type Result struct {
	Records int `json:"records"`
	// Duplicates share a destination and their content; one can be dropped.
	Duplicates []Clash `json:"duplicates"`
	// Collisions share a destination but not their content.
	Collisions []Clash `json:"collisions"`
	Groups     []Group `json:"groups"`
}

// Unresolved counts the fingerprint groups that need manual review.
func (r Result) Unresolved() int {
	n := 0
	for _, g := range r.Groups {
		if !g.Resolved {
			n++
		}
	}
	return n
}

// Clean reports whether nothing needs manual attention.
func (r Result) Clean() bool {
	return len(r.Collisions) == 0 && r.Unresolved() == 0
}

// Analyzer runs the read-only analysis pass.
type Analyzer struct {
	fs  afero.Fs
	log *slog.Logger
}

// New returns an Analyzer reading reports from fs.
func New(fs afero.Fs, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{fs: fs, log: log}
}

// File loads the report at path without backing it up and analyzes it.
func (a *Analyzer) File(path string) (Result, error) {
	exists, err := afero.Exists(a.fs, path)
	if err != nil {
		return Result{}, errors.Wrap(err, "stat report")
	}
	if !exists {
		return Result{}, errors.Errorf("report %s does not exist", path)
	}
	rep, err := report.Load(a.fs, path, a.log)
	if err != nil {
		return Result{}, err
	}
	return a.Analyze(rep, report.Index(rep.Records(), a.log)), nil
}

// Analyze checks rep and the fingerprint groups of idx.
func (a *Analyzer) Analyze(rep *report.Report, idx *report.FingerprintIndex) Result {
	res := Result{Records: rep.Len()}

	holders := make(map[string]domain.Record)
	for _, rec := range rep.Records() {
		first, ok := holders[rec.Destination]
		if !ok {
			holders[rec.Destination] = rec
			continue
		}
		c := Clash{Destination: rec.Destination, Kept: first.Source, Other: rec.Source}
		if sameContent(first, rec) {
			a.log.Debug("duplicate destination with identical content", "destination", c.Destination, "kept", c.Kept, "other", c.Other)
			res.Duplicates = append(res.Duplicates, c)
		} else {
			a.log.Warn("destination collision", "destination", c.Destination, "kept", c.Kept, "other", c.Other)
			res.Collisions = append(res.Collisions, c)
		}
	}

	for _, col := range idx.Collisions() {
		g := Group{Fingerprint: col.Fingerprint, Sources: col.Sources}
		for _, s := range col.Sources {
			if rec, ok := rep.Get(s); ok {
				g.Destinations = append(g.Destinations, rec.Destination)
			}
		}
		if cleaned, ok := CleanDestinations(g.Destinations); ok {
			g.Cleaned, g.Resolved = cleaned[0], true
			a.log.Debug("fingerprint group collapsed", "hash", g.Fingerprint, "destination", g.Cleaned)
		} else {
			a.log.Warn("multiple destinations for one fingerprint", "hash", g.Fingerprint, "destinations", g.Destinations)
		}
		res.Groups = append(res.Groups, g)
	}

	sortClashes(res.Duplicates)
	sortClashes(res.Collisions)
	sort.SliceStable(res.Groups, func(i, j int) bool {
		return natural.Less(res.Groups[i].Sources[0], res.Groups[j].Sources[0])
	})
	return res
}

// sameContent compares fingerprints, or checksums when neither record has a
// fingerprint.
func sameContent(a, b domain.Record) bool {
	if a.Hash != nil || b.Hash != nil {
		return a.Hash != nil && b.Hash != nil && *a.Hash == *b.Hash
	}
	return a.File.Checksum != nil && b.File.Checksum != nil && *a.File.Checksum == *b.File.Checksum
}

func sortClashes(cs []Clash) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Destination != cs[j].Destination {
			return natural.Less(cs[i].Destination, cs[j].Destination)
		}
		return natural.Less(cs[i].Other, cs[j].Other)
	})
}
