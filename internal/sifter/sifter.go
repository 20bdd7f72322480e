// Package sifter walks an export tree folder by folder, resolves sidecars,
// extracts a record for every media file and appends it to the run report.
package sifter

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"takeout-sifter/internal/domain"
	"takeout-sifter/internal/media"
	"takeout-sifter/internal/report"
	"takeout-sifter/internal/sidecar"
)

// Processor turns one media file into a record.
type Processor interface {
	Process(path string, folderYear *int, mapping sidecar.Mapping) domain.Record
}

// Sniffer names the content type of unrecognised files for diagnostics.
type Sniffer interface {
	Sniff(path string) (string, error)
}

// Options select what a scan reads and writes.
type Options struct {
	Input  string
	Report string
	// ExcludeDirs are skipped with everything below them. Relative entries
	// are relative to Input.
	ExcludeDirs []string
}

// Summary counts what a scan did.
type Summary struct {
	Folders        int           `json:"folders"`
	FoldersAborted int           `json:"folders_aborted"`
	Processed      int           `json:"processed"`
	Resumed        int           `json:"resumed"`
	Sidecars       int           `json:"sidecars"`
	Unsupported    int           `json:"unsupported"`
	Skipped        int           `json:"skipped"`
	Collisions     int           `json:"collisions"`
	Records        int           `json:"records"`
	Backup         string        `json:"backup,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Sifter runs scans. Folders and files are handled strictly one at a time.
type Sifter struct {
	fs        afero.Fs
	resolver  *sidecar.Resolver
	processor Processor
	sniffer   Sniffer
	log       *slog.Logger
}

// New returns a Sifter. sniffer may be nil.
func New(fs afero.Fs, resolver *sidecar.Resolver, processor Processor, sniffer Sniffer, log *slog.Logger) *Sifter {
	if log == nil {
		log = slog.Default()
	}
	return &Sifter{fs: fs, resolver: resolver, processor: processor, sniffer: sniffer, log: log}
}

type scan struct {
	*Sifter
	session  *report.Session
	obs      Observer
	excluded map[string]bool
	sum      Summary
}

// Run scans opts.Input into the report at opts.Report, resuming from an
// existing report. On cancellation the report is closed and ctx.Err() is
// returned with the partial summary.
func (s *Sifter) Run(ctx context.Context, opts Options, obs Observer) (Summary, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	start := time.Now()
	input := filepath.Clean(opts.Input)
	info, err := s.fs.Stat(input)
	if err != nil {
		return Summary{}, errors.Wrap(err, "input")
	}
	if !info.IsDir() {
		return Summary{}, errors.Errorf("input %s is not a directory", input)
	}

	session := report.NewSession(s.fs, opts.Report, s.log)
	if err := session.Open(); err != nil {
		return Summary{}, errors.Wrap(err, "open report")
	}

	sc := &scan{
		Sifter:   s,
		session:  session,
		obs:      obs,
		excluded: buildExcluded(input, opts.ExcludeDirs),
	}
	sc.excluded[filepath.Clean(opts.Report)] = true
	sc.sum.Backup = session.BackupPath()

	walkErr := sc.folder(ctx, input)
	if err := session.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	sc.sum.Records = session.Report().Len()
	sc.sum.Duration = time.Since(start)
	s.log.Info("scan finished",
		"folders", sc.sum.Folders,
		"folders_aborted", sc.sum.FoldersAborted,
		"processed", sc.sum.Processed,
		"resumed", sc.sum.Resumed,
		"unsupported", sc.sum.Unsupported,
		"collisions", sc.sum.Collisions,
		"duration", sc.sum.Duration.Round(time.Millisecond))
	return sc.sum, walkErr
}

// folder processes the files of dir, then descends into its subfolders.
func (sc *scan) folder(ctx context.Context, dir string) error {
	entries, err := afero.ReadDir(sc.fs, dir)
	if err != nil {
		sc.log.Error("cannot list folder", "path", dir, "error", err)
		return nil
	}
	sc.sum.Folders++

	mapping, err := sc.resolver.Resolve(dir)
	if err != nil {
		sc.sum.FoldersAborted++
		sc.log.Error("skipping folder files", "path", dir, "error", err)
	}
	sc.obs.OnFolder(dir, mapping.Len(), err)
	aborted := err != nil
	year := media.FolderYear(dir)

	var subdirs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if !media.SkipDir(e.Name()) && !sc.excluded[path] {
				subdirs = append(subdirs, path)
			}
			continue
		}
		if sc.excluded[path] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sc.file(path, year, mapping, aborted); err != nil {
			return err
		}
	}

	for _, sub := range subdirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sc.folder(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

func (sc *scan) file(path string, year *int, mapping sidecar.Mapping, aborted bool) error {
	kind := media.Classify(path)
	outcome := OutcomeProcessed
	defer func() { sc.obs.OnFile(path, kind, outcome) }()

	switch {
	case kind == media.KindSidecar:
		outcome = OutcomeSidecar
		sc.sum.Sidecars++
		return nil
	case !kind.IsMedia():
		outcome = OutcomeUnsupported
		sc.sum.Unsupported++
		sc.logUnsupported(path)
		return nil
	case sc.session.Has(path):
		outcome = OutcomeResumed
		sc.sum.Resumed++
		return nil
	case aborted:
		outcome = OutcomeSkipped
		sc.sum.Skipped++
		return nil
	}

	rec := sc.processor.Process(path, year, mapping)
	collided, err := sc.session.Append(rec)
	if err != nil {
		return errors.Wrapf(err, "record %s", path)
	}
	sc.sum.Processed++
	if collided {
		sc.sum.Collisions++
	}
	return nil
}

func (sc *scan) logUnsupported(path string) {
	if sc.sniffer == nil {
		sc.log.Warn("unsupported file", "path", path)
		return
	}
	mime, err := sc.sniffer.Sniff(path)
	if err != nil {
		sc.log.Warn("unsupported file", "path", path, "mime_error", err)
		return
	}
	sc.log.Warn("unsupported file", "path", path, "mime", mime)
}

func buildExcluded(root string, dirs []string) map[string]bool {
	out := make(map[string]bool, len(dirs)+1)
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(root, d)
		}
		out[filepath.Clean(d)] = true
	}
	return out
}
