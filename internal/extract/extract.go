// Package extract gathers every time, place and content signal available for
// one media file and turns them into a domain.Record.
//
// Each signal fails closed: a broken collaborator or a malformed file leaves
// that signal unknown and is logged, the record is always produced.
package extract

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"takeout-sifter/internal/datefind"
	"takeout-sifter/internal/domain"
	"takeout-sifter/internal/media"
	"takeout-sifter/internal/resolve"
	"takeout-sifter/internal/sidecar"
)

// TagReader returns embedded metadata tags keyed "Group:Name".
type TagReader interface {
	ReadTags(path string) (map[string]any, error)
}

// Fingerprinter hashes a decoded image. Undecodable input is an error.
type Fingerprinter interface {
	Fingerprint(r io.Reader) (string, error)
}

// Checksummer returns a byte-level checksum of a file.
type Checksummer interface {
	Sum(path string) (string, error)
}

// selective is implemented by tag readers that only understand some formats.
type selective interface {
	Handles(name string) bool
}

// Options configure an Extractor.
type Options struct {
	// OutputRoot is the root of every destination path.
	OutputRoot string
	// Location is the zone wall-clock times are expressed in.
	Location *time.Location
}

// Extractor is the per-file metadata extractor. It is not safe for
// concurrent use.
type Extractor struct {
	fs       afero.Fs
	tags     TagReader
	hasher   Fingerprinter
	checksum Checksummer
	opts     Options
	log      *slog.Logger
}

// New returns an Extractor. checksum may be nil.
func New(fs afero.Fs, tags TagReader, hasher Fingerprinter, checksum Checksummer, opts Options, log *slog.Logger) *Extractor {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{fs: fs, tags: tags, hasher: hasher, checksum: checksum, opts: opts, log: log}
}

// Process builds the record for the media file at path. folderYear is the
// hint of the folder path lives in; mapping is that folder's sidecar mapping.
func (e *Extractor) Process(path string, folderYear *int, mapping sidecar.Mapping) domain.Record {
	base := filepath.Base(path)
	rec := domain.Record{
		Source:     path,
		FolderYear: folderYear,
	}

	rec.Exif = e.embedded(path)
	rec.JSON = e.sidecarSignals(path, mapping)
	if t, ok := datefind.Find(base, e.opts.Location); ok {
		rec.FilenameTime.DateTime = domain.NewTimestamp(t)
	}
	rec.File = e.file(path)
	if media.Classify(base) == media.KindRaster {
		rec.Hash = e.fingerprint(path)
	}

	c := resolve.Candidates{
		Embedded:   timeOf(rec.Exif.DateTime),
		Sidecar:    timeOf(rec.JSON.DateTime),
		Filename:   timeOf(rec.FilenameTime.DateTime),
		FolderYear: folderYear,
		ModTime:    timeOf(rec.File.ModTime),
	}
	ts, src, ok := resolve.Preferred(c, e.opts.Location)
	if !ok {
		ts = time.Unix(0, 0).In(e.opts.Location)
		e.log.Error("no time signal, using the epoch", "path", path, "signal", "preferred_ts")
	}
	rec.PreferredTS = domain.Timestamp{Time: ts}
	rec.Destination = resolve.Destination(e.opts.OutputRoot, ts, base)

	e.log.Debug("processed", "path", path, "preferred", rec.PreferredTS.String(), "from", string(src), "destination", rec.Destination)
	return rec
}

func timeOf(ts *domain.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}

// embedded reads the tags of path. Any failure, including a panic inside
// the reader, leaves the whole embedded signal unknown.
func (e *Extractor) embedded(path string) (sig domain.ExifSignals) {
	if s, ok := e.tags.(selective); ok && !s.Handles(path) {
		e.log.Debug("tag reader does not handle format", "path", path, "signal", "exif")
		return domain.ExifSignals{}
	}

	tags, err := e.readTags(path)
	if err != nil {
		e.log.Error("embedded metadata unavailable", "path", path, "signal", "exif", "error", err)
		return domain.ExifSignals{}
	}
	return e.exifSignals(path, tags)
}

func (e *Extractor) readTags(path string) (tags map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("tag reader panicked: %v", r)
		}
	}()
	return e.tags.ReadTags(path)
}

func (e *Extractor) file(path string) domain.FileSignals {
	var sig domain.FileSignals
	info, err := e.fs.Stat(path)
	if err != nil {
		e.log.Error("stat failed", "path", path, "signal", "file", "error", err)
		return sig
	}
	sig.ModTime = domain.NewTimestamp(info.ModTime().In(e.opts.Location))
	sig.Size = info.Size()
	if sig.Size == 0 {
		e.log.Error("file is empty", "path", path, "signal", "file_size")
	}
	if e.checksum != nil {
		sum, err := e.checksum.Sum(path)
		if err != nil {
			e.log.Warn("checksum failed", "path", path, "signal", "checksum", "error", err)
		} else {
			sig.Checksum = &sum
		}
	}
	return sig
}

func (e *Extractor) fingerprint(path string) *string {
	hash, err := e.hash(path)
	if err != nil {
		e.log.Warn("no fingerprint", "path", path, "signal", "hash", "error", err)
		return nil
	}
	return &hash
}

func (e *Extractor) hash(path string) (hash string, err error) {
	f, err := e.fs.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open")
	}
	defer f.Close()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("decoder panicked: %v", r)
		}
	}()
	return e.hasher.Fingerprint(f)
}
