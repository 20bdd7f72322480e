package report

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"takeout-sifter/internal/domain"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateFresh State = iota
	StateLoaded
	StateBackedUp
	StateAppending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateLoaded:
		return "loaded"
	case StateBackedUp:
		return "backed_up"
	case StateAppending:
		return "appending"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransitionError is returned when an operation is called in the wrong state.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("report: %s not allowed in state %s", e.Op, e.From)
}

// ErrDuplicateSource is returned by Append for a source already recorded.
var ErrDuplicateSource = errors.New("source already in report")

const (
	streamOpen  = "[\n"
	streamSep   = ",\n"
	streamClose = "\n]\n"
)

// Session owns the report file of one run:
//
//	Fresh -> Loaded -> BackedUp -> Appending -> Closed
//
// Load rehydrates a previous report, Backup moves it aside, Begin starts a
// new stream re-emitting the loaded records, Append adds one record at a
// time and Close terminates the array. A failed step leaves the state
// unchanged so it can be retried.
type Session struct {
	fs   afero.Fs
	path string
	log  *slog.Logger

	state  State
	report *Report
	index  *FingerprintIndex
	backup string

	f       afero.File
	w       *bufio.Writer
	written int
}

// NewSession returns a Fresh session for the report at path.
func NewSession(fs afero.Fs, path string, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{fs: fs, path: path, log: log, state: StateFresh}
}

// State is where the session is in its lifecycle.
func (s *Session) State() State { return s.state }

// Report is the in-memory report, loaded records included.
func (s *Session) Report() *Report { return s.report }

// Index is the fingerprint index over every record of the session.
func (s *Session) Index() *FingerprintIndex { return s.index }

// BackupPath is where the previous report was moved, "" if there was none.
func (s *Session) BackupPath() string { return s.backup }

// Has reports whether source already has a record.
func (s *Session) Has(source string) bool {
	return s.report != nil && s.report.Has(source)
}

func (s *Session) expect(op string, want State) error {
	if s.state != want {
		return &TransitionError{Op: op, From: s.state}
	}
	return nil
}

// Load reads the existing report, if any, and indexes its fingerprints.
func (s *Session) Load() error {
	if err := s.expect("load", StateFresh); err != nil {
		return err
	}
	src := s.path
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return errors.Wrap(err, "stat report")
	}
	if !exists {
		// a run stopped between Backup and Begin leaves only the backup
		latest, ok, err := LatestBackup(s.fs, s.path)
		if err != nil {
			return err
		}
		if ok {
			s.log.Warn("report missing, resuming from latest backup", "path", s.path, "backup", latest)
			src = latest
		}
	}
	rep, err := Load(s.fs, src, s.log)
	if err != nil {
		return err
	}
	s.report = rep
	s.index = Index(rep.Records(), s.log)
	s.state = StateLoaded
	if rep.Len() > 0 {
		s.log.Info("resuming from report", "path", src, "records", rep.Len())
	}
	return nil
}

// Backup renames the existing report to the first free name(n).ext.
func (s *Session) Backup() error {
	if err := s.expect("backup", StateLoaded); err != nil {
		return err
	}
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return errors.Wrap(err, "stat report")
	}
	if exists {
		name, err := BackupName(s.fs, s.path)
		if err != nil {
			return err
		}
		if err := s.fs.Rename(s.path, name); err != nil {
			return errors.Wrapf(err, "back up report to %s", name)
		}
		s.backup = name
		s.log.Info("previous report backed up", "path", s.path, "backup", name)
	}
	s.state = StateBackedUp
	return nil
}

// Begin creates the report file and re-emits the loaded records.
func (s *Session) Begin() error {
	if err := s.expect("begin", StateBackedUp); err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create report directory")
		}
	}
	f, err := s.fs.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	s.f = f
	s.w = bufio.NewWriter(f)
	s.written = 0

	if _, err := s.w.WriteString(streamOpen); err != nil {
		return s.abort(err)
	}
	for _, rec := range s.report.Records() {
		if err := s.write(rec); err != nil {
			return s.abort(err)
		}
	}
	if err := s.w.Flush(); err != nil {
		return s.abort(err)
	}
	s.state = StateAppending
	return nil
}

func (s *Session) abort(err error) error {
	s.f.Close()
	s.f, s.w = nil, nil
	return errors.Wrap(err, "write report")
}

func (s *Session) write(rec domain.Record) error {
	b, err := rec.Marshal()
	if err != nil {
		return err
	}
	if s.written > 0 {
		if _, err := s.w.WriteString(streamSep); err != nil {
			return err
		}
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.written++
	return nil
}

// Append records rec, persists it and flushes before returning. It reports
// whether rec's fingerprint collided with an earlier record.
func (s *Session) Append(rec domain.Record) (collided bool, err error) {
	if err := s.expect("append", StateAppending); err != nil {
		return false, err
	}
	if s.report.Has(rec.Source) {
		return false, errors.Wrap(ErrDuplicateSource, rec.Source)
	}
	if err := s.write(rec); err != nil {
		return false, errors.Wrapf(err, "append %s", rec.Source)
	}
	if err := s.w.Flush(); err != nil {
		return false, errors.Wrapf(err, "flush %s", rec.Source)
	}
	s.report.Add(rec)
	return s.index.observe(rec, s.log), nil
}

// Close terminates the array and closes the file.
func (s *Session) Close() error {
	if err := s.expect("close", StateAppending); err != nil {
		return err
	}
	if _, err := s.w.WriteString(streamClose); err != nil {
		return errors.Wrap(err, "close report")
	}
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, "close report")
	}
	if err := s.f.Close(); err != nil {
		return errors.Wrap(err, "close report")
	}
	s.f, s.w = nil, nil
	s.state = StateClosed
	return nil
}

// Open runs Load, Backup and Begin.
func (s *Session) Open() error {
	if err := s.Load(); err != nil {
		return err
	}
	if err := s.Backup(); err != nil {
		return err
	}
	return s.Begin()
}

// LatestBackup returns the highest numbered stem(n)ext present on fs.
// Backups are numbered without gaps, so the scan stops at the first free n.
func LatestBackup(fs afero.Fs, path string) (string, bool, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	latest := ""
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s(%d)%s", stem, n, ext)
		exists, err := afero.Exists(fs, name)
		if err != nil {
			return "", false, errors.Wrapf(err, "stat %s", name)
		}
		if !exists {
			return latest, latest != "", nil
		}
		latest = name
	}
}

// BackupName returns stem(n)ext for the smallest n >= 1 not present on fs.
func BackupName(fs afero.Fs, path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s(%d)%s", stem, n, ext)
		exists, err := afero.Exists(fs, name)
		if err != nil {
			return "", errors.Wrapf(err, "stat %s", name)
		}
		if !exists {
			return name, nil
		}
	}
}
