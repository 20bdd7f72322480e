package report

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takeout-sifter/internal/domain"
)

const reportPath = "/work/report.json"

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func record(source, hash string) domain.Record {
	rec := domain.Record{
		Source:      source,
		PreferredTS: domain.Timestamp{Time: time.Date(2019, 3, 13, 11, 39, 6, 0, time.UTC)},
		Destination: "/out/2019/2019_03/2019-03-13_113906_" + source[strings.LastIndex(source, "/")+1:],
	}
	if hash != "" {
		rec.Hash = &hash
	}
	return rec
}

func run(t *testing.T, fs afero.Fs, records ...domain.Record) *Session {
	t.Helper()
	s := NewSession(fs, reportPath, quiet())
	require.NoError(t, s.Open())
	for _, rec := range records {
		if s.Has(rec.Source) {
			continue
		}
		_, err := s.Append(rec)
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())
	return s
}

func TestSession_WritesParseableArray(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := run(t, fs, record("/in/a.jpg", "h1"), record("/in/b.jpg", ""))
	assert.Equal(t, StateClosed, s.State())
	assert.Empty(t, s.BackupPath())

	b, err := afero.ReadFile(fs, reportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "[\n{\"source\":\"/in/a.jpg\""))
	assert.True(t, strings.HasSuffix(string(b), "}\n]\n"))
	assert.Contains(t, string(b), "},\n{\"source\":\"/in/b.jpg\"")

	records, truncated, err := Decode(strings.NewReader(string(b)))
	require.NoError(t, err)
	assert.False(t, truncated)
	require.Len(t, records, 2)
	assert.Equal(t, "h1", records[0].Fingerprint())
	assert.Equal(t, "2019-03-13 11:39:06", records[1].PreferredTS.String())
}

func TestSession_EmptyRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	run(t, fs)
	b, err := afero.ReadFile(fs, reportPath)
	require.NoError(t, err)
	assert.Equal(t, "[\n\n]\n", string(b))

	rep, err := Load(fs, reportPath, quiet())
	require.NoError(t, err)
	assert.Zero(t, rep.Len())
}

func TestSession_SecondRunIsIdentical(t *testing.T) {
	fs := afero.NewMemMapFs()
	recs := []domain.Record{record("/in/a.jpg", "h1"), record("/in/b.jpg", "h2"), record("/in/c.mp4", "")}
	run(t, fs, recs...)
	first, err := afero.ReadFile(fs, reportPath)
	require.NoError(t, err)

	s := run(t, fs, recs...)
	second, err := afero.ReadFile(fs, reportPath)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, "/work/report(1).json", s.BackupPath())
	backup, err := afero.ReadFile(fs, "/work/report(1).json")
	require.NoError(t, err)
	assert.Equal(t, string(first), string(backup))
}

func TestSession_ResumesInterruptedReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	a, err := record("/in/a.jpg", "h1").Marshal()
	require.NoError(t, err)
	// killed while writing the second record
	partial := "[\n" + string(a) + ",\n{\"source\":\"/in/b.jpg\",\"exif\":{\"datet"
	require.NoError(t, afero.WriteFile(fs, reportPath, []byte(partial), 0o644))

	s := NewSession(fs, reportPath, quiet())
	require.NoError(t, s.Load())
	assert.True(t, s.Has("/in/a.jpg"))
	assert.False(t, s.Has("/in/b.jpg"))
	require.NoError(t, s.Backup())
	require.NoError(t, s.Begin())
	_, err = s.Append(record("/in/b.jpg", "h2"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	rep, err := Load(fs, reportPath, quiet())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Len())
	old, err := afero.ReadFile(fs, "/work/report(1).json")
	require.NoError(t, err)
	assert.Equal(t, partial, string(old))
}

func TestSession_FingerprintCollisions(t *testing.T) {
	fs := afero.NewMemMapFs()
	run(t, fs, record("/in/a.jpg", "same"), record("/in/a(1).jpg", "same"))

	s := NewSession(fs, reportPath, quiet())
	require.NoError(t, s.Open())
	assert.Equal(t, []Collision{{Fingerprint: "same", Sources: []string{"/in/a.jpg", "/in/a(1).jpg"}}}, s.Index().Collisions(),
		"collisions among loaded records are rebuilt")

	collided, err := s.Append(record("/in/a(2).jpg", "same"))
	require.NoError(t, err)
	assert.True(t, collided)
	collided, err = s.Append(record("/in/z.jpg", "other"))
	require.NoError(t, err)
	assert.False(t, collided)
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"/in/a.jpg", "/in/a(1).jpg", "/in/a(2).jpg"}, s.Index().Collisions()[0].Sources)
}

func TestSession_RejectsOutOfOrderTransitions(t *testing.T) {
	s := NewSession(afero.NewMemMapFs(), reportPath, quiet())

	var te *TransitionError
	require.ErrorAs(t, s.Backup(), &te)
	assert.Equal(t, StateFresh, te.From)
	require.ErrorAs(t, s.Begin(), &te)
	_, err := s.Append(record("/in/a.jpg", ""))
	require.ErrorAs(t, err, &te)
	require.ErrorAs(t, s.Close(), &te)

	require.NoError(t, s.Load())
	require.ErrorAs(t, s.Load(), &te)
	assert.Equal(t, StateLoaded, te.From)
	require.ErrorAs(t, s.Begin(), &te)
}

func TestSession_RejectsDuplicateSource(t *testing.T) {
	s := NewSession(afero.NewMemMapFs(), reportPath, quiet())
	require.NoError(t, s.Open())
	_, err := s.Append(record("/in/a.jpg", ""))
	require.NoError(t, err)
	_, err = s.Append(record("/in/a.jpg", ""))
	assert.True(t, errors.Is(err, ErrDuplicateSource))
}

// renameFailFs fails the first n renames.
type renameFailFs struct {
	afero.Fs
	n int
}

func (fs *renameFailFs) Rename(oldname, newname string) error {
	if fs.n > 0 {
		fs.n--
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
	}
	return fs.Fs.Rename(oldname, newname)
}

func TestSession_FailedBackupStaysLoaded(t *testing.T) {
	mem := afero.NewMemMapFs()
	run(t, mem, record("/in/a.jpg", "h1"))
	original, err := afero.ReadFile(mem, reportPath)
	require.NoError(t, err)

	fs := &renameFailFs{Fs: mem, n: 1}
	s := NewSession(fs, reportPath, quiet())
	require.NoError(t, s.Load())
	require.Error(t, s.Backup())
	assert.Equal(t, StateLoaded, s.State())

	still, err := afero.ReadFile(mem, reportPath)
	require.NoError(t, err)
	assert.Equal(t, original, still)

	require.NoError(t, s.Backup())
	assert.Equal(t, StateBackedUp, s.State())
	require.NoError(t, s.Begin())
	require.NoError(t, s.Close())
	assert.True(t, s.Has("/in/a.jpg"))
}

func TestBackupName(t *testing.T) {
	fs := afero.NewMemMapFs()
	name, err := BackupName(fs, "/w/report.json")
	require.NoError(t, err)
	assert.Equal(t, "/w/report(1).json", name)

	require.NoError(t, afero.WriteFile(fs, "/w/report(1).json", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/w/report(3).json", nil, 0o644))
	name, err = BackupName(fs, "/w/report.json")
	require.NoError(t, err)
	assert.Equal(t, "/w/report(2).json", name)

	name, err = BackupName(fs, "/w/report")
	require.NoError(t, err)
	assert.Equal(t, "/w/report(1)", name)
}

func TestDecode_Tolerance(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      int
		truncated bool
		wantErr   bool
	}{
		{"empty file", "", 0, true, false},
		{"closed", `[{"source":"a"},{"source":"b"}]`, 2, false, false},
		{"legacy trailing empty object", `[{"source":"a"},{}]`, 1, false, false},
		{"no closing bracket", "[\n{\"source\":\"a\"}", 1, true, false},
		{"dangling separator", "[\n{\"source\":\"a\"},\n", 1, true, false},
		{"half record", "[\n{\"source\":\"a\"},\n{\"sour", 1, true, false},
		{"not an array", `{"source":"a"}`, 0, false, true},
		{"bad timestamp", `[{"source":"a","preferred_ts":"yesterday"}]`, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated, err := Decode(strings.NewReader(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			assert.Equal(t, tt.truncated, truncated)
		})
	}
}

func TestLoad_DuplicateSourcesKeepFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, reportPath, []byte(`[{"source":"a","destination":"1"},{"source":"a","destination":"2"}]`), 0o644))
	rep, err := Load(fs, reportPath, quiet())
	require.NoError(t, err)
	rec, ok := rep.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", rec.Destination)
}

func TestFingerprintIndex(t *testing.T) {
	x := NewFingerprintIndex()
	c, collided := x.Add("h", "a")
	assert.Equal(t, "a", c)
	assert.False(t, collided)
	_, collided = x.Add("", "b")
	assert.False(t, collided)
	c, collided = x.Add("h", "b")
	assert.Equal(t, "a", c)
	assert.True(t, collided)
	_, collided = x.Add("h", "a")
	assert.False(t, collided, "re-adding the canonical holder is not a collision")
	assert.Equal(t, 1, x.Len())
	assert.Equal(t, []Collision{{Fingerprint: "h", Sources: []string{"a", "b"}}}, x.Collisions())
}

func TestSession_ResumesFromBackupWhenReportMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	run(t, fs, record("/in/a.jpg", "h1"))
	run(t, fs, record("/in/a.jpg", "h1"), record("/in/b.jpg", "h2"))
	// stopped after the backup rename, before the new report was created
	require.NoError(t, fs.Rename(reportPath, "/work/report(2).json"))

	s := NewSession(fs, reportPath, quiet())
	require.NoError(t, s.Load())
	assert.True(t, s.Has("/in/a.jpg"))
	assert.True(t, s.Has("/in/b.jpg"))
	require.NoError(t, s.Backup())
	assert.Empty(t, s.BackupPath())
	require.NoError(t, s.Begin())
	require.NoError(t, s.Close())

	rep, err := Load(fs, reportPath, quiet())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Len())
}

func TestLatestBackup(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, ok, err := LatestBackup(fs, reportPath)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, name := range []string{"/work/report(1).json", "/work/report(2).json"} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("[\n\n]\n"), 0o644))
	}
	latest, ok, err := LatestBackup(fs, reportPath)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/work/report(2).json", latest)
}
