package analyze

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takeout-sifter/internal/domain"
	"takeout-sifter/internal/report"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func str(s string) *string { return &s }

func rec(source, dest string, hash, sum *string) domain.Record {
	return domain.Record{Source: source, Destination: dest, Hash: hash, File: domain.FileSignals{Checksum: sum}}
}

func analyze(records ...domain.Record) Result {
	rep := report.New()
	for _, r := range records {
		rep.Add(r)
	}
	return New(afero.NewMemMapFs(), quiet()).Analyze(rep, report.Index(rep.Records(), nil))
}

func TestCleanDestinations(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
		ok   bool
	}{
		{"numbered suffix", []string{"/o/a(1).jpg", "/o/a.jpg"}, []string{"/o/a.jpg"}, true},
		{"three copies", []string{"/o/file.jpg", "/o/file(1).jpg", "/o/file(2).jpg"}, []string{"/o/file.jpg"}, true},
		{"tied shortest", []string{"/o/file(4).jpg", "/o/file(1).jpg", "/o/file(2).jpg"}, []string{"/o/file.jpg"}, true},
		{"nested suffix", []string{"/o/file(3)(1).jpg", "/o/file(3).jpg"}, []string{"/o/file(3).jpg"}, true},
		{"identical", []string{"/o/a.jpg", "/o/a.jpg"}, []string{"/o/a.jpg"}, true},
		{"different extensions", []string{"/o/a.jpg", "/o/a.png"}, []string{"/o/a.jpg", "/o/a.png"}, false},
		{"no common base", []string{"/o/a.jpg", "/o/b(1).jpg"}, []string{"/o/a.jpg", "/o/b(1).jpg"}, false},
		{"different days", []string{"/o/2019/2019_03/2019-03-13_113906_a.jpg", "/o/2020/2020_01/2020-01-01_000000_a.jpg"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanDestinations(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.want == nil {
				tt.want = tt.in
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyze_DestinationClashes(t *testing.T) {
	res := analyze(
		rec("/in/a/x.jpg", "/o/x.jpg", str("h1"), nil),
		rec("/in/b/x.jpg", "/o/x.jpg", str("h1"), nil),
		rec("/in/c/x.jpg", "/o/x.jpg", str("h2"), nil),
		rec("/in/a/v.mp4", "/o/v.mp4", nil, str("s1")),
		rec("/in/b/v.mp4", "/o/v.mp4", nil, str("s1")),
		rec("/in/a/w.mp4", "/o/w.mp4", nil, nil),
		rec("/in/b/w.mp4", "/o/w.mp4", nil, nil),
	)
	assert.Equal(t, 7, res.Records)
	assert.Equal(t, []Clash{
		{Destination: "/o/v.mp4", Kept: "/in/a/v.mp4", Other: "/in/b/v.mp4"},
		{Destination: "/o/x.jpg", Kept: "/in/a/x.jpg", Other: "/in/b/x.jpg"},
	}, res.Duplicates)
	assert.Equal(t, []Clash{
		{Destination: "/o/w.mp4", Kept: "/in/a/w.mp4", Other: "/in/b/w.mp4"},
		{Destination: "/o/x.jpg", Kept: "/in/a/x.jpg", Other: "/in/c/x.jpg"},
	}, res.Collisions)
	assert.False(t, res.Clean())
}

func TestAnalyze_FingerprintGroups(t *testing.T) {
	res := analyze(
		rec("/in/a.jpg", "/o/2019-03-13_113906_a.jpg", str("h1"), nil),
		rec("/in/a(1).jpg", "/o/2019-03-13_113906_a(1).jpg", str("h1"), nil),
		rec("/in/b.jpg", "/o/b.jpg", str("h2"), nil),
		rec("/in/b.png", "/o/b.png", str("h2"), nil),
		rec("/in/c.jpg", "/o/c.jpg", str("h3"), nil),
	)
	require.Len(t, res.Groups, 2)

	assert.True(t, res.Groups[0].Resolved)
	assert.Equal(t, "/o/2019-03-13_113906_a.jpg", res.Groups[0].Cleaned)
	assert.Equal(t, []string{"/in/a.jpg", "/in/a(1).jpg"}, res.Groups[0].Sources)

	assert.False(t, res.Groups[1].Resolved)
	assert.Equal(t, []string{"/o/b.jpg", "/o/b.png"}, res.Groups[1].Destinations)
	assert.Equal(t, 1, res.Unresolved())
	assert.Empty(t, res.Collisions)
}

func TestAnalyzer_File(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r.json", []byte(`[
{"source":"/in/a.jpg","hash":"h","destination":"/o/a.jpg"},
{"source":"/in/a(1).jpg","hash":"h","destination":"/o/a(1).jpg"}
]`), 0o644))

	a := New(fs, quiet())
	res, err := a.File("/r.json")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
	require.Len(t, res.Groups, 1)
	assert.True(t, res.Clean())

	exists, err := afero.Exists(fs, "/r(1).json")
	require.NoError(t, err)
	assert.False(t, exists, "analysis never rotates the report")

	_, err = a.File("/missing.json")
	assert.Error(t, err)
}
