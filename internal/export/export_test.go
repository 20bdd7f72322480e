package export

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takeout-sifter/internal/domain"
	"takeout-sifter/internal/report"
)

func sample() []domain.Record {
	lat, lon := 48.8584, -2.5
	model, sum, hash := "Pixel 3", "abc", "p:ff"
	year := 2014
	ts := time.Date(2019, 3, 13, 11, 39, 6, 0, time.UTC)
	return []domain.Record{
		{
			Source:      "/in/Photos from 2014/IMG_0001.JPG",
			FolderYear:  &year,
			Exif:        domain.ExifSignals{DateTime: domain.NewTimestamp(ts), Model: &model, Geo: &domain.Geo{Latitude: &lat, Longitude: &lon}},
			File:        domain.FileSignals{ModTime: domain.NewTimestamp(ts), Size: 3 * 1024 * 1024, Checksum: &sum},
			Hash:        &hash,
			PreferredTS: domain.Timestamp{Time: ts},
			Destination: "/out/2019/2019_03/2019-03-13_113906_IMG_0001.JPG",
		},
		{
			Source:      "/in/clip.mp4",
			PreferredTS: domain.Timestamp{Time: ts},
			Destination: "/out/2019/2019_03/2019-03-13_113906_clip.mp4",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, manifestHeaders, rows[0])
	assert.Equal(t, []string{
		"IMG_0001.JPG",
		"/in/Photos from 2014/IMG_0001.JPG",
		"/in/Photos from 2014",
		"3145728",
		"3.00",
		"2019-03-13 11:39:06",
		"2019-03-13 11:39:06",
		"Pixel 3",
		"abc",
		"p:ff",
		"48.8584",
		"-2.5",
		".jpg",
		"/out/2019/2019_03/2019-03-13_113906_IMG_0001.JPG",
	}, rows[1])
	assert.Equal(t, "", rows[2][5], "unknown modification time")
	assert.Equal(t, "", rows[2][10])
}

func TestSQLite_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)

	collisions := []report.Collision{{Fingerprint: "p:ff", Sources: []string{"/in/a.jpg", "/in/b.jpg"}}}
	id, err := db.Write("/work/report.json", sample(), collisions)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	// a second export replaces the records
	_, err = db.Write("/work/report.json", sample(), collisions)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer raw.Close()

	var n int
	require.NoError(t, raw.QueryRow("SELECT COUNT(*) FROM records").Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, raw.QueryRow("SELECT COUNT(*) FROM exports").Scan(&n))
	assert.Equal(t, 2, n)

	var model sql.NullString
	var year sql.NullInt64
	var lat sql.NullFloat64
	require.NoError(t, raw.QueryRow(
		"SELECT model_exif, folder_year, latitude_exif FROM records WHERE source = ?", "/in/Photos from 2014/IMG_0001.JPG",
	).Scan(&model, &year, &lat))
	assert.Equal(t, "Pixel 3", model.String)
	assert.Equal(t, int64(2014), year.Int64)
	assert.InDelta(t, 48.8584, lat.Float64, 1e-9)

	require.NoError(t, raw.QueryRow("SELECT model_exif, folder_year FROM records WHERE source = ?", "/in/clip.mp4").Scan(&model, &year))
	assert.False(t, model.Valid)
	assert.False(t, year.Valid)

	var canonical string
	require.NoError(t, raw.QueryRow("SELECT source FROM collisions WHERE canonical = 1").Scan(&canonical))
	assert.Equal(t, "/in/a.jpg", canonical)
}
