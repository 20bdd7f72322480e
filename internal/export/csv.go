// Package export writes a persisted report to other formats: a CSV
// manifest and a SQLite database.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"takeout-sifter/internal/domain"
)

// manifestHeaders are the CSV columns, one row per record.
var manifestHeaders = []string{
	"filename",        // base name of the source
	"source",          // full source path
	"source_folder",   // folder the source was found in
	"file_size_bytes", // size in bytes
	"file_size_mb",    // size in megabytes
	"file_modified",   // filesystem modification time
	"capture_date",    // preferred timestamp
	"camera_model",    // embedded model, if any
	"checksum",        // BLAKE3 of the first 64KB
	"fingerprint",     // perceptual hash, images only
	"latitude",        // embedded, else sidecar
	"longitude",       // embedded, else sidecar
	"extension",       // lower-cased extension
	"destination",     // computed destination path
}

// WriteCSV writes records as a manifest with a header row.
func WriteCSV(w io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(manifestHeaders); err != nil {
		return errors.Wrap(err, "write manifest header")
	}
	for _, rec := range records {
		if err := cw.Write(manifestRow(rec)); err != nil {
			return errors.Wrapf(err, "write manifest row %s", rec.Source)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush manifest")
}

func manifestRow(rec domain.Record) []string {
	lat, lon := location(rec)
	return []string{
		filepath.Base(rec.Source),
		rec.Source,
		filepath.Dir(rec.Source),
		strconv.FormatInt(rec.File.Size, 10),
		fmt.Sprintf("%.2f", float64(rec.File.Size)/(1024*1024)),
		timestamp(rec.File.ModTime),
		rec.PreferredTS.String(),
		deref(rec.Exif.Model),
		deref(rec.File.Checksum),
		deref(rec.Hash),
		coordinate(lat),
		coordinate(lon),
		strings.ToLower(filepath.Ext(rec.Source)),
		rec.Destination,
	}
}

// location prefers embedded coordinates over the sidecar's.
func location(rec domain.Record) (lat, lon *float64) {
	if !rec.Exif.Geo.Empty() {
		return rec.Exif.Geo.Latitude, rec.Exif.Geo.Longitude
	}
	if !rec.JSON.Geo.Empty() {
		return rec.JSON.Geo.Latitude, rec.JSON.Geo.Longitude
	}
	return nil, nil
}

func timestamp(ts *domain.Timestamp) string {
	if ts == nil {
		return ""
	}
	return ts.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func coordinate(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
