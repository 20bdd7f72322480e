// Package domain holds the record persisted for every media file and the
// signal types it is built from.
package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// TimestampLayout is the textual form of every time in a report. Times are
// wall-clock values; the zone is not persisted.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a time serialized as TimestampLayout text.
type Timestamp struct {
	time.Time
}

// NewTimestamp returns a pointer to t as a Timestamp.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// String formats t with TimestampLayout.
func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "timestamp must be a string")
	}
	parsed, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		// accept RFC 3339 from hand-edited reports
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return errors.Wrapf(err, "parse timestamp %q", s)
		}
	}
	t.Time = parsed
	return nil
}

// Geo is a latitude/longitude pair; either half may be unknown.
type Geo struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Empty reports whether neither coordinate is known.
func (g *Geo) Empty() bool {
	return g == nil || (g.Latitude == nil && g.Longitude == nil)
}

// ExifSignals are the values embedded in the media file itself.
type ExifSignals struct {
	DateTime *Timestamp `json:"datetime_exif"`
	Geo      *Geo       `json:"geodata_exif"`
	Model    *string    `json:"model_exif"`
}

// FileSignals come from the filesystem.
type FileSignals struct {
	ModTime  *Timestamp `json:"datetime_filemodif"`
	Size     int64      `json:"file_size"`
	Checksum *string    `json:"checksum"`
}

// FilenameSignals come from the file's base name.
type FilenameSignals struct {
	DateTime *Timestamp `json:"datetime_filename"`
}

// SidecarSignals come from the resolved JSON sidecar document.
type SidecarSignals struct {
	DateTime *Timestamp `json:"datetime_json"`
	Geo      *Geo       `json:"geodata_json"`
}

// Record is produced once per media file and never mutated afterwards.
type Record struct {
	Source       string          `json:"source"`
	FolderYear   *int            `json:"folder_year"`
	Exif         ExifSignals     `json:"exif"`
	File         FileSignals     `json:"file"`
	FilenameTime FilenameSignals `json:"filename_time"`
	Hash         *string         `json:"hash"`
	JSON         SidecarSignals  `json:"json"`
	PreferredTS  Timestamp       `json:"preferred_ts"`
	Destination  string          `json:"destination"`
}

// Fingerprint returns the content fingerprint, or "" when there is none.
func (r Record) Fingerprint() string {
	if r.Hash == nil {
		return ""
	}
	return *r.Hash
}

// Marshal encodes r as a single compact JSON line without HTML escaping.
func (r Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, errors.Wrapf(err, "encode record %s", r.Source)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
