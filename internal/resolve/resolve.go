// Package resolve combines the independent time signals of a media file into
// one preferred capture time and derives the file's destination from it.
package resolve

import (
	"fmt"
	"path/filepath"
	"time"
)

// Source names the signal a preferred time was taken from.
type Source string

const (
	SourceEmbedded   Source = "exif"
	SourceSidecar    Source = "json"
	SourceFilename   Source = "filename"
	SourceFolderYear Source = "folder_year"
	SourceModTime    Source = "filemodif"
	SourceNone       Source = "none"
)

// Candidates are the time signals gathered for one file. Nil means unknown.
type Candidates struct {
	Embedded   *time.Time
	Sidecar    *time.Time
	Filename   *time.Time
	FolderYear *int
	ModTime    *time.Time
}

// Preferred returns the first known signal in the order embedded, sidecar,
// filename, folder year (as January 1st 00:00:00), modification time.
// ok is false when every signal is unknown.
func Preferred(c Candidates, loc *time.Location) (t time.Time, src Source, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	switch {
	case c.Embedded != nil:
		return *c.Embedded, SourceEmbedded, true
	case c.Sidecar != nil:
		return *c.Sidecar, SourceSidecar, true
	case c.Filename != nil:
		return *c.Filename, SourceFilename, true
	case c.FolderYear != nil:
		return time.Date(*c.FolderYear, time.January, 1, 0, 0, 0, 0, loc), SourceFolderYear, true
	case c.ModTime != nil:
		return *c.ModTime, SourceModTime, true
	}
	return time.Time{}, SourceNone, false
}

// Destination returns root/YYYY/YYYY_MM/YYYY-MM-DD_hhmmss_base.
func Destination(root string, t time.Time, base string) string {
	return filepath.Join(
		root,
		fmt.Sprintf("%04d", t.Year()),
		t.Format("2006_01"),
		t.Format("2006-01-02_150405")+"_"+base,
	)
}
