package exifx

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/spf13/afero"
)

// GoExif decodes EXIF in process. It covers still images only; videos yield
// no tags.
type GoExif struct {
	fs afero.Fs
}

// exifExts are the containers goexif can find an EXIF block in.
var exifExts = map[string]bool{
	".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true,
	".dng": true, ".nef": true, ".pef": true, ".arw": true, ".cr2": true,
}

// NewGoExif returns a reader opening files from fs.
func NewGoExif(fs afero.Fs) *GoExif {
	return &GoExif{fs: fs}
}

// Handles reports whether name is a format goexif can read.
func (g *GoExif) Handles(name string) bool {
	return exifExts[strings.ToLower(filepath.Ext(name))]
}

// ReadTags decodes the EXIF block of path. A file without EXIF returns an
// error, like exif.Decode does.
func (g *GoExif) ReadTags(path string) (map[string]any, error) {
	f, err := g.fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "decode exif")
	}

	tags := make(map[string]any)
	if s, ok := stringTag(x, exif.DateTimeOriginal); ok {
		tags[TagDateTimeOriginal] = s
	}
	if s, ok := stringTag(x, exif.Model); ok {
		tags[TagModel] = s
	}
	if s, ok := stringTag(x, exif.GPSLatitudeRef); ok {
		tags[TagGPSLatitudeRef] = s
	}
	if s, ok := stringTag(x, exif.GPSLongitudeRef); ok {
		tags[TagGPSLongitudeRef] = s
	}
	if v, ok := degrees(x, exif.GPSLatitude); ok {
		tags[TagGPSLatitude] = v
	}
	if v, ok := degrees(x, exif.GPSLongitude); ok {
		tags[TagGPSLongitude] = v
	}
	return tags, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) (string, bool) {
	t, err := x.Get(name)
	if err != nil || t.Format() != tiff.StringVal {
		return "", false
	}
	s, err := t.StringVal()
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	return s, s != ""
}

// degrees converts a degrees/minutes/seconds rational triple to an unsigned
// decimal value; the hemisphere lives in the matching Ref tag.
func degrees(x *exif.Exif, name exif.FieldName) (float64, bool) {
	t, err := x.Get(name)
	if err != nil || t.Count < 3 {
		return 0, false
	}
	var parts [3]float64
	for i := range parts {
		num, den, err := t.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		parts[i] = float64(num) / float64(den)
	}
	return parts[0] + parts[1]/60 + parts[2]/3600, true
}
