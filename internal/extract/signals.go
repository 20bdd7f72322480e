package extract

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"takeout-sifter/internal/datefind"
	"takeout-sifter/internal/domain"
	"takeout-sifter/internal/infra/exifx"
	"takeout-sifter/internal/sidecar"
)

// captureTags are tried in order for the embedded capture time.
var captureTags = []string{exifx.TagDateTimeOriginal, exifx.TagQuickTimeCreate}

func (e *Extractor) exifSignals(path string, tags map[string]any) domain.ExifSignals {
	var sig domain.ExifSignals

	for _, name := range captureTags {
		v, ok := tags[name]
		if !ok {
			continue
		}
		if t, ok := datefind.Find(fmt.Sprint(v), e.opts.Location); ok {
			sig.DateTime = domain.NewTimestamp(t)
		} else {
			e.log.Warn("unparseable capture time", "path", path, "signal", "datetime_exif", "tag", name, "value", v)
		}
		break
	}

	lat, latOK := number(tags[exifx.TagGPSLatitude])
	lon, lonOK := number(tags[exifx.TagGPSLongitude])
	if latOK || lonOK {
		g := &domain.Geo{}
		if latOK {
			if hemisphere(tags[exifx.TagGPSLatitudeRef]) == 'S' {
				lat = -lat
			}
			g.Latitude = &lat
		}
		if lonOK {
			if hemisphere(tags[exifx.TagGPSLongitudeRef]) == 'W' {
				lon = -lon
			}
			g.Longitude = &lon
		}
		sig.Geo = g
	}

	if m, ok := tags[exifx.TagModel]; ok {
		s := strings.TrimSpace(fmt.Sprint(m))
		if s != "" {
			sig.Model = &s
		}
	}
	return sig
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// hemisphere returns the upper-cased first letter of a GPS reference tag.
func hemisphere(v any) byte {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0
	}
	return strings.ToUpper(s)[0]
}

// sidecarSignals reads the document mapped to path, if any. Missing fields only
// leave their own signal unknown.
func (e *Extractor) sidecarSignals(path string, mapping sidecar.Mapping) domain.SidecarSignals {
	var sig domain.SidecarSignals
	name, ok := mapping.Lookup(filepath.Base(path))
	if !ok {
		return sig
	}
	docPath := filepath.Join(filepath.Dir(path), name)
	b, err := afero.ReadFile(e.fs, docPath)
	if err != nil {
		e.log.Error("read sidecar", "path", path, "signal", "json", "sidecar", docPath, "error", err)
		return sig
	}
	doc, err := sidecar.ParseDocument(b)
	if err != nil {
		e.log.Error("parse sidecar", "path", path, "signal", "json", "sidecar", docPath, "error", err)
		return sig
	}

	if doc.TakenAt != nil {
		sig.DateTime = domain.NewTimestamp(time.Unix(*doc.TakenAt, 0).In(e.opts.Location))
	} else {
		e.log.Warn("sidecar has no capture time", "path", path, "signal", "datetime_json", "sidecar", docPath)
	}
	if doc.Latitude != nil || doc.Longitude != nil {
		sig.Geo = &domain.Geo{Latitude: doc.Latitude, Longitude: doc.Longitude}
	} else {
		e.log.Warn("sidecar has no geo data", "path", path, "signal", "geodata_json", "sidecar", docPath)
	}
	return sig
}
