// Package media classifies files found in a photo export by extension and
// derives the coarse hints carried by folder names.
package media

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the role a file plays during a scan.
type Kind int

const (
	KindUnknown Kind = iota
	KindRaster       // decodable image, eligible for a content fingerprint
	KindRaw          // camera raw / layered formats, metadata only
	KindVideo
	KindSidecar
)

func (k Kind) String() string {
	switch k {
	case KindRaster:
		return "raster"
	case KindRaw:
		return "raw"
	case KindVideo:
		return "video"
	case KindSidecar:
		return "sidecar"
	default:
		return "unknown"
	}
}

// rasterExts contains image extensions we can decode for fingerprinting.
var rasterExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".heic": true,
	".heif": true,
	".hif":  true, // Apple HEIF (alternate extension)
}

// rawExts contains image formats that carry metadata but are not decoded.
var rawExts = map[string]bool{
	".dng": true, // Adobe Digital Negative
	".nef": true, // Nikon RAW
	".pef": true, // Pentax RAW
	".arw": true, // Sony RAW
	".cr2": true, // Canon RAW
	".raf": true, // Fujifilm RAW
	".psd": true,
}

var videoExts = map[string]bool{
	".3gp": true,
	".avi": true,
	".mov": true,
	".m4v": true,
	".mp4": true,
	".mkv": true,
	".mts": true,
}

// sidecarExts contains metadata companions that are never processed as media.
// Only .json documents take part in sidecar resolution.
var sidecarExts = map[string]bool{
	".json": true,
	".xmp":  true, // Adobe XMP sidecar
	".lrf":  true, // Low Resolution File (DJI)
}

// skipFolders contains directory names never descended into.
var skipFolders = map[string]bool{
	".stfolder":       true, // Syncthing
	".fseventsd":      true, // macOS filesystem events
	".Trashes":        true, // macOS trash
	".Spotlight-V100": true, // macOS Spotlight index
	"@eaDir":          true, // Synology thumbnails
}

// Classify returns the Kind for a file name or extension.
func Classify(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case rasterExts[ext]:
		return KindRaster
	case rawExts[ext]:
		return KindRaw
	case videoExts[ext]:
		return KindVideo
	case sidecarExts[ext]:
		return KindSidecar
	default:
		return KindUnknown
	}
}

// IsMedia reports whether the kind produces a record.
func (k Kind) IsMedia() bool {
	return k == KindRaster || k == KindRaw || k == KindVideo
}

// IsSidecarDocument reports whether name is a JSON document that may be a
// per-item sidecar.
func IsSidecarDocument(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

// SkipDir reports whether a directory should not be visited.
// Hidden directories are always skipped.
func SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || skipFolders[name]
}

var folderYearRE = regexp.MustCompile(`([12]\d{3})$`)

// FolderYear extracts the year hint from a folder whose name ends in a
// four digit year, e.g. "Photos from 2014". Returns nil if there is none.
func FolderYear(folder string) *int {
	m := folderYearRE.FindStringSubmatch(filepath.Base(filepath.Clean(folder)))
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}
