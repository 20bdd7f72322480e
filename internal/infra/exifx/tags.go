// Package exifx reads the embedded metadata tags of media files.
//
// Readers return tags keyed by "Group:Name" the way exiftool -G reports
// them, so the extractor does not care which reader produced them.
package exifx

// Tag names consumed by the extractor.
const (
	TagDateTimeOriginal = "EXIF:DateTimeOriginal"
	TagQuickTimeCreate  = "QuickTime:CreateDate"
	TagGPSLatitude      = "EXIF:GPSLatitude"
	TagGPSLatitudeRef   = "EXIF:GPSLatitudeRef"
	TagGPSLongitude     = "EXIF:GPSLongitude"
	TagGPSLongitudeRef  = "EXIF:GPSLongitudeRef"
	TagModel            = "EXIF:Model"
)

// wanted lists the tags requested from external readers.
var wanted = []string{
	TagDateTimeOriginal,
	TagQuickTimeCreate,
	TagGPSLatitude,
	TagGPSLatitudeRef,
	TagGPSLongitude,
	TagGPSLongitudeRef,
	TagModel,
}
