// Package phash computes perceptual fingerprints of raster images.
package phash

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/corona10/goimagehash"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultSize is the hash edge length. 16x16 gives 256 bits, enough to keep
// burst shots taken seconds apart from colliding.
const DefaultSize = 16

// Hasher fingerprints images with an extended perceptual hash.
type Hasher struct {
	size int
}

// New returns a Hasher producing size x size bit hashes. size must be a
// power of two; anything else falls back to DefaultSize.
func New(size int) *Hasher {
	if size < 8 || size&(size-1) != 0 {
		size = DefaultSize
	}
	return &Hasher{size: size}
}

// Size is the effective hash edge length.
func (h *Hasher) Size() int { return h.size }

// Fingerprint decodes r and returns its hash as text. Undecodable input is
// an error.
func (h *Hasher) Fingerprint(r io.Reader) (string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return "", errors.Wrap(err, "decode image")
	}
	hash, err := goimagehash.ExtPerceptionHash(img, h.size, h.size)
	if err != nil {
		return "", errors.Wrapf(err, "perception hash (%s)", format)
	}
	return hash.ToString(), nil
}
