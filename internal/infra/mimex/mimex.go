// Package mimex sniffs content types for files whose extension is not
// recognised. The result only annotates diagnostics.
package mimex

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Sniffer detects MIME types from file content.
type Sniffer struct {
	fs afero.Fs
}

// New returns a Sniffer reading from fs.
func New(fs afero.Fs) *Sniffer {
	return &Sniffer{fs: fs}
}

// Sniff returns the detected MIME type of path, e.g. "image/jpeg".
func (s *Sniffer) Sniff(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open")
	}
	defer f.Close()

	m, err := mimetype.DetectReader(f)
	if err != nil {
		return "", errors.Wrap(err, "detect mime type")
	}
	return m.String(), nil
}
