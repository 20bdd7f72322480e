package exifx

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// ExifTool reads tags by running the exiftool binary once per file. It
// reads from the real filesystem and understands video containers.
type ExifTool struct {
	bin string
}

// NewExifTool locates exiftool on PATH.
func NewExifTool() (*ExifTool, error) {
	bin, err := exec.LookPath("exiftool")
	if err != nil {
		return nil, errors.Wrap(err, "exiftool not found in PATH")
	}
	return &ExifTool{bin: bin}, nil
}

func (e *ExifTool) args(path string) []string {
	args := []string{"-json", "-n", "-G"}
	for _, t := range wanted {
		// exiftool selects tags by name without the group prefix
		args = append(args, "-"+t[strings.IndexByte(t, ':')+1:])
	}
	return append(args, path)
}

// ReadTags runs exiftool -json -n -G on path.
func (e *ExifTool) ReadTags(path string) (map[string]any, error) {
	var stderr bytes.Buffer
	cmd := exec.Command(e.bin, e.args(path)...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrapf(err, "exiftool: %s", bytes.TrimSpace(stderr.Bytes()))
	}
	return parseExifToolJSON(out)
}

func parseExifToolJSON(out []byte) (map[string]any, error) {
	var docs []map[string]any
	if err := json.Unmarshal(out, &docs); err != nil {
		return nil, errors.Wrap(err, "decode exiftool output")
	}
	if len(docs) == 0 {
		return nil, errors.New("exiftool returned no document")
	}
	tags := docs[0]
	delete(tags, "SourceFile")
	return tags, nil
}
