package report

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"takeout-sifter/internal/domain"
)

// Decode reads a report stream. A stream cut short by an interrupted run
// (missing closing bracket, half-written last record) yields every complete
// record and truncated=true. Entries without a source are ignored.
func Decode(r io.Reader) (records []domain.Record, truncated bool, err error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "read report")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, false, errors.Errorf("report must be a JSON array, found %v", tok)
	}

	for dec.More() {
		var rec domain.Record
		if err := dec.Decode(&rec); err != nil {
			if isTruncation(err) {
				return records, true, nil
			}
			return records, false, errors.Wrapf(err, "decode record %d", len(records)+1)
		}
		if rec.Source == "" {
			continue
		}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		if isTruncation(err) {
			return records, true, nil
		}
		return records, false, errors.Wrap(err, "read report end")
	}
	return records, false, nil
}

func isTruncation(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

// Load reads the report at path into a Report. A missing file is an empty
// report. Duplicate sources keep their first record.
func Load(fs afero.Fs, path string, log *slog.Logger) (*Report, error) {
	if log == nil {
		log = slog.Default()
	}
	rep := New()
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rep, nil
		}
		return nil, errors.Wrap(err, "open report")
	}
	defer f.Close()

	records, truncated, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	if truncated {
		log.Warn("report was not closed, loaded complete records only", "path", path, "records", len(records))
	}
	for _, rec := range records {
		if !rep.Add(rec) {
			log.Warn("duplicate source in report, keeping first", "path", rec.Source)
		}
	}
	return rep, nil
}
