package export

import (
	"database/sql"
	_ "embed"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"takeout-sifter/internal/domain"
	"takeout-sifter/internal/report"
)

//go:embed schema.sql
var schema string

// SQLite stores report records and fingerprint collisions.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init schema")
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Write stores every record and collision of one report in a single
// transaction and returns the export id. Records already present are
// replaced.
func (s *SQLite) Write(reportPath string, records []domain.Record, collisions []report.Collision) (string, error) {
	id := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return "", errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO exports (id, report, records, exported_at) VALUES (?, ?, ?, ?)",
		id, reportPath, len(records), time.Now().UTC(),
	); err != nil {
		return "", errors.Wrap(err, "insert export")
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO records (
		source, export_id, folder_year,
		datetime_exif, latitude_exif, longitude_exif, model_exif,
		datetime_filemodif, file_size, checksum,
		datetime_filename, hash,
		datetime_json, latitude_json, longitude_json,
		preferred_ts, destination
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", errors.Wrap(err, "prepare records")
	}
	defer stmt.Close()

	for _, rec := range records {
		exLat, exLon := coords(rec.Exif.Geo)
		jsLat, jsLon := coords(rec.JSON.Geo)
		if _, err := stmt.Exec(
			rec.Source, id, rec.FolderYear,
			nullTime(rec.Exif.DateTime), exLat, exLon, rec.Exif.Model,
			nullTime(rec.File.ModTime), rec.File.Size, rec.File.Checksum,
			nullTime(rec.FilenameTime.DateTime), rec.Hash,
			nullTime(rec.JSON.DateTime), jsLat, jsLon,
			rec.PreferredTS.String(), rec.Destination,
		); err != nil {
			return "", errors.Wrapf(err, "insert record %s", rec.Source)
		}
	}

	for _, c := range collisions {
		for i, src := range c.Sources {
			if _, err := tx.Exec(
				"INSERT OR REPLACE INTO collisions (fingerprint, source, canonical, export_id) VALUES (?, ?, ?, ?)",
				c.Fingerprint, src, i == 0, id,
			); err != nil {
				return "", errors.Wrapf(err, "insert collision %s", src)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit")
	}
	return id, nil
}

func coords(g *domain.Geo) (lat, lon *float64) {
	if g == nil {
		return nil, nil
	}
	return g.Latitude, g.Longitude
}

func nullTime(ts *domain.Timestamp) sql.NullString {
	if ts == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: ts.String(), Valid: true}
}
