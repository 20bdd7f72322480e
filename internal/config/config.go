// Package config merges the optional sifter.json file with command line
// flags into the configuration a run consumes.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // zone names on hosts without a zoneinfo database

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"takeout-sifter/internal/infra/phash"
	"takeout-sifter/internal/logx"
)

const (
	// ErrCodeNotFound means an explicitly named config file does not exist.
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid means the file cannot be read or parsed, or a field is invalid.
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingInput means a scan has no input folder.
	ErrCodeMissingInput = "config_missing_input"
	// ErrCodeMissingOutput means a scan has no output root.
	ErrCodeMissingOutput = "config_missing_output"
	// ErrCodeMissingReport means no report path was given.
	ErrCodeMissingReport = "config_missing_report"
)

const (
	DefaultFileName  = "sifter.json"
	DefaultExtractor = ExtractorGoExif

	ExtractorGoExif   = "goexif"
	ExtractorExifTool = "exiftool"
)

// FileConfig is the layout of sifter.json.
type FileConfig struct {
	Input       string   `json:"input"`
	Output      string   `json:"output"`
	Report      string   `json:"report"`
	LogLevel    string   `json:"log_level"`
	LogFile     string   `json:"log_file"`
	LogMaxMB    int      `json:"log_max_mb"`
	LogBackups  int      `json:"log_backups"`
	Extractor   string   `json:"extractor"`
	Timezone    string   `json:"timezone"`
	ExcludeDirs []string `json:"exclude_dirs"`
	HashSize    int      `json:"hash_size"`
}

// CLIArgs are the command line values. The *Set fields record whether a
// flag was given explicitly, so that a flag can override the file even with
// its zero value.
type CLIArgs struct {
	ConfigPath string

	Input  string
	Output string
	Report string

	LogLevel    string
	LogLevelSet bool
	Debug       bool

	LogFile    string
	LogFileSet bool

	Extractor    string
	ExtractorSet bool

	Timezone    string
	TimezoneSet bool
}

// Effective is the merged configuration. Paths are absolute.
type Effective struct {
	Input  string
	Output string
	Report string

	LogLevel   slog.Level
	LogFile    string
	LogMaxMB   int
	LogBackups int

	Extractor   string
	Location    *time.Location
	ExcludeDirs []string
	HashSize    int

	// File is the config file that was read, "" if none.
	File string
}

// Error is a configuration error carrying a stable code.
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Path != "":
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Path)
	default:
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code extracts the code of a *Error, or "" for other errors.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Load reads the config file and merges cli over it.
//
// The file is cli.ConfigPath when given (it must then exist), otherwise
// <cwd>/sifter.json when present. Precedence is flag > file > default.
// Relative paths in the file are relative to the file's folder, relative
// paths on the command line to cwd.
func Load(fs afero.Fs, cwd string, cli CLIArgs) (Effective, error) {
	cfgPath := filepath.Join(cwd, DefaultFileName)
	explicit := strings.TrimSpace(cli.ConfigPath) != ""
	if explicit {
		cfgPath = absFrom(cwd, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(fs, cfgPath)
	if err != nil {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && explicit {
		return Effective{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if !exists {
		cfgPath = ""
	}
	return merge(cwd, cli, fc, cfgPath)
}

func merge(cwd string, cli CLIArgs, fc FileConfig, cfgPath string) (Effective, error) {
	invalid := func(err error) (Effective, error) {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	fileDir := cwd
	if cfgPath != "" {
		fileDir = filepath.Dir(cfgPath)
	}

	eff := Effective{
		Input:       pick(cwd, cli.Input, fileDir, fc.Input),
		Output:      pick(cwd, cli.Output, fileDir, fc.Output),
		Report:      pick(cwd, cli.Report, fileDir, fc.Report),
		LogMaxMB:    fc.LogMaxMB,
		LogBackups:  fc.LogBackups,
		ExcludeDirs: fc.ExcludeDirs,
		HashSize:    fc.HashSize,
		File:        cfgPath,
	}

	level := fc.LogLevel
	if cli.LogLevelSet {
		level = cli.LogLevel
	}
	lvl, err := logx.ParseLevel(level)
	if err != nil {
		return invalid(err)
	}
	if cli.Debug {
		lvl = slog.LevelDebug
	}
	eff.LogLevel = lvl

	switch {
	case cli.LogFileSet:
		eff.LogFile = absFrom(cwd, cli.LogFile)
	case strings.TrimSpace(fc.LogFile) != "":
		eff.LogFile = absFrom(fileDir, fc.LogFile)
	}
	if eff.LogMaxMB <= 0 {
		eff.LogMaxMB = logx.DefaultMaxMB
	}
	if eff.LogBackups <= 0 {
		eff.LogBackups = logx.DefaultBackups
	}

	eff.Extractor = DefaultExtractor
	if cli.ExtractorSet {
		eff.Extractor = cli.Extractor
	} else if fc.Extractor != "" {
		eff.Extractor = fc.Extractor
	}
	eff.Extractor = strings.ToLower(strings.TrimSpace(eff.Extractor))
	if eff.Extractor != ExtractorGoExif && eff.Extractor != ExtractorExifTool {
		return invalid(errors.Errorf("extractor must be %q or %q, got %q", ExtractorGoExif, ExtractorExifTool, eff.Extractor))
	}

	tz := fc.Timezone
	if cli.TimezoneSet {
		tz = cli.Timezone
	}
	eff.Location = time.Local
	if tz = strings.TrimSpace(tz); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return invalid(errors.Wrap(err, "timezone"))
		}
		eff.Location = loc
	}

	if eff.HashSize == 0 {
		eff.HashSize = phash.DefaultSize
	}
	if eff.HashSize < 8 || eff.HashSize&(eff.HashSize-1) != 0 {
		return invalid(errors.Errorf("hash_size must be a power of two >= 8, got %d", eff.HashSize))
	}
	return eff, nil
}

// RequireScan checks the fields a scan needs.
func (e Effective) RequireScan() error {
	switch {
	case e.Input == "":
		return &Error{Code: ErrCodeMissingInput, Path: e.File}
	case e.Output == "":
		return &Error{Code: ErrCodeMissingOutput, Path: e.File}
	}
	return e.RequireReport()
}

// RequireReport checks that a report path is known.
func (e Effective) RequireReport() error {
	if e.Report == "" {
		return &Error{Code: ErrCodeMissingReport, Path: e.File}
	}
	return nil
}

func readFileConfig(fs afero.Fs, path string) (FileConfig, bool, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	var fc FileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

// pick returns the CLI value resolved against cwd, else the file value
// resolved against the file's folder, else "".
func pick(cwd, cliValue, fileDir, fileValue string) string {
	if strings.TrimSpace(cliValue) != "" {
		return absFrom(cwd, cliValue)
	}
	if strings.TrimSpace(fileValue) != "" {
		return absFrom(fileDir, fileValue)
	}
	return ""
}

func absFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
