// takeout-sifter reads a photo export, reconciles the capture time of every
// media file from its embedded metadata, JSON sidecar, file name and folder,
// and records where each file belongs in a date-based library.
//
// Usage:
//
//	takeout-sifter scan <input> <output> <report>
//	takeout-sifter analyse <report>
//	takeout-sifter export <report> --csv manifest.csv --sqlite report.db
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"takeout-sifter/internal/config"
	"takeout-sifter/internal/logx"
)

// Global flags shared by every command.
var (
	configPath string
	logLevel   string
	logFile    string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "takeout-sifter",
		Short:        "Sort a photo export by capture date",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./"+config.DefaultFileName+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file, rotated")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(analyseCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every command needs once flags and config are merged.
type env struct {
	fs     afero.Fs
	cfg    config.Effective
	log    *slog.Logger
	closer io.Closer
}

// Close flushes and closes the log file, if any.
func (e *env) Close() error { return e.closer.Close() }

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// setup loads the configuration, with cli carrying the command specific
// values, and builds the logger.
func setup(cmd *cobra.Command, cli config.CLIArgs) (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cli.ConfigPath = configPath
	cli.LogLevel, cli.LogLevelSet = logLevel, changed(cmd, "log-level")
	cli.LogFile, cli.LogFileSet = logFile, changed(cmd, "log-file")
	cli.Debug = debug

	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, cwd, cli)
	if err != nil {
		return nil, err
	}

	log, closer := logx.New(logx.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		MaxMB:   cfg.LogMaxMB,
		Backups: cfg.LogBackups,
	})
	log = log.With("run", uuid.New().String()[:8], "cmd", cmd.Name())
	if cfg.File != "" {
		log.Debug("config loaded", "path", cfg.File)
	}
	return &env{fs: fs, cfg: cfg, log: log, closer: closer}, nil
}
