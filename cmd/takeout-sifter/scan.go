package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"takeout-sifter/internal/config"
	"takeout-sifter/internal/extract"
	"takeout-sifter/internal/infra/checksum"
	"takeout-sifter/internal/infra/exifx"
	"takeout-sifter/internal/infra/mimex"
	"takeout-sifter/internal/infra/phash"
	"takeout-sifter/internal/sidecar"
	"takeout-sifter/internal/sifter"
)

func scanCmd() *cobra.Command {
	var (
		extractor  string
		timezone   string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "scan [input] [output] [report]",
		Short: "Scan an export and write the report",
		Long: `Scan walks input folder by folder, resolves JSON sidecars, works out
the capture time of every media file and appends one record per file to the
report. An existing report is backed up and its files are not scanned again.
Arguments override the config file.`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				Extractor:    extractor,
				ExtractorSet: changed(cmd, "extractor"),
				Timezone:     timezone,
				TimezoneSet:  changed(cmd, "tz"),
			}
			for i, dst := range []*string{&cli.Input, &cli.Output, &cli.Report} {
				if i < len(args) {
					*dst = args[i]
				}
			}

			e, err := setup(cmd, cli)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.cfg.RequireScan(); err != nil {
				return err
			}

			tags, err := tagReader(e)
			if err != nil {
				return err
			}
			ex := extract.New(e.fs, tags, phash.New(e.cfg.HashSize), checksum.New(e.fs),
				extract.Options{OutputRoot: e.cfg.Output, Location: e.cfg.Location}, e.log)
			s := sifter.New(e.fs, sidecar.NewResolver(e.fs, e.log), ex, mimex.New(e.fs), e.log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var obs sifter.Observer
			var bar *progress
			if !noProgress {
				bar = newProgress(os.Stderr)
				obs = bar
			}

			e.log.Info("scan started", "input", e.cfg.Input, "output", e.cfg.Output, "report", e.cfg.Report, "extractor", e.cfg.Extractor)
			sum, err := s.Run(ctx, sifter.Options{
				Input:       e.cfg.Input,
				Report:      e.cfg.Report,
				ExcludeDirs: e.cfg.ExcludeDirs,
			}, obs)
			if bar != nil {
				bar.Finish()
			}
			printSummary(sum)
			return err
		},
	}

	cmd.Flags().StringVar(&extractor, "extractor", config.DefaultExtractor, "embedded metadata reader: goexif or exiftool")
	cmd.Flags().StringVar(&timezone, "tz", "", "IANA zone for wall-clock times (default local)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw the progress spinner")
	return cmd
}

func tagReader(e *env) (extract.TagReader, error) {
	if e.cfg.Extractor == config.ExtractorExifTool {
		et, err := exifx.NewExifTool()
		if err != nil {
			return nil, err
		}
		return et, nil
	}
	return exifx.NewGoExif(e.fs), nil
}

func printSummary(sum sifter.Summary) {
	fmt.Println()
	fmt.Printf("Folders:     %d (%d with unresolvable sidecars)\n", sum.Folders, sum.FoldersAborted)
	fmt.Printf("Processed:   %d\n", sum.Processed)
	if sum.Resumed > 0 {
		fmt.Printf("Resumed:     %d already in report\n", sum.Resumed)
	}
	if sum.Skipped > 0 {
		fmt.Printf("Skipped:     %d in unresolvable folders\n", sum.Skipped)
	}
	fmt.Printf("Sidecars:    %d\n", sum.Sidecars)
	if sum.Unsupported > 0 {
		fmt.Printf("Unsupported: %d (see log)\n", sum.Unsupported)
	}
	if sum.Collisions > 0 {
		fmt.Printf("Duplicates:  %d fingerprint collisions, run analyse\n", sum.Collisions)
	}
	fmt.Printf("Report:      %d records", sum.Records)
	if sum.Backup != "" {
		fmt.Printf(", previous report kept as %s", sum.Backup)
	}
	fmt.Println()
	fmt.Printf("Took %s\n", sum.Duration.Round(time.Second))
}
