package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"takeout-sifter/internal/config"
	"takeout-sifter/internal/export"
	"takeout-sifter/internal/report"
)

func exportCmd() *cobra.Command {
	var csvPath, sqlitePath string

	cmd := &cobra.Command{
		Use:   "export [report]",
		Short: "Write the report as a CSV manifest and/or a SQLite database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" && sqlitePath == "" {
				return errors.New("nothing to do: pass --csv and/or --sqlite")
			}
			var cli config.CLIArgs
			if len(args) == 1 {
				cli.Report = args[0]
			}
			e, err := setup(cmd, cli)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.cfg.RequireReport(); err != nil {
				return err
			}

			rep, err := report.Load(e.fs, e.cfg.Report, e.log)
			if err != nil {
				return err
			}
			records := rep.Records()

			if csvPath != "" {
				f, err := e.fs.Create(csvPath)
				if err != nil {
					return errors.Wrap(err, "create manifest")
				}
				if err := export.WriteCSV(f, records); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return errors.Wrap(err, "close manifest")
				}
				fmt.Printf("Manifest: %s (%d rows)\n", csvPath, len(records))
			}

			if sqlitePath != "" {
				db, err := export.OpenSQLite(sqlitePath)
				if err != nil {
					return err
				}
				defer db.Close()
				id, err := db.Write(e.cfg.Report, records, report.Index(records, e.log).Collisions())
				if err != nil {
					return err
				}
				fmt.Printf("Database: %s (%d records, export %s)\n", sqlitePath, len(records), id[:8])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "write a CSV manifest to this file")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "write records and collisions to this SQLite database")
	return cmd
}
