package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"takeout-sifter/internal/analyze"
	"takeout-sifter/internal/config"
)

func analyseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "analyse [report]",
		Aliases: []string{"analyze"},
		Short:   "Report destination clashes and duplicate groups",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			res, err := analyze.New(e.fs, e.log).File(e.cfg.Report)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printAnalysis(res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printAnalysis(res analyze.Result) {
	fmt.Printf("Records: %d\n", res.Records)

	if len(res.Collisions) > 0 {
		fmt.Printf("\nDestination collisions (%d), different content:\n", len(res.Collisions))
		for _, c := range res.Collisions {
			fmt.Printf("  %s\n    %s\n    %s\n", c.Destination, c.Kept, c.Other)
		}
	}
	if len(res.Duplicates) > 0 {
		fmt.Printf("\nSame destination, same content (%d), one copy can go:\n", len(res.Duplicates))
		for _, c := range res.Duplicates {
			fmt.Printf("  %s <- %s\n", c.Destination, c.Other)
		}
	}

	if n := res.Unresolved(); n > 0 {
		fmt.Printf("\nDuplicate groups needing review (%d):\n", n)
		for _, g := range res.Groups {
			if g.Resolved {
				continue
			}
			fmt.Printf("  %s\n", g.Fingerprint)
			for _, d := range g.Destinations {
				fmt.Printf("    %s\n", d)
			}
		}
	}
	fmt.Printf("\nDuplicate groups collapsed: %d\n", len(res.Groups)-res.Unresolved())

	if res.Clean() {
		fmt.Println("Nothing needs manual attention.")
	}
}
