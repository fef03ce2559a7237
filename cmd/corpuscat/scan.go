package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bpopineau/corpuscat/internal/errs"
	"github.com/bpopineau/corpuscat/internal/walker"
)

func newScanCmd(flags *globalFlags) *cobra.Command {
	var includeExt []string
	var excludePaths []string

	cmd := &cobra.Command{
		Use:   "scan [roots...]",
		Short: "Walk one or more roots and populate the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := openApp(flags, true)
			if err != nil {
				return err
			}
			defer cleanup()

			roots := args
			if len(roots) == 0 {
				roots = app.cfg.Roots
			}
			if len(roots) == 0 {
				return errs.Config("no roots given on the command line or in config.roots", nil)
			}

			include := includeExt
			if len(include) == 0 {
				include = app.cfg.IncludeExt
			}
			exclude := excludePaths
			if len(exclude) == 0 {
				exclude = app.cfg.ExcludePaths
			}

			var total walker.Stats
			for _, root := range roots {
				if app.cancel.IsSet() {
					return errs.Cancelled()
				}
				stats, err := walker.Walk(app.store, root, include, exclude)
				if err != nil {
					return err
				}
				total.FilesSeen += stats.FilesSeen
				total.FilesSkipped += stats.FilesSkipped
			}

			if app.cancel.IsSet() {
				fmt.Fprintln(cmd.OutOrStdout(), "scan cancelled")
				return errs.Cancelled()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d file(s), skipped %d\n", total.FilesSeen, total.FilesSkipped)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&includeExt, "include-ext", nil, "only catalog files with these extensions")
	cmd.Flags().StringSliceVar(&excludePaths, "exclude-path", nil, "skip paths containing this substring (may repeat)")

	return cmd
}
