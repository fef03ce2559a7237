package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bpopineau/corpuscat/internal/errs"
	"github.com/bpopineau/corpuscat/internal/export"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	var (
		dir    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the catalog's files table to CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := openApp(flags, true)
			if err != nil {
				return err
			}
			defer cleanup()

			outDir := dir
			if outDir == "" {
				outDir = app.cfg.Export.ParquetDir
			}

			format := export.FormatCSV
			if asJSON {
				format = export.FormatJSON
			}

			path, err := export.ToDir(app.store.DB, outDir, format)
			if err != nil {
				return errs.CatalogIO(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "out", "", "output directory (default export.parquet_dir from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write JSON instead of CSV")

	return cmd
}
