package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bpopineau/corpuscat/internal/candidates"
	"github.com/bpopineau/corpuscat/internal/dedupe"
	"github.com/bpopineau/corpuscat/internal/errs"
	"github.com/bpopineau/corpuscat/internal/ratelimit"
)

func newHashCmd(flags *globalFlags) *cobra.Command {
	var (
		force          bool
		maxWorkers     int
		includePrefix  []string
		excludePrefix  []string
		ioBytesPerSec  int64
		chunkBytes     int64
		mirrorToSHA256 bool
	)

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute BLAKE3 digests for every cataloged file",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := openApp(flags, true)
			if err != nil {
				return err
			}
			defer cleanup()

			limiter := ratelimit.Disabled()
			if ioBytesPerSec > 0 {
				limiter = ratelimit.New(ioBytesPerSec, chunkBytes)
			}

			workers := maxWorkers
			if workers <= 0 {
				workers = app.cfg.Dedupe.MaxWorkers
			}

			opts := dedupe.HashAllOptions{
				Force:          force,
				MaxWorkers:     workers,
				SampleBytes:    chunkBytes,
				MirrorToSHA256: mirrorToSHA256,
				Filter:         candidates.PathFilter{Include: includePrefix, Exclude: excludePrefix},
			}
			deps := dedupe.Deps{Cancel: app.cancel, Logger: app.logger, Limiter: limiter, Progress: app.progress}

			stats, err := dedupe.RunHashAll(app.store, opts, deps)
			if err != nil {
				return err
			}

			if app.cancel.IsSet() {
				fmt.Fprintln(cmd.OutOrStdout(), "hash sweep cancelled")
				return errs.Cancelled()
			}

			fmt.Fprintln(cmd.OutOrStdout(), "================================================================================")
			fmt.Fprintln(cmd.OutOrStdout(), "BLAKE3 HASH SUMMARY")
			fmt.Fprintln(cmd.OutOrStdout(), "================================================================================")
			fmt.Fprintf(cmd.OutOrStdout(), "Total candidates:    %10d\n", stats.TotalCandidates)
			fmt.Fprintf(cmd.OutOrStdout(), "Hashed:              %10d\n", stats.Hashed)
			fmt.Fprintf(cmd.OutOrStdout(), "Missing files:       %10d\n", stats.Missing)
			fmt.Fprintf(cmd.OutOrStdout(), "Errors:              %10d\n", stats.Errored)
			fmt.Fprintln(cmd.OutOrStdout(), "================================================================================")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-hash files even if a BLAKE3 digest exists")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "override worker count (default from config)")
	cmd.Flags().StringSliceVar(&includePrefix, "include-prefix", nil, "only process files under this path prefix (may repeat)")
	cmd.Flags().StringSliceVar(&excludePrefix, "exclude-prefix", nil, "skip files under this path prefix (may repeat)")
	cmd.Flags().Int64Var(&ioBytesPerSec, "io-bytes-per-sec", 0, "approximate global I/O rate limit in bytes per second")
	cmd.Flags().Int64Var(&chunkBytes, "chunk-bytes", 262144, "rate-limiter burst size in bytes (reads always use a fixed 64 KiB buffer)")
	cmd.Flags().BoolVar(&mirrorToSHA256, "mirror-to-sha256", false, "also copy the BLAKE3 digest into the sha256 column")

	return cmd
}
