package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bpopineau/corpuscat/internal/candidates"
	"github.com/bpopineau/corpuscat/internal/dedupe"
	"github.com/bpopineau/corpuscat/internal/errs"
	"github.com/bpopineau/corpuscat/internal/prune"
	"github.com/bpopineau/corpuscat/internal/ratelimit"
	"github.com/bpopineau/corpuscat/internal/report"
)

func newDedupeCmd(flags *globalFlags) *cobra.Command {
	var (
		networkFriendly  bool
		progressive      bool
		useBLAKE3        bool
		metadataOnly     bool
		metadataPrune    bool
		skipQuickHash    bool
		skipSHA256       bool
		sampleBytes      int64
		ioBytesPerSec    int64
		includePrefix    []string
		excludePrefix    []string
		reportFlag       bool
		reportOnly       bool
		reportLimit      int
		deleteDuplicates bool
		dryRun           bool
		keepNewest       bool
		noConfirm        bool
	)

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Detect (and optionally prune) duplicate files in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Taxonomy entry 1: metadata grouping never carries enough
			// evidence to drive deletion, so the combination is refused
			// outright before any work runs.
			if deleteDuplicates && metadataOnly {
				return errs.Config("--delete-duplicates cannot be combined with --metadata-only: metadata grouping is not a confirmed duplicate and must not drive deletion", nil)
			}

			app, cleanup, err := openApp(flags, true)
			if err != nil {
				return err
			}
			defer cleanup()

			limiter := ratelimit.Disabled()
			if ioBytesPerSec > 0 {
				limiter = ratelimit.New(ioBytesPerSec, sampleBytes)
			}

			filter := candidates.PathFilter{Include: includePrefix, Exclude: excludePrefix}
			opts := dedupe.Options{
				NetworkFriendly:    networkFriendly,
				Progressive:        progressive,
				UseBLAKE3:          useBLAKE3,
				MirrorToSHA256:     false,
				MetadataOnly:       metadataOnly,
				SkipQuickHash:      skipQuickHash,
				SkipSHA256:         skipSHA256,
				SampleBytes:        sampleBytes,
				MinFileSize:        app.cfg.Dedupe.MinFileSize,
				MinDuplicateCount:  app.cfg.Dedupe.MinDuplicateCount,
				SmallFileThreshold: app.cfg.Dedupe.SmallFileThreshold,
				MaxWorkers:         app.cfg.Dedupe.MaxWorkers,
				Filter:             filter,
				ReportLimit:        reportLimit,
			}
			deps := dedupe.Deps{Cancel: app.cancel, Logger: app.logger, Limiter: limiter, Progress: app.progress}

			stats, err := dedupe.Run(app.store, opts, deps)
			if err != nil {
				return err
			}

			if app.cancel.IsSet() {
				fmt.Fprintln(cmd.OutOrStdout(), "dedupe cancelled")
				return errs.Cancelled()
			}

			if reportFlag || reportOnly || !deleteDuplicates {
				printGroups(cmd, stats.Groups, stats.WastedBytes)
			}
			if reportOnly {
				return nil
			}

			policy := prune.KeepOldest
			if keepNewest {
				policy = prune.KeepNewest
			}
			plans := prune.Plan(stats.Groups, policy)

			// --metadata-prune retires catalog rows only: a metadata match
			// (size+name+extension) is never sufficient evidence to delete a
			// file from disk, only to drop the catalog's bookkeeping for it.
			// It runs independent of --delete-duplicates, which is already
			// refused alongside --metadata-only above.
			if metadataPrune {
				if !metadataOnly {
					return errs.Config("--metadata-prune requires --metadata-only", nil)
				}
				if !noConfirm && !dryRun {
					if !confirmCatalogPrune(cmd, plans) {
						fmt.Fprintln(cmd.OutOrStdout(), "prune aborted")
						return nil
					}
				}
				result := prune.ExecuteCatalogOnly(app.store, plans, dryRun)
				printPruneResult(cmd, result, dryRun)
				return nil
			}

			if !deleteDuplicates {
				return nil
			}

			if !noConfirm && !dryRun {
				if !confirmPrune(cmd, plans) {
					fmt.Fprintln(cmd.OutOrStdout(), "prune aborted")
					return nil
				}
			}

			result := prune.Execute(app.store, plans, dryRun)
			printPruneResult(cmd, result, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&networkFriendly, "network-friendly", false, "cap worker concurrency to reduce I/O pressure on network filesystems")
	cmd.Flags().BoolVar(&progressive, "progressive", false, "use progressive head/tail sampling instead of quick-hash")
	cmd.Flags().BoolVar(&useBLAKE3, "blake3", false, "use BLAKE3 instead of SHA-256 for the confirmation hash")
	cmd.Flags().BoolVar(&metadataOnly, "metadata-only", false, "group by size+name+extension only, never hashing file content")
	cmd.Flags().BoolVar(&metadataPrune, "metadata-prune", false, "allow pruning from a metadata-only report (requires --metadata-only)")
	cmd.Flags().BoolVar(&skipQuickHash, "skip-quick-hash", false, "skip the quick-hash stage")
	cmd.Flags().BoolVar(&skipSHA256, "skip-sha256", false, "skip the full confirmation-hash stage")
	cmd.Flags().Int64Var(&sampleBytes, "sample-bytes", 262144, "bytes sampled per quick-hash/progressive window")
	cmd.Flags().Int64Var(&ioBytesPerSec, "io-bytes-per-sec", 0, "approximate global I/O rate limit in bytes per second")
	cmd.Flags().StringSliceVar(&includePrefix, "include-prefix", nil, "only consider files under this path prefix (may repeat)")
	cmd.Flags().StringSliceVar(&excludePrefix, "exclude-prefix", nil, "skip files under this path prefix (may repeat)")
	cmd.Flags().BoolVar(&reportFlag, "report", false, "print the duplicate report even when pruning")
	cmd.Flags().BoolVar(&reportOnly, "report-only", false, "print the duplicate report and exit without pruning")
	cmd.Flags().IntVar(&reportLimit, "report-limit", 0, "limit the number of groups reported (0 = unlimited)")
	cmd.Flags().BoolVar(&deleteDuplicates, "delete-duplicates", false, "unlink losers and delete their catalog rows")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the prune and print it without touching the filesystem or catalog")
	cmd.Flags().BoolVar(&keepNewest, "keep-newest", false, "keep the newest member of each group instead of the oldest")
	cmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip the interactive prune confirmation prompt")

	return cmd
}

func printGroups(cmd *cobra.Command, groups []report.Group, wasted int64) {
	for _, g := range groups {
		fmt.Fprintln(cmd.OutOrStdout(), g.Summary())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d duplicate group(s), %d byte(s) reclaimable\n", len(groups), wasted)
}

func confirmPrune(cmd *cobra.Command, plans []prune.GroupPlan) bool {
	return confirmPlan(cmd, plans, "delete", "file(s)")
}

func confirmCatalogPrune(cmd *cobra.Command, plans []prune.GroupPlan) bool {
	return confirmPlan(cmd, plans, "retire", "catalog row(s)")
}

func confirmPlan(cmd *cobra.Command, plans []prune.GroupPlan, verb, noun string) bool {
	var losers int
	var bytes int64
	for _, p := range plans {
		losers += len(p.Losers)
		bytes += p.BytesReclaimable()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "about to %s %d %s across %d group(s), reclaiming %d byte(s)\n", verb, losers, noun, len(plans), bytes)
	fmt.Fprint(cmd.OutOrStdout(), "proceed? [y/N] ")

	reader := bufio.NewReader(cmd.InOrStdin())
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printPruneResult(cmd *cobra.Command, r prune.Result, dryRun bool) {
	if dryRun {
		// A dry run mutates nothing, so its counts come from the plan.
		var losers, groups int
		for _, p := range r.Plan {
			if len(p.Losers) > 0 {
				groups++
			}
			losers += len(p.Losers)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "would remove %d duplicate(s) across %d group(s), %d byte(s) reclaimable\n",
			losers, groups, r.PotentialBytesReclaimable)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d file(s) across %d group(s), %d byte(s) reclaimed, %d catalog row(s) deleted\n",
		r.FilesRemoved, r.GroupsModified, r.BytesReclaimed, r.CatalogRowsRemoved)
	for _, e := range r.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "error: %v\n", e)
	}
}
