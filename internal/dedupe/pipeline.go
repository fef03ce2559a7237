// Package dedupe orchestrates the duplicate-detection pipeline:
// detect_duplicates(config, flags) -> stats, exactly the single
// operation the specification names. It wires the candidate selector,
// the stage executor, the hash primitives, and the rate limiter
// together, routing through whichever mode (metadata-only,
// quick-hash+full, progressive, BLAKE3) the caller's Options select.
package dedupe

import (
	"github.com/bpopineau/corpuscat/internal/candidates"
	"github.com/bpopineau/corpuscat/internal/catalog"
	"github.com/bpopineau/corpuscat/internal/errs"
	"github.com/bpopineau/corpuscat/internal/hashing"
	"github.com/bpopineau/corpuscat/internal/report"
	"github.com/bpopineau/corpuscat/internal/stageexec"
)

const (
	quickHashPageSize = 10000
	fullHashPageSize  = 5000

	quickHashTable      = "dedupe_quick_candidates"
	headSampleTable     = "dedupe_head_candidates"
	tailSampleTable     = "dedupe_tail_candidates"
	fullHashTable       = "dedupe_full_candidates"
	networkFriendlyCeil = 2
)

// Run executes detect_duplicates against store, per opts.
func Run(store *catalog.Store, opts Options, deps Deps) (*Stats, error) {
	if opts.MetadataOnly {
		groups, err := report.GroupByMetadata(store.DB, opts.Filter, opts.ReportLimit)
		if err != nil {
			return nil, errs.CatalogIO(err)
		}
		return &Stats{Groups: groups, WastedBytes: report.TotalWastedBytes(groups)}, nil
	}

	stats := &Stats{}

	algo := hashing.SHA256
	digestColumn := "sha256"
	if opts.UseBLAKE3 {
		algo = hashing.BLAKE3
		digestColumn = "blake3"
	}
	if opts.MirrorToSHA256 {
		// Mirroring writes the BLAKE3 digest into sha256 as well, so
		// grouping by sha256 still finds BLAKE3-confirmed duplicates.
		digestColumn = "sha256"
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = 8
	}
	if opts.NetworkFriendly && workers > networkFriendlyCeil {
		workers = networkFriendlyCeil
	}

	sampleBytes := opts.SampleBytes
	if sampleBytes <= 0 {
		sampleBytes = 262144
	}

	if opts.Progressive {
		if err := runProgressive(store, opts, deps, stats, sampleBytes, workers, digestColumn); err != nil {
			return stats, err
		}
	} else if !opts.SkipQuickHash {
		if err := runQuickHash(store, opts, deps, stats, sampleBytes, workers); err != nil {
			return stats, err
		}
	}

	if !opts.SkipSHA256 {
		if err := runFullHash(store, opts, deps, stats, algo, sampleBytes, workers, digestColumn); err != nil {
			return stats, err
		}
	}

	n, err := store.FinalizeDone(digestColumn)
	if err != nil {
		return stats, errs.CatalogIO(err)
	}
	stats.Finalized = n

	groups, err := report.GroupByDigest(store.DB, digestColumn, opts.Filter, opts.ReportLimit)
	if err != nil {
		return stats, errs.CatalogIO(err)
	}
	stats.Groups = groups
	stats.WastedBytes = report.TotalWastedBytes(groups)

	return stats, nil
}

func runQuickHash(store *catalog.Store, opts Options, deps Deps, stats *Stats, sampleBytes int64, workers int) error {
	if err := candidates.BuildQuickHashCandidates(store.DB, quickHashTable, opts.MinFileSize, opts.MinDuplicateCount, opts.Filter); err != nil {
		return errs.CatalogIO(err)
	}
	defer candidates.DropTable(store.DB, quickHashTable)

	limiter := deps.Limiter
	cfg := stageexec.Config[fileRow, string]{
		DB: store.DB, Table: quickHashTable, PageSize: quickHashPageSize, Workers: workers,
		BatchSize: catalog.BatchSize, Cancel: deps.Cancel, Logger: deps.Logger, Progress: deps.Progress,
		StageName: "quick-hash",
		PageRows:  pageFileRows,
		Process: func(r fileRow) stageexec.Outcome[string] {
			digest, err := hashing.QuickHash(r.PathAbs, sampleBytes, limiter)
			if err != nil {
				return classify[string](err)
			}
			return stageexec.OK(digest)
		},
		Sink: quickHashSink{store: store},
	}

	res, err := stageexec.Run(cfg)
	if err != nil {
		return errs.CatalogIO(err)
	}
	stats.QuickHashed += res.OK
	stats.Missing += res.Missing
	stats.Errored += res.Errored
	return nil
}

func runProgressive(store *catalog.Store, opts Options, deps Deps, stats *Stats, sampleBytes int64, workers int, digestColumn string) error {
	if err := candidates.BuildProgressiveCandidates(store.DB, headSampleTable, opts.MinFileSize, opts.MinDuplicateCount, digestColumn, opts.Filter); err != nil {
		return errs.CatalogIO(err)
	}
	defer candidates.DropTable(store.DB, headSampleTable)

	limiter := deps.Limiter
	headCfg := stageexec.Config[fileRow, string]{
		DB: store.DB, Table: headSampleTable, PageSize: quickHashPageSize, Workers: workers,
		BatchSize: catalog.BatchSize, Cancel: deps.Cancel, Logger: deps.Logger, Progress: deps.Progress,
		StageName: "head-sample",
		PageRows:  pageFileRows,
		Process: func(r fileRow) stageexec.Outcome[string] {
			digest, err := hashing.SampleHead(r.PathAbs, sampleBytes, limiter)
			if err != nil {
				return classify[string](err)
			}
			return stageexec.OK(digest)
		},
		Sink: headSampleSink{store: store},
	}
	headStats, err := stageexec.Run(headCfg)
	if err != nil {
		return errs.CatalogIO(err)
	}
	stats.HeadSampled += headStats.OK
	stats.Missing += headStats.Missing
	stats.Errored += headStats.Errored

	if err := candidates.BuildH1Collisions(store.DB, tailSampleTable); err != nil {
		return errs.CatalogIO(err)
	}
	defer candidates.DropTable(store.DB, tailSampleTable)

	tailCfg := stageexec.Config[fileRow, string]{
		DB: store.DB, Table: tailSampleTable, PageSize: quickHashPageSize, Workers: workers,
		BatchSize: catalog.BatchSize, Cancel: deps.Cancel, Logger: deps.Logger, Progress: deps.Progress,
		StageName: "tail-sample",
		PageRows:  pageFileRows,
		Process: func(r fileRow) stageexec.Outcome[string] {
			digest, err := hashing.SampleTail(r.PathAbs, sampleBytes, r.SizeBytes, limiter)
			if err != nil {
				return classify[string](err)
			}
			return stageexec.OK(digest)
		},
		Sink: tailSampleSink{store: store},
	}
	tailStats, err := stageexec.Run(tailCfg)
	if err != nil {
		return errs.CatalogIO(err)
	}
	stats.TailSampled += tailStats.OK
	stats.Missing += tailStats.Missing
	stats.Errored += tailStats.Errored
	return nil
}

func runFullHash(store *catalog.Store, opts Options, deps Deps, stats *Stats, algo hashing.Algorithm, sampleBytes int64, workers int, digestColumn string) error {
	var err error
	if opts.Progressive {
		err = candidates.BuildFullHashCandidatesProgressiveCentric(store.DB, fullHashTable, digestColumn, opts.Filter)
	} else {
		err = candidates.BuildFullHashCandidatesQuickCentric(store.DB, fullHashTable, opts.MinDuplicateCount, opts.NetworkFriendly, opts.SmallFileThreshold, digestColumn, opts.Filter)
	}
	if err != nil {
		return errs.CatalogIO(err)
	}
	defer candidates.DropTable(store.DB, fullHashTable)

	limiter := deps.Limiter
	smallFileThreshold := opts.SmallFileThreshold

	cfg := stageexec.Config[fileRow, fullDigest]{
		DB: store.DB, Table: fullHashTable, PageSize: fullHashPageSize, Workers: workers,
		BatchSize: catalog.BatchSize, Cancel: deps.Cancel, Logger: deps.Logger, Progress: deps.Progress,
		StageName: "full-hash",
		PageRows:  pageFileRows,
		Process: func(r fileRow) stageexec.Outcome[fullDigest] {
			if r.SizeBytes < smallFileThreshold {
				qh, full, _, err := hashing.CombinedSmallFileHash(r.PathAbs, sampleBytes, algo, limiter)
				if err != nil {
					return classify[fullDigest](err)
				}
				return stageexec.OK(fullDigest{Full: full, QuickHash: qh})
			}
			full, _, err := hashing.FullHash(r.PathAbs, algo, limiter)
			if err != nil {
				return classify[fullDigest](err)
			}
			return stageexec.OK(fullDigest{Full: full})
		},
		Sink: fullHashSink{store: store, blake3: algo == hashing.BLAKE3, mirror: opts.MirrorToSHA256},
	}

	res, err := stageexec.Run(cfg)
	if err != nil {
		return errs.CatalogIO(err)
	}
	stats.FullHashed += res.OK
	stats.Missing += res.Missing
	stats.Errored += res.Errored
	return nil
}
