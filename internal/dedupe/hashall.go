package dedupe

import (
	"github.com/bpopineau/corpuscat/internal/candidates"
	"github.com/bpopineau/corpuscat/internal/catalog"
	"github.com/bpopineau/corpuscat/internal/errs"
	"github.com/bpopineau/corpuscat/internal/hashing"
	"github.com/bpopineau/corpuscat/internal/stageexec"
)

const hashAllPageSize = 5000
const hashAllTable = "dedupe_hashall_candidates"

// HashAllOptions configures a standalone BLAKE3 sweep, independent of
// any duplicate candidacy: every cataloged file gets a digest.
type HashAllOptions struct {
	Force          bool
	MaxWorkers     int
	SampleBytes    int64
	MirrorToSHA256 bool
	Filter         candidates.PathFilter
}

// HashAllStats reports one hash sweep's outcome, mirroring the field
// names the original BLAKE3 sweep command prints.
type HashAllStats struct {
	TotalCandidates int64
	Hashed          int64
	Missing         int64
	Errored         int64
}

// RunHashAll computes BLAKE3 for every candidate row in store,
// independent of the duplicate-detection pipeline.
func RunHashAll(store *catalog.Store, opts HashAllOptions, deps Deps) (*HashAllStats, error) {
	if err := candidates.BuildHashAllCandidates(store.DB, hashAllTable, opts.Force, opts.Filter); err != nil {
		return nil, errs.CatalogIO(err)
	}
	defer candidates.DropTable(store.DB, hashAllTable)

	total, err := candidates.Count(store.DB, hashAllTable)
	if err != nil {
		return nil, errs.CatalogIO(err)
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = 8
	}
	sampleBytes := opts.SampleBytes
	if sampleBytes <= 0 {
		sampleBytes = 262144
	}
	limiter := deps.Limiter

	cfg := stageexec.Config[fileRow, fullDigest]{
		DB: store.DB, Table: hashAllTable, PageSize: hashAllPageSize, Workers: workers,
		BatchSize: catalog.BatchSize, Cancel: deps.Cancel, Logger: deps.Logger, Progress: deps.Progress,
		StageName: "hash-all",
		PageRows:  pageFileRows,
		Process: func(r fileRow) stageexec.Outcome[fullDigest] {
			full, _, err := hashing.FullHash(r.PathAbs, hashing.BLAKE3, limiter)
			if err != nil {
				return classify[fullDigest](err)
			}
			return stageexec.OK(fullDigest{Full: full})
		},
		Sink: fullHashSink{store: store, blake3: true, mirror: opts.MirrorToSHA256},
	}

	res, err := stageexec.Run(cfg)
	if err != nil {
		return nil, errs.CatalogIO(err)
	}

	return &HashAllStats{
		TotalCandidates: total,
		Hashed:          res.OK,
		Missing:         res.Missing,
		Errored:         res.Errored,
	}, nil
}
