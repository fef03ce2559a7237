package dedupe

import (
	"github.com/bpopineau/corpuscat/internal/cancel"
	"github.com/bpopineau/corpuscat/internal/candidates"
	"github.com/bpopineau/corpuscat/internal/logging"
	"github.com/bpopineau/corpuscat/internal/ratelimit"
	"github.com/bpopineau/corpuscat/internal/report"
)

// Options configures one detect_duplicates invocation. Field names
// mirror the dedupe subcommand's flags directly.
type Options struct {
	NetworkFriendly bool
	Progressive     bool
	UseBLAKE3       bool
	MirrorToSHA256  bool
	MetadataOnly    bool
	SkipQuickHash   bool
	SkipSHA256      bool

	SampleBytes        int64
	MinFileSize        int64
	MinDuplicateCount  int
	SmallFileThreshold int64
	MaxWorkers         int

	Filter      candidates.PathFilter
	ReportLimit int
}

// Deps carries the shared, process-wide collaborators every stage in
// a pipeline run needs: the cancellation flag, logger, rate limiter,
// and whether a progress bar should render at all.
type Deps struct {
	Cancel   *cancel.Flag
	Logger   *logging.Logger
	Limiter  *ratelimit.Limiter
	Progress bool
}

// Stats aggregates one pipeline run's outcome across every stage it
// executed, plus the confirmed (or metadata-only) duplicate groups.
type Stats struct {
	QuickHashed int64
	HeadSampled int64
	TailSampled int64
	FullHashed  int64
	Missing     int64
	Errored     int64
	Finalized   int64

	Groups      []report.Group
	WastedBytes int64
}
