// Package prune implements the keeper-preserving duplicate pruner:
// given confirmed duplicate groups keyed by a cryptographic digest, it
// selects one keeper per group under a policy, and — outside dry-run
// — unlinks the rest and removes their catalog rows in batches.
package prune

import (
	"database/sql"
	"os"
	"sort"
	"strings"

	"github.com/bpopineau/corpuscat/internal/catalog"
	"github.com/bpopineau/corpuscat/internal/report"
)

// KeepPolicy selects which member of a duplicate group survives.
type KeepPolicy int

const (
	KeepOldest KeepPolicy = iota
	KeepNewest
)

// GroupPlan is one group's keeper/loser decision.
type GroupPlan struct {
	Digest string
	Keeper report.Member
	Losers []report.Member
}

// BytesReclaimable is the size recoverable if every loser in the plan
// is removed.
func (p GroupPlan) BytesReclaimable() int64 {
	var n int64
	for _, m := range p.Losers {
		n += m.Size
	}
	return n
}

// Plan builds a keeper/loser decision for every group, filtering first
// to members whose file still exists on disk (falling back to all
// members when none do), per the specification's selection rule.
func Plan(groups []report.Group, policy KeepPolicy) []GroupPlan {
	plans := make([]GroupPlan, 0, len(groups))
	for _, g := range groups {
		members := existingOrAll(g.Members)
		sortMembers(members, policy)
		if len(members) == 0 {
			continue
		}
		plans = append(plans, GroupPlan{
			Digest: g.Key,
			Keeper: members[0],
			Losers: members[1:],
		})
	}
	return plans
}

func existingOrAll(members []report.Member) []report.Member {
	var existing []report.Member
	for _, m := range members {
		if _, err := os.Stat(m.PathAbs); err == nil {
			existing = append(existing, m)
		}
	}
	if len(existing) == 0 {
		return members
	}
	return existing
}

func sortMembers(members []report.Member, policy KeepPolicy) {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.MtimeUTC != b.MtimeUTC {
			if policy == KeepNewest {
				return a.MtimeUTC > b.MtimeUTC
			}
			return a.MtimeUTC < b.MtimeUTC
		}
		al, bl := strings.ToLower(a.PathAbs), strings.ToLower(b.PathAbs)
		if al != bl {
			return al < bl
		}
		return a.FileID < b.FileID
	})
}

// Result aggregates one execute (or dry-run) invocation's outcome.
type Result struct {
	GroupsConsidered          int
	GroupsModified            int
	FilesRemoved              int64
	CatalogRowsRemoved        int64
	BytesReclaimed            int64
	PotentialBytesReclaimable int64
	Errors                    []error
	Plan                      []GroupPlan
}

// Execute removes every loser's file and catalog row across plans.
// When dryRun is true, no filesystem or catalog mutation occurs and
// only the plan and potential bytes reclaimable are populated.
// Per-loser unlink failures are collected in Result.Errors and do not
// abort the run; a catalog row is only deleted once its file has been
// unlinked successfully or was already missing.
func Execute(store *catalog.Store, plans []GroupPlan, dryRun bool) Result {
	res := Result{GroupsConsidered: len(plans), Plan: plans}
	for _, p := range plans {
		res.PotentialBytesReclaimable += p.BytesReclaimable()
	}
	if dryRun {
		return res
	}

	var pendingIDs []int64
	flushDeletes := func() {
		if len(pendingIDs) == 0 {
			return
		}
		err := store.WithTx(func(tx *sql.Tx) error {
			return catalog.DeleteFilesBatch(tx, pendingIDs)
		})
		if err != nil {
			res.Errors = append(res.Errors, err)
		} else {
			res.CatalogRowsRemoved += int64(len(pendingIDs))
		}
		pendingIDs = nil
	}

	for _, p := range plans {
		modified := false
		for _, loser := range p.Losers {
			err := os.Remove(loser.PathAbs)
			if err != nil && !os.IsNotExist(err) {
				res.Errors = append(res.Errors, err)
				continue
			}
			if err == nil {
				res.FilesRemoved++
				res.BytesReclaimed += loser.Size
				modified = true
			}
			pendingIDs = append(pendingIDs, loser.FileID)
			if len(pendingIDs) >= catalog.BatchSize {
				flushDeletes()
			}
		}
		if modified {
			res.GroupsModified++
		}
	}
	flushDeletes()

	return res
}

// ExecuteCatalogOnly removes losers' catalog rows without touching the
// filesystem. It backs `dedupe --metadata-prune`, where group
// membership comes from a metadata-only match rather than a confirmed
// content hash: a catalog row is safe to retire on that evidence, but
// the file on disk is not, since two files agreeing on size, name, and
// extension are not proven to be byte-identical.
func ExecuteCatalogOnly(store *catalog.Store, plans []GroupPlan, dryRun bool) Result {
	res := Result{GroupsConsidered: len(plans), Plan: plans}
	for _, p := range plans {
		res.PotentialBytesReclaimable += p.BytesReclaimable()
	}
	if dryRun {
		return res
	}

	var pendingIDs []int64
	flushDeletes := func() {
		if len(pendingIDs) == 0 {
			return
		}
		err := store.WithTx(func(tx *sql.Tx) error {
			return catalog.DeleteFilesBatch(tx, pendingIDs)
		})
		if err != nil {
			res.Errors = append(res.Errors, err)
		} else {
			res.CatalogRowsRemoved += int64(len(pendingIDs))
		}
		pendingIDs = nil
	}

	for _, p := range plans {
		if len(p.Losers) == 0 {
			continue
		}
		res.GroupsModified++
		res.BytesReclaimed += p.BytesReclaimable()
		for _, loser := range p.Losers {
			pendingIDs = append(pendingIDs, loser.FileID)
			if len(pendingIDs) >= catalog.BatchSize {
				flushDeletes()
			}
		}
	}
	flushDeletes()

	return res
}
