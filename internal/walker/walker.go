// Package walker populates the catalog from the filesystem. Per the
// specification's own framing, this is a straightforward recursive
// traversal — not a concurrency showpiece — recording path, size,
// times, and extension for every regular file under a root. All of
// the engine's parallelism lives in the stage executor, not here.
package walker

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bpopineau/corpuscat/internal/catalog"
	"github.com/bpopineau/corpuscat/internal/errs"
)

// Stats summarizes one walk invocation.
type Stats struct {
	FilesSeen    int64
	FilesSkipped int64
}

// Walk recursively traverses root, upserting every regular file that
// passes includeExt/excludePaths into the catalog under a fresh scan
// run. Symbolic links are never followed, matching the walker's own
// behavior that the rest of the engine takes as given.
func Walk(store *catalog.Store, root string, includeExt, excludePaths []string) (Stats, error) {
	var stats Stats

	host, _ := os.Hostname()
	scanID, err := store.StartScan(root, host, currentUser())
	if err != nil {
		return stats, errs.CatalogIO(err)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			stats.FilesSkipped++
			return nil
		}
		if isExcluded(path, excludePaths) {
			stats.FilesSkipped++
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if len(includeExt) > 0 && !containsExt(includeExt, ext) {
			stats.FilesSkipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			stats.FilesSkipped++
			return nil
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}

		mtime := info.ModTime().UTC().Format(time.RFC3339)
		// ctime has no portable equivalent via io/fs; mtime stands in.
		ctime := mtime

		if err := store.UpsertFile(scanID, absPath, filepath.Dir(absPath), d.Name(), ext, info.Size(), mtime, ctime); err != nil {
			return errs.CatalogIO(err)
		}
		stats.FilesSeen++
		return nil
	})
	if walkErr != nil {
		return stats, walkErr
	}
	return stats, nil
}

func isExcluded(path string, excludePaths []string) bool {
	for _, p := range excludePaths {
		if p != "" && strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}
