// Package janitor runs the storage janitor: a fixed-interval background
// task that checks the storage root's free space and, under pressure,
// prunes the least-recently-accessed rendition caches belonging to
// terminal jobs. Published mezzanine files are never pruned.
package janitor

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gwlsn/vrsd/internal/humanize"
	"github.com/gwlsn/vrsd/internal/jobs"
	"github.com/gwlsn/vrsd/internal/logger"
)

// Config parameterizes one Janitor.
type Config struct {
	StorageRoot  string
	TempRoots    []string // rendition cache roots to prune from, e.g. <temp>/hls, <temp>/dash
	Interval     time.Duration
	MinFreeBytes int64
	MinFreeRatio float64
	BatchSize    int
}

// Janitor periodically checks free space on the storage root's
// filesystem and prunes rendition caches under pressure.
type Janitor struct {
	cfg      Config
	registry *jobs.Registry
}

// New returns a Janitor that consults registry to decide which
// candidate job ids are safe to prune (only complete or failed jobs).
func New(cfg Config, registry *jobs.Registry) *Janitor {
	return &Janitor{cfg: cfg, registry: registry}
}

// Run blocks, ticking every cfg.Interval until ctx is cancelled. Each
// tick is independent; an error pruning one candidate never aborts the
// pass or stops future ticks.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

// tick runs one free-space check and, if under pressure, one bounded
// pruning pass.
func (j *Janitor) tick(ctx context.Context) {
	free, total, err := statfs(j.cfg.StorageRoot)
	if err != nil {
		logger.Warn("janitor: statfs failed", "error", err)
		return
	}

	underPressure := free < uint64(j.cfg.MinFreeBytes)
	if total > 0 && float64(free)/float64(total) < j.cfg.MinFreeRatio {
		underPressure = true
	}
	if !underPressure {
		return
	}

	logger.Info("janitor: pruning under disk pressure", "free", humanize.Bytes(int64(free)), "total", humanize.Bytes(int64(total)))

	candidates := j.candidates()
	if len(candidates) > j.cfg.BatchSize {
		candidates = candidates[:j.cfg.BatchSize]
	}
	if len(candidates) == 0 {
		logger.Info("janitor: no eligible rendition caches to prune")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			if err := os.RemoveAll(c.path); err != nil {
				logger.Warn("janitor: prune failed", "path", c.path, "error", err)
				return nil // one candidate's failure never aborts the pass
			}
			logger.Info("janitor: pruned rendition cache", "path", c.path, "last_access", c.lastAccess)
			return gctx.Err()
		})
	}
	_ = g.Wait()
}

// candidate is one rendition-cache directory eligible for pruning.
type candidate struct {
	path       string
	lastAccess time.Time
}

// candidates scans every configured temp root for per-job rendition
// directories belonging to a terminal job, ordered least-recently-
// accessed first. Only TempRoots are scanned; mezzanine files under
// StorageRoot are never candidates.
func (j *Janitor) candidates() []candidate {
	var out []candidate

	for _, root := range j.cfg.TempRoots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			id := e.Name()
			snap, ok := j.registry.Get(id)
			if !ok || !snap.Stage.Terminal() {
				continue
			}

			path := filepath.Join(root, id)
			info, err := e.Info()
			if err != nil {
				continue
			}
			out = append(out, candidate{path: path, lastAccess: accessTime(info, path)})
		}
	}

	sort.Slice(out, func(i, k int) bool { return out[i].lastAccess.Before(out[k].lastAccess) })
	return out
}
