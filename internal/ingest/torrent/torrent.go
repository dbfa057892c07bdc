// Package torrent implements the torrent/magnet ingest driver, via the
// same aria2c binary as the remote driver with its BitTorrent options
// enabled. Every job gets its own session subdirectory, cleaned up once
// the largest completed file is moved out — torrents commonly carry
// NFO/sample files alongside the main video.
package torrent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gwlsn/vrsd/internal/ingest"
	"github.com/gwlsn/vrsd/internal/proc"
	"github.com/gwlsn/vrsd/internal/proc/progress"
)

// Driver stages a torrent/magnet link via aria2c's BitTorrent support.
type Driver struct {
	AriaPath   string
	supervisor *proc.Supervisor
}

// New returns a torrent Driver invoking the aria2c binary at ariaPath.
func New(ariaPath string) *Driver {
	return &Driver{AriaPath: ariaPath, supervisor: proc.New()}
}

// Stage downloads req.URL (a magnet link or .torrent URL) into an
// isolated subdirectory of dir, then returns the largest file in the
// completed session.
func (d *Driver) Stage(ctx context.Context, dir string, req ingest.Request, onProgress ingest.ProgressFunc) (string, error) {
	if req.URL == "" {
		return "", fmt.Errorf("torrent: no magnet/URL provided")
	}

	sessionDir := filepath.Join(dir, "torrent-session")
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return "", fmt.Errorf("torrent: staging dir: %w", err)
	}
	defer os.RemoveAll(sessionDir)

	parser := progress.AriaStyleParser{}

	spec := proc.Spec{
		Binary: d.AriaPath,
		Args: []string{
			"--dir", sessionDir,
			"--enable-dht=true",
			"--bt-enable-lpd=true",
			"--bt-seed-unverified=true",
			"--seed-time=0",
			"--summary-interval=1",
			req.URL,
		},
		StdoutSink: proc.LineSinkFunc(func(line string) {
			if onProgress == nil {
				return
			}
			if upd, ok := parser.Parse(line); ok {
				onProgress(upd)
			}
		}),
	}

	outcome := d.supervisor.Run(ctx, spec)
	if outcome.Status != proc.StatusOK {
		if outcome.Err != nil {
			return "", fmt.Errorf("torrent: fetch failed: %w (%s)", outcome.Err, proc.JoinTail(outcome.StderrTail))
		}
		return "", fmt.Errorf("torrent: fetch failed: %s", proc.JoinTail(outcome.StderrTail))
	}

	largest, err := largestFile(sessionDir)
	if err != nil {
		return "", fmt.Errorf("torrent: %w", err)
	}

	staged := filepath.Join(dir, "source"+filepath.Ext(largest))
	if err := os.Rename(largest, staged); err != nil {
		return "", fmt.Errorf("torrent: move completed file: %w", err)
	}

	return staged, nil
}

// largestFile walks dir and returns the path of its largest regular file.
func largestFile(dir string) (string, error) {
	var best string
	var bestSize int64

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Size() > bestSize {
			best = path
			bestSize = info.Size()
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan session directory: %w", err)
	}
	if best == "" {
		return "", fmt.Errorf("no completed file found in torrent session")
	}
	return best, nil
}
