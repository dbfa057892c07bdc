// Package extractor implements the site-specific extractor ingest
// driver (yt-dlp), targeting a single output template and parsing the
// percentage markers from its "--newline" progress output.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gwlsn/vrsd/internal/ingest"
	"github.com/gwlsn/vrsd/internal/proc"
	"github.com/gwlsn/vrsd/internal/proc/progress"
)

// Driver stages a single video from a supported site via yt-dlp.
type Driver struct {
	BinPath    string
	supervisor *proc.Supervisor
}

// New returns an extractor Driver invoking the yt-dlp binary at binPath.
func New(binPath string) *Driver {
	return &Driver{BinPath: binPath, supervisor: proc.New()}
}

// Stage extracts req.URL into dir using yt-dlp's output template, so the
// result is named "source" regardless of the source's own filename; the
// extension is still the source's, and the largest file in dir is
// returned as the staged path.
func (d *Driver) Stage(ctx context.Context, dir string, req ingest.Request, onProgress ingest.ProgressFunc) (string, error) {
	if req.URL == "" {
		return "", fmt.Errorf("extractor: no URL provided")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("extractor: staging dir: %w", err)
	}

	outputTemplate := filepath.Join(dir, "source.%(ext)s")
	parser := progress.DownloaderPercentParser{}

	spec := proc.Spec{
		Binary: d.BinPath,
		Args: []string{
			"--no-playlist",
			"--newline",
			"--output", outputTemplate,
			req.URL,
		},
		StdoutSink: proc.LineSinkFunc(func(line string) {
			if upd, ok := parser.Parse(line); ok && onProgress != nil {
				onProgress(upd)
			}
		}),
	}

	outcome := d.supervisor.Run(ctx, spec)
	if outcome.Status != proc.StatusOK {
		if outcome.Err != nil {
			return "", fmt.Errorf("extractor: fetch failed: %w (%s)", outcome.Err, proc.JoinTail(outcome.StderrTail))
		}
		return "", fmt.Errorf("extractor: fetch failed: %s", proc.JoinTail(outcome.StderrTail))
	}

	staged, err := largestFile(dir)
	if err != nil {
		return "", fmt.Errorf("extractor: %w", err)
	}
	return staged, nil
}

// largestFile returns the largest file in dir. yt-dlp's output template
// targets a single media file, but playlists-of-one, muxed side tracks,
// or thumbnail/info-json sidecars (when those options are set) can still
// leave more than one entry in the staging directory; the largest file
// is always the media, matching the torrent driver's selection rule.
func largestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read staging dir: %w", err)
	}

	var best string
	var bestSize int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", fmt.Errorf("stat staged file: %w", err)
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, e.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no output file produced")
	}
	return best, nil
}
