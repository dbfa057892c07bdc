// Package remote implements the remote HTTP(S)/FTP(S) ingest driver,
// fetching via aria2c to leverage its range/resume logic. Each job
// stages into its own subdirectory; progress comes from aria2c's
// bracketed summary lines on stdout.
package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gwlsn/vrsd/internal/ingest"
	"github.com/gwlsn/vrsd/internal/proc"
	"github.com/gwlsn/vrsd/internal/proc/progress"
)

// Driver stages a remote URL via aria2c.
type Driver struct {
	AriaPath   string
	supervisor *proc.Supervisor
}

// New returns a remote Driver invoking the aria2c binary at ariaPath.
func New(ariaPath string) *Driver {
	return &Driver{AriaPath: ariaPath, supervisor: proc.New()}
}

// Stage fetches req.URL into dir using aria2c, reporting progress parsed
// from its line-oriented console output.
func (d *Driver) Stage(ctx context.Context, dir string, req ingest.Request, onProgress ingest.ProgressFunc) (string, error) {
	if req.URL == "" {
		return "", fmt.Errorf("remote: no URL provided")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("remote: staging dir: %w", err)
	}

	const outName = "source"
	parser := progress.AriaStyleParser{}
	altParser := progress.DownloaderPercentParser{}

	spec := proc.Spec{
		Binary: d.AriaPath,
		Args: []string{
			"--dir", dir,
			"--out", outName,
			"--allow-overwrite=true",
			"--max-connection-per-server=4",
			"--summary-interval=1",
			req.URL,
		},
		StdoutSink: proc.LineSinkFunc(func(line string) {
			if onProgress == nil {
				return
			}
			if upd, ok := parser.Parse(line); ok {
				onProgress(upd)
				return
			}
			if upd, ok := altParser.Parse(line); ok {
				onProgress(upd)
			}
		}),
	}

	outcome := d.supervisor.Run(ctx, spec)
	staged := filepath.Join(dir, outName)

	if outcome.Status != proc.StatusOK {
		os.Remove(staged)
		if outcome.Err != nil {
			return "", fmt.Errorf("remote: fetch failed: %w (%s)", outcome.Err, proc.JoinTail(outcome.StderrTail))
		}
		return "", fmt.Errorf("remote: fetch failed: %s", proc.JoinTail(outcome.StderrTail))
	}

	info, err := os.Stat(staged)
	if err != nil || info.Size() == 0 {
		return "", fmt.Errorf("remote: empty or missing output file")
	}

	return staged, nil
}
