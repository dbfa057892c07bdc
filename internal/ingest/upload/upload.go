// Package upload implements the multipart ingest driver: it stream-copies
// the uploaded file part to a staging file as the client sends it. The
// copy runs while the request body is still open, so backpressure is the
// writer's file-descriptor speed.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gwlsn/vrsd/internal/ingest"
	"github.com/gwlsn/vrsd/internal/proc/progress"
)

// Driver stages multipart upload bodies.
type Driver struct{}

// New returns an upload Driver.
func New() *Driver {
	return &Driver{}
}

// Stage copies req.UploadReader into a new file under dir, reporting
// fractional progress against req.ContentLength when it is known.
// Progress is indeterminate (never reported) when ContentLength <= 0.
func (d *Driver) Stage(ctx context.Context, dir string, req ingest.Request, onProgress ingest.ProgressFunc) (string, error) {
	if req.UploadReader == nil {
		return "", fmt.Errorf("upload: no file part provided")
	}
	defer req.UploadReader.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("upload: staging dir: %w", err)
	}

	dst := filepath.Join(dir, "source")
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("upload: create staging file: %w", err)
	}
	defer f.Close()

	var written int64
	buf := make([]byte, 256*1024)
	for {
		select {
		case <-ctx.Done():
			os.Remove(dst)
			return "", ctx.Err()
		default:
		}

		n, rerr := req.UploadReader.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				os.Remove(dst)
				return "", fmt.Errorf("upload: write: %w", werr)
			}
			written += int64(n)
			if onProgress != nil && req.ContentLength > 0 {
				frac := float64(written) / float64(req.ContentLength)
				if frac > 1 {
					frac = 1
				}
				onProgress(progress.Update{Fraction: frac, Done: frac >= 1})
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			os.Remove(dst)
			return "", fmt.Errorf("upload: read: %w", rerr)
		}
	}

	if written == 0 {
		os.Remove(dst)
		return "", fmt.Errorf("upload: empty file part")
	}

	if onProgress != nil {
		onProgress(progress.Update{Fraction: 1, Done: true})
	}

	return dst, nil
}
