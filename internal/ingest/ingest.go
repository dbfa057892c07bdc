// Package ingest defines the shared contract the four ingest drivers
// (upload, remote, torrent, extractor) implement: stage(job_id, request)
// -> staged_path. Each driver owns producing a single local file under
// the incoming staging root and reports progress back to the job
// registry as it goes.
package ingest

import (
	"context"

	"github.com/gwlsn/vrsd/internal/proc/progress"
)

// Request carries whatever a driver needs to stage one file. Not every
// field applies to every driver: URL is used by remote/torrent/extractor,
// UploadReader/ContentLength only by the multipart driver.
type Request struct {
	URL           string
	UploadReader  ReadCloser
	ContentLength int64
}

// ReadCloser is the minimal surface the upload driver needs from an
// HTTP request body; kept as an interface so callers can pass
// *multipart.Part or any io.ReadCloser without this package importing
// net/http.
type ReadCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

// ProgressFunc receives driver progress as the fetch stage runs.
type ProgressFunc func(progress.Update)

// Driver stages one Request into a local file under dir and reports
// progress through onProgress as it runs. It returns the absolute path
// to the staged file.
type Driver interface {
	Stage(ctx context.Context, dir string, req Request, onProgress ProgressFunc) (stagedPath string, err error)
}
