// Package rendition lazily materializes HLS and DASH packagings of a
// completed job's mezzanine file on first playback request. Generation
// is deduplicated per (job id, format) with singleflight; the tree is
// written to a temp directory and renamed into place so readers never
// observe a partial rendition.
package rendition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/gwlsn/vrsd/internal/logger"
	"github.com/gwlsn/vrsd/internal/proc"
)

// Format identifies which streaming packaging is being requested.
type Format string

const (
	FormatHLS  Format = "hls"
	FormatDASH Format = "dash"
)

// MasterAsset is the name of the top-level manifest/playlist a client
// requests first for each format.
var MasterAsset = map[Format]string{
	FormatHLS:  "master.m3u8",
	FormatDASH: "manifest.mpd",
}

// Generator lazily builds and serves HLS/DASH rendition trees for
// completed jobs, rooted at <tempRoot>/<format>/<id>/.
type Generator struct {
	ffmpegPath string
	tempRoot   string
	supervisor *proc.Supervisor

	flight singleflight.Group
}

// New returns a Generator rooted at tempRoot (the rendition cache base
// holding an "hls" and "dash" subtree), invoking ffmpeg at ffmpegPath.
func New(ffmpegPath, tempRoot string) *Generator {
	return &Generator{
		ffmpegPath: ffmpegPath,
		tempRoot:   tempRoot,
		supervisor: proc.New(),
	}
}

// Dir returns the published rendition directory for (id, format),
// whether or not it has been generated yet.
func (g *Generator) Dir(id string, format Format) string {
	return filepath.Join(g.tempRoot, string(format), id)
}

// Ensure materializes the rendition tree for (id, format) from
// mezzaninePath if it isn't already present, otherwise returns
// immediately. Concurrent callers for the same (id, format) share one
// generation: only the first actually spawns ffmpeg, and all callers
// receive the first call's error (if any).
func (g *Generator) Ensure(ctx context.Context, id string, format Format, mezzaninePath string) error {
	dir := g.Dir(id, format)
	master := filepath.Join(dir, MasterAsset[format])
	if _, err := os.Stat(master); err == nil {
		return nil
	}

	key := id + "/" + string(format)
	_, err, _ := g.flight.Do(key, func() (interface{}, error) {
		// Re-check under the singleflight key: another caller may have
		// finished generating between the Stat above and this point.
		if _, err := os.Stat(master); err == nil {
			return nil, nil
		}
		return nil, g.generate(ctx, id, format, mezzaninePath, dir)
	})
	return err
}

// generate remuxes mezzaninePath into dir via ffmpeg, writing to a
// sibling ".tmp" directory and renaming it into place once ffmpeg
// exits cleanly, so concurrent readers of dir never observe a partial
// rendition tree.
func (g *Generator) generate(ctx context.Context, id string, format Format, mezzaninePath, dir string) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("rendition: create %s root: %w", format, err)
	}

	tmpDir := dir + ".tmp"
	os.RemoveAll(tmpDir)
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return fmt.Errorf("rendition: create staging dir: %w", err)
	}

	var args []string
	switch format {
	case FormatHLS:
		args = hlsArgs(mezzaninePath, tmpDir)
	case FormatDASH:
		args = dashArgs(mezzaninePath, tmpDir)
	default:
		os.RemoveAll(tmpDir)
		return fmt.Errorf("rendition: unknown format %q", format)
	}

	logger.Info("generating rendition", "job_id", id, "format", format)

	spec := proc.Spec{
		Binary: g.ffmpegPath,
		Args:   args,
		StderrSink: proc.LineSinkFunc(func(line string) {
			logger.Debug("ffmpeg remux", "job_id", id, "format", format, "line", line)
		}),
	}

	outcome := g.supervisor.Run(ctx, spec)
	if outcome.Status != proc.StatusOK {
		os.RemoveAll(tmpDir)
		if outcome.Err != nil {
			return fmt.Errorf("rendition: %s generation failed: %w (%s)", format, outcome.Err, proc.JoinTail(outcome.StderrTail))
		}
		return fmt.Errorf("rendition: %s generation failed: %s", format, proc.JoinTail(outcome.StderrTail))
	}

	os.RemoveAll(dir)
	if err := os.Rename(tmpDir, dir); err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("rendition: publish %s tree: %w", format, err)
	}

	return nil
}

// hlsArgs builds an ffmpeg invocation remuxing the AV1/Opus mezzanine
// into fMP4 HLS segments plus a master playlist. The source is already
// in the target codecs, so this is a copy remux, not a re-encode.
func hlsArgs(input, outDir string) []string {
	return []string{
		"-hide_banner", "-y",
		"-i", input,
		"-map", "0:v:0", "-map", "0:a:0?",
		"-c", "copy",
		"-f", "hls",
		"-hls_time", "6",
		"-hls_playlist_type", "vod",
		"-hls_segment_type", "fmp4",
		"-hls_fmp4_init_filename", "init.mp4",
		"-hls_segment_filename", filepath.Join(outDir, "segment_%05d.m4s"),
		"-master_pl_name", "master.m3u8",
		filepath.Join(outDir, "media.m3u8"),
	}
}

// dashArgs builds an ffmpeg invocation remuxing the mezzanine into a
// segmented DASH manifest, the "-f dash" sibling of hlsArgs.
func dashArgs(input, outDir string) []string {
	return []string{
		"-hide_banner", "-y",
		"-i", input,
		"-map", "0:v:0", "-map", "0:a:0?",
		"-c", "copy",
		"-f", "dash",
		"-seg_duration", "6",
		"-use_template", "1",
		"-use_timeline", "1",
		"-init_seg_name", "init-$RepresentationID$.m4s",
		"-media_seg_name", "chunk-$RepresentationID$-$Number%05d$.m4s",
		filepath.Join(outDir, "manifest.mpd"),
	}
}
