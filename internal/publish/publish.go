// Package publish moves a finished mezzanine from its temp transcode
// path into the storage root, atomically, per job id: rename first when
// source and target share a filesystem, copy-then-rename-then-unlink
// otherwise.
package publish

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gwlsn/vrsd/internal/logger"
)

// Ext is the mezzanine container's file extension, matching
// internal/ffmpeg's "-f matroska" output format.
const Ext = ".mkv"

// Publish promotes tempPath (the finished mezzanine, produced by the
// transcode planner under some scratch directory) into
// <storageRoot>/<id>/download.mkv. It prefers os.Rename, which is
// atomic when tempPath and the target share a filesystem; if that
// fails with a cross-device error it falls back to copy-into-a-sibling-
// temp-file-then-rename, so the published path is still never observed
// in a partially-written state.
//
// On any failure the partially-written target, if any, is removed and
// tempPath is left in place for the caller to clean up or retry.
func Publish(tempPath, storageRoot, id string) (string, error) {
	jobDir := filepath.Join(storageRoot, id)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return "", fmt.Errorf("publish: create job dir: %w", err)
	}

	finalPath := filepath.Join(jobDir, "download"+Ext)

	if err := os.Rename(tempPath, finalPath); err == nil {
		logger.Info("published mezzanine", "job_id", id, "path", finalPath)
		return finalPath, nil
	} else if !isCrossDevice(err) {
		return "", fmt.Errorf("publish: rename: %w", err)
	}

	// Cross-filesystem: copy into a sibling temp file inside the job
	// directory (same filesystem as the target), rename that into place,
	// then remove the original staged temp file.
	inner := filepath.Join(jobDir, "download"+Ext+".publishing")
	if err := copyFile(tempPath, inner); err != nil {
		os.Remove(inner)
		return "", fmt.Errorf("publish: copy: %w", err)
	}
	if err := os.Rename(inner, finalPath); err != nil {
		os.Remove(inner)
		return "", fmt.Errorf("publish: rename copied file: %w", err)
	}
	os.Remove(tempPath)

	logger.Info("published mezzanine (cross-device copy)", "job_id", id, "path", finalPath)
	return finalPath, nil
}

// Unpublish removes a job's published directory, used to clean up a
// partial publication after a mid-publish failure. Errors are returned
// rather than swallowed so the caller can decide whether to log or
// surface an IOError.
func Unpublish(storageRoot, id string) error {
	return os.RemoveAll(filepath.Join(storageRoot, id))
}

// copyFile copies src to dst, creating dst if needed. Works across
// filesystems unlike os.Rename.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}
	return dstFile.Close()
}
