//go:build !linux

package janitor

import (
	"os"
	"time"
)

// accessTime falls back to modification time on platforms where this
// codebase doesn't special-case atime extraction (the storage janitor
// is expected to run on the Linux deployment target described in the
// VA-API section of this service's configuration).
func accessTime(info os.FileInfo, _ string) time.Time {
	return info.ModTime()
}
