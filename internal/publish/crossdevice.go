package publish

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// isCrossDevice reports whether err is the os.Rename failure mode that
// happens when src and dst live on different filesystems (EXDEV),
// which selects the copy-then-rename fallback rather than a hard error.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, unix.EXDEV)
}
