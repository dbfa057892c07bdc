// Package humanize formats byte counts and durations for log lines and
// the storage janitor's diagnostics.
package humanize

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Bytes renders a byte count as a short human string, e.g. "1.2 GB".
func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}

// Duration renders a duration as "1h2m3s"-style text, collapsing to
// whole seconds for anything sub-second.
func Duration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Second).String()
}
