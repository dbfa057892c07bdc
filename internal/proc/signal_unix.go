//go:build !windows

package proc

import "syscall"

// terminateSignal is sent first, giving the child a chance to flush and
// exit cleanly before the supervisor escalates to SIGKILL.
var terminateSignal = syscall.SIGTERM
