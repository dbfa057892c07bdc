//go:build windows

package proc

import "os"

// terminateSignal on Windows falls back to Interrupt; os.Process.Signal
// only supports os.Kill and os.Interrupt on this platform.
var terminateSignal = os.Interrupt
