//go:build windows

package janitor

import "golang.org/x/sys/windows"

// statfs queries free and total bytes via GetDiskFreeSpaceEx, Windows'
// equivalent of the unix statfs syscall the rest of this package uses.
func statfs(path string) (free, total uint64, err error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, err
	}
	var freeAvail, totalBytes, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeAvail, &totalBytes, &totalFree); err != nil {
		return 0, 0, err
	}
	return freeAvail, totalBytes, nil
}
