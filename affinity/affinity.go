// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, affinity_other.go).

package affinity

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupported is returned where the platform offers no thread affinity call.
var ErrUnsupported = errors.New("affinity: not supported on this platform")

// SetAffinity locks the calling goroutine to its OS thread and binds that
// thread to logical CPU cpuID. The thread's previous mask is remembered and
// restored by Unpin. The goroutine stays locked until Unpin.
func SetAffinity(cpuID int) error {
	if cpuID < 0 || cpuID >= maxCPUID {
		return fmt.Errorf("affinity: cpu %d out of range [0,%d)", cpuID, maxCPUID)
	}
	runtime.LockOSThread()
	if err := setAffinityPlatform(cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Unpin restores the mask the thread had before SetAffinity and unlocks
// the goroutine.
func Unpin() error {
	defer runtime.UnlockOSThread()
	return restoreAffinityPlatform()
}

// AllowedCPUs reports the CPU ids the calling thread may run on. Ids are
// not necessarily contiguous or below runtime.NumCPU.
func AllowedCPUs() ([]int, error) {
	return allowedCPUsPlatform()
}
