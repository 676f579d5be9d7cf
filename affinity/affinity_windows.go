//go:build windows
// +build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows implementation on SetThreadAffinityMask, limited to the first
// processor group.

package affinity

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

const maxCPUID = 64

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask = modkernel32.NewProc("SetThreadAffinityMask")
)

// saved holds the pre-pin mask per thread id.
var saved sync.Map // uint32 -> uintptr

func setThreadMask(mask uintptr) (uintptr, error) {
	old, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if old == 0 {
		return 0, fmt.Errorf("affinity: SetThreadAffinityMask: %w", err)
	}
	return old, nil
}

func setAffinityPlatform(cpuID int) error {
	old, err := setThreadMask(uintptr(1) << uint(cpuID))
	if err != nil {
		return err
	}
	saved.LoadOrStore(windows.GetCurrentThreadId(), old)
	return nil
}

func restoreAffinityPlatform() error {
	v, ok := saved.LoadAndDelete(windows.GetCurrentThreadId())
	if !ok {
		return errors.New("affinity: thread was not pinned")
	}
	_, err := setThreadMask(v.(uintptr))
	return err
}

func allowedCPUsPlatform() ([]int, error) {
	return nil, ErrUnsupported
}
