//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation on sched_setaffinity(2); tid 0 targets the calling thread.

package affinity

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

var maxCPUID = int(unsafe.Sizeof(unix.CPUSet{})) * 8

// saved holds the pre-pin mask per thread id.
var saved sync.Map // int -> unix.CPUSet

func setAffinityPlatform(cpuID int) error {
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity cpu %d: %w", cpuID, err)
	}
	// Nested pins keep the outermost mask.
	saved.LoadOrStore(unix.Gettid(), prev)
	return nil
}

func restoreAffinityPlatform() error {
	v, ok := saved.LoadAndDelete(unix.Gettid())
	if !ok {
		return errors.New("affinity: thread was not pinned")
	}
	prev := v.(unix.CPUSet)
	if err := unix.SchedSetaffinity(0, &prev); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity restore: %w", err)
	}
	return nil
}

func allowedCPUsPlatform() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	var cpus []int
	for i := 0; i < maxCPUID; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
