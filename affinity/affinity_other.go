//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

const maxCPUID = 1 << 16

func setAffinityPlatform(int) error { return ErrUnsupported }

func restoreAffinityPlatform() error { return nil }

func allowedCPUsPlatform() ([]int, error) { return nil, ErrUnsupported }
