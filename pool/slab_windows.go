//go:build windows

// File: pool/slab_windows.go
// Author: momentics <momentics@gmail.com>
//
// VirtualAlloc-backed slab memory.

package pool

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func mapSlab(size int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func unmapSlab(mem []byte) error {
	return windows.VirtualFree(uintptr(unsafe.Pointer(&mem[0])), 0, windows.MEM_RELEASE)
}
