//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// File: pool/slab_unix.go
// Author: momentics <momentics@gmail.com>
//
// Anonymous private mappings for slab memory.

package pool

import "golang.org/x/sys/unix"

func mapSlab(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmapSlab(mem []byte) error {
	return unix.Munmap(mem)
}
