//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

// File: pool/slab_other.go
// Author: momentics <momentics@gmail.com>
//
// Platforms without a mapper use heap slabs.

package pool

import "errors"

var errNoMapper = errors.New("pool: no slab mapper on this platform")

func mapSlab(int) ([]byte, error) { return nil, errNoMapper }

func unmapSlab([]byte) error { return nil }
