// File: pool/slab.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Slab: one backing allocation per size class, allocated at pool init and
// released only at teardown. Platform mappers live in slab_<os>.go.

package pool

import "log/slog"

type slab struct {
	mem    []byte
	mapped bool
}

// newSlab returns size bytes of backing memory, preferring an anonymous
// mapping when useMmap is set and falling back to the Go heap.
func newSlab(size int, useMmap bool, log *slog.Logger) slab {
	if useMmap {
		mem, err := mapSlab(size)
		if err == nil {
			return slab{mem: mem, mapped: true}
		}
		log.Debug("slab mapping unavailable, using heap", slog.Int("bytes", size), slog.Any("err", err))
	}
	return slab{mem: make([]byte, size)}
}

func (s *slab) release() error {
	mem := s.mem
	s.mem = nil
	if !s.mapped || mem == nil {
		return nil
	}
	return unmapSlab(mem)
}
