// File: pool/sizeclass.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Size class mapping: request size -> smallest power-of-two class whose
// block holds the request plus the header.

package pool

import (
	"math/bits"

	"github.com/momentics/hioload-mem/api"
)

// levelFor returns ceil(log2(need)) for need >= 1.
func levelFor(need uint) uint {
	top := uint(bits.Len(need)) - 1
	if need&(need-1) != 0 {
		top++
	}
	return top
}

// classFor maps a request of size bytes to a class id.
func classFor(size int, minLevel, maxLevel uint) (int, error) {
	if size < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "pool: negative size").
			WithContext("size", size)
	}
	need := uint(size) + HeaderSize
	if need <= 1<<minLevel {
		return 0, nil
	}
	level := levelFor(need)
	if level > maxLevel {
		return 0, api.NewError(api.ErrCodeOversize, "pool: request exceeds largest size class").
			WithContext("size", size).
			WithContext("max_payload", (1<<maxLevel)-HeaderSize)
	}
	return int(level - minLevel), nil
}
