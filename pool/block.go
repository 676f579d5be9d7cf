// File: pool/block.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Block: fixed-size region carved from a slab, prefixed by a small header.
//
//	+-------+-------+----------+------------------+-----------------
//	| class | state | reserved | generation (LE)  | payload ...
//	+-------+-------+----------+------------------+-----------------
//	0       1       2          4                  8

package pool

import "encoding/binary"

// HeaderSize is the number of bytes preceding the usable payload.
const HeaderSize = 8

const (
	hdrClass = 0
	hdrState = 1
	hdrGen   = 4
)

const (
	stateFree byte = 0xF0
	stateLive byte = 0x1A
)

// Block is a handle to one allocation. It stays valid until freed.
type Block struct {
	buf   []byte // header + payload, len = class block size
	class uint8
	pool  *Pool
}

// Bytes returns the payload. Its length is the usable capacity.
func (b *Block) Bytes() []byte { return b.buf[HeaderSize:] }

// Cap returns the usable capacity in bytes.
func (b *Block) Cap() int { return len(b.buf) - HeaderSize }

// Class returns the size-class id recorded in the header.
func (b *Block) Class() int { return int(b.buf[hdrClass]) }

// Generation returns how many times the block has been handed out.
func (b *Block) Generation() uint32 {
	return binary.LittleEndian.Uint32(b.buf[hdrGen:])
}

// Live reports whether the header marks the block as allocated.
func (b *Block) Live() bool { return b.buf[hdrState] == stateLive }

func (b *Block) init(class uint8) {
	b.buf[hdrClass] = class
	b.buf[hdrState] = stateFree
	b.buf[2], b.buf[3] = 0, 0
	binary.LittleEndian.PutUint32(b.buf[hdrGen:], 0)
}

func (b *Block) markLive() {
	b.buf[hdrState] = stateLive
	binary.LittleEndian.PutUint32(b.buf[hdrGen:], b.Generation()+1)
}

// markFree flips the state tag and reports whether the block was live.
func (b *Block) markFree() bool {
	was := b.buf[hdrState] == stateLive
	b.buf[hdrState] = stateFree
	return was
}
