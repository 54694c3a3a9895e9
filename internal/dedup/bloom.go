// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package dedup

// bloom is a bit array sized to a power of two, indexed by the low bits of
// a content hash. It is monotonic under inserts within one directory
// instance: Set never clears a bit, so a bit that reads as set is either a
// true positive or a leftover from an entry that has since been released
// (§4.D "Bloom filter staleness"). Rebuilding (clearing stale bits) only
// happens when adjust() allocates a fresh instance.
type bloom struct {
	bits  []uint64
	nbits int
	mask  uint64
}

func newBloom(bloomBits int) *bloom {
	n := 1 << uint(bloomBits)
	return &bloom{
		bits:  make([]uint64, (n+63)/64),
		nbits: n,
		mask:  uint64(n - 1),
	}
}

func (b *bloom) pos(hash uint64) uint64 { return hash & b.mask }

func (b *bloom) set(hash uint64) {
	p := b.pos(hash)
	b.bits[p/64] |= 1 << (p % 64)
}

func (b *bloom) test(hash uint64) bool {
	p := b.pos(hash)
	return b.bits[p/64]&(1<<(p%64)) != 0
}
