// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// Package bitset provides the alignment helper and fixed-capacity bitset
// that the allocator framework (internal/alloc) and the dedup directory
// (internal/dedup) use to manage small numeric identifier spaces: allocator
// tags, dedup bloom slots, bucket occupancy. Grounded on the arena/tag
// bookkeeping style of the teacher's internal/libyaml serializer.go and
// load.go, which track small index spaces with plain slices and manual
// bit tricks rather than a library bitset (none of the pack's go.mod files
// bring one in) — see DESIGN.md for why this stays on bits/math.
package bitset

import "math/bits"

// CacheLineSize is the assumed CPU cache line size. No allocator header
// in this module is padded to it.
const CacheLineSize = 64

// AlignUp rounds x up to the next multiple of a, which must be a power of
// two. AlignUp panics if a is not a power of two.
func AlignUp(x, a uintptr) uintptr {
	if a == 0 || a&(a-1) != 0 {
		panic("bitset: alignment must be a power of two")
	}
	return (x + a - 1) &^ (a - 1)
}

// IsPowerOfTwo reports whether x is a power of two (x > 0).
func IsPowerOfTwo(x uint64) bool {
	return x > 0 && x&(x-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= x (x > 0).
func NextPowerOfTwo(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	return 1 << bits.Len64(x-1)
}

// Set is a fixed-capacity bitset over N bits, stored as 64-bit words. The
// zero value is not ready for use; call New.
type Set struct {
	words []uint64
	n     int
}

// New returns a Set with capacity for n bits, all initially free.
func New(n int) *Set {
	return &Set{words: make([]uint64, (n+63)/64), n: n}
}

// Len returns the bitset's bit capacity.
func (s *Set) Len() int { return s.n }

// Alloc returns the lowest free index and marks it used, or -1 if the set
// is full.
func (s *Set) Alloc() int {
	for wi, w := range s.words {
		if w == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^w)
		idx := wi*64 + bit
		if idx >= s.n {
			return -1
		}
		s.words[wi] |= 1 << uint(bit)
		return idx
	}
	return -1
}

// Free marks idx as unused. It is a no-op if idx is out of range.
func (s *Set) Free(idx int) {
	if idx < 0 || idx >= s.n {
		return
	}
	s.words[idx/64] &^= 1 << uint(idx%64)
}

// MarkUsed marks idx as allocated directly, unlike Alloc which always
// picks the lowest free index itself. Callers that compute a specific
// index externally (a dedup directory slotting entries by hash) need
// this instead. It is a no-op if idx is out of range.
func (s *Set) MarkUsed(idx int) {
	if idx < 0 || idx >= s.n {
		return
	}
	s.words[idx/64] |= 1 << uint(idx%64)
}

// IsUsed reports whether idx is currently allocated.
func (s *Set) IsUsed(idx int) bool {
	if idx < 0 || idx >= s.n {
		return false
	}
	return s.words[idx/64]&(1<<uint(idx%64)) != 0
}

// IsFree reports the negation of IsUsed.
func (s *Set) IsFree(idx int) bool { return !s.IsUsed(idx) }

// CountUsed returns the number of allocated bits.
func (s *Set) CountUsed() int {
	total := 0
	for _, w := range s.words {
		total += bits.OnesCount64(w)
	}
	return total
}

// Iterate calls fn for every used index in ascending order, stopping early
// if fn returns false.
func (s *Set) Iterate(fn func(idx int) bool) {
	for wi, w := range s.words {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			idx := wi*64 + bit
			if idx >= s.n {
				return
			}
			if !fn(idx) {
				return
			}
			w &^= 1 << uint(bit)
		}
	}
}

// FFS ("find first set") returns the index of the lowest set bit in w, or
// -1 if w is zero. Exposed as a free function because the dedup directory
// applies it directly to raw words (bloom filter, in-use masks) without
// going through a Set.
func FFS(w uint64) int {
	if w == 0 {
		return -1
	}
	return bits.TrailingZeros64(w)
}
