// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// xxHash64 (https://github.com/Cyan4973/xxHash), hand-rolled because no
// go.mod in the retrieved pack brings in cespare/xxhash or any other
// implementation — see DESIGN.md for the stdlib-use justification this
// rule requires. Implemented against the public algorithm description,
// not transliterated from any pack file.

package dedup

import "encoding/binary"

const (
	prime64_1 = 11400714785074694791
	prime64_2 = 14029467366897019727
	prime64_3 = 1609587929392839161
	prime64_4 = 9650029242287828579
	prime64_5 = 2870177450012600261
)

func rotl64(x uint64, r uint) uint64 {
	return (x << r) | (x >> (64 - r))
}

func round64(acc, input uint64) uint64 {
	acc += input * prime64_2
	acc = rotl64(acc, 31)
	acc *= prime64_1
	return acc
}

func mergeRound64(acc, val uint64) uint64 {
	val = round64(0, val)
	acc ^= val
	acc = acc*prime64_1 + prime64_4
	return acc
}

// xxh64 hashes buf with the given seed, per the reference xxHash64
// algorithm.
func xxh64(buf []byte, seed uint64) uint64 {
	n := len(buf)
	var h64 uint64
	i := 0

	if n >= 32 {
		v1 := seed + prime64_1 + prime64_2
		v2 := seed + prime64_2
		v3 := seed
		v4 := seed - prime64_1
		for ; i+32 <= n; i += 32 {
			v1 = round64(v1, binary.LittleEndian.Uint64(buf[i:]))
			v2 = round64(v2, binary.LittleEndian.Uint64(buf[i+8:]))
			v3 = round64(v3, binary.LittleEndian.Uint64(buf[i+16:]))
			v4 = round64(v4, binary.LittleEndian.Uint64(buf[i+24:]))
		}
		h64 = rotl64(v1, 1) + rotl64(v2, 7) + rotl64(v3, 12) + rotl64(v4, 18)
		h64 = mergeRound64(h64, v1)
		h64 = mergeRound64(h64, v2)
		h64 = mergeRound64(h64, v3)
		h64 = mergeRound64(h64, v4)
	} else {
		h64 = seed + prime64_5
	}

	h64 += uint64(n)

	for ; i+8 <= n; i += 8 {
		k1 := round64(0, binary.LittleEndian.Uint64(buf[i:]))
		h64 ^= k1
		h64 = rotl64(h64, 27)*prime64_1 + prime64_4
	}
	if i+4 <= n {
		h64 ^= uint64(binary.LittleEndian.Uint32(buf[i:])) * prime64_1
		h64 = rotl64(h64, 23)*prime64_2 + prime64_3
		i += 4
	}
	for ; i < n; i++ {
		h64 ^= uint64(buf[i]) * prime64_5
		h64 = rotl64(h64, 11) * prime64_1
	}

	h64 ^= h64 >> 33
	h64 *= prime64_2
	h64 ^= h64 >> 29
	h64 *= prime64_3
	h64 ^= h64 >> 32
	return h64
}

// hashIOV hashes the logical concatenation of iov without mutating any of
// its slices. Dedup payloads are small (scalars, anchors, tag handles), so
// copying into one scratch buffer before hashing is simpler than a
// streaming xxh64 state machine and cheap enough in practice.
func hashIOV(iov [][]byte, seed uint64) (uint64, int) {
	total := 0
	for _, p := range iov {
		total += len(p)
	}
	if len(iov) == 1 {
		return xxh64(iov[0], seed), total
	}
	buf := make([]byte, 0, total)
	for _, p := range iov {
		buf = append(buf, p...)
	}
	return xxh64(buf, seed), total
}
