// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

// mmap-backed arena growth for the Mremap allocator, grounded on the
// manual mmap bookkeeping in other_examples' go-ublk queue runner
// (page-rounding, unix.Mmap, raw backing-array pointers) — see
// DESIGN.md. Windows mmap emulation is explicitly out of CORE scope
// (spec.md §1); on other platforms mmap_other.go stands in for this file
// and arenas come from the heap fallback in mremap.go.

package alloc

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func pageRound(size int) int {
	pageSize := syscall.Getpagesize()
	return (size + pageSize - 1) &^ (pageSize - 1)
}

func mmapAnon(size int) ([]byte, error) {
	size = pageRound(size)
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

// mremapGrow grows an existing anonymous mapping without moving it
// (MREMAP_MAYMOVE is intentionally omitted: a moved mapping would
// invalidate every slice a caller already took out of old).
func mremapGrow(old []byte, newSize int) ([]byte, error) {
	newSize = pageRound(newSize)
	// flags=0: no MREMAP_MAYMOVE, so this fails rather than relocating
	// the mapping — callers fall back to allocating a new arena instead.
	return unix.Mremap(old, newSize, 0)
}

func munmapArena(mem []byte) error {
	return unix.Munmap(mem)
}

// trimArenaTail releases pages past usedBytes, rounded up to a page
// boundary, back to the OS while keeping the mapping's low addresses
// (and therefore every slice already handed out) valid.
func trimArenaTail(mem []byte, usedBytes int) {
	start := pageRound(usedBytes)
	if start >= len(mem) {
		return
	}
	_ = unix.Madvise(mem[start:], unix.MADV_DONTNEED)
}
