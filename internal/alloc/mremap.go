// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// Mremap is the general-purpose allocator: each tag owns a linked list of
// page-aligned arenas, grown in place via mmap/mremap when the backing
// supports it, or replaced by a larger new arena otherwise. Grounded on
// the mmap-management style of other_examples' go-ublk runner.go (manual
// page-rounding, unix.Mmap, raw-pointer bookkeeping around a kernel
// mapping) generalized from "one fixed-size ring" to "a growable chain of
// arenas"; see DESIGN.md.

package alloc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fy-yaml/fy/internal/bitset"
)

const (
	arenaFull uint32 = 1 << iota
	arenaCantGrow
	arenaGrowing
)

type mremapArena struct {
	mem    []byte
	cursor int32 // atomic
	flags  uint32 // atomic, arena* bits
	mmap   bool
	next   atomic.Pointer[mremapArena]
}

func (a *mremapArena) size() int { return len(a.mem) }

// orUint32 atomically sets the bits of mask on *addr via a CAS loop,
// standing in for the atomic bitwise-Or helper some Go versions lack.
func orUint32(addr *uint32, mask uint32) {
	for {
		old := atomic.LoadUint32(addr)
		if atomic.CompareAndSwapUint32(addr, old, old|mask) {
			return
		}
	}
}

// bump attempts to reserve size bytes aligned to align by CASing the
// cursor forward. Returns the slice and ok=true on success.
func (a *mremapArena) bump(size, align int) ([]byte, bool) {
	for {
		cur := atomic.LoadInt32(&a.cursor)
		start := int(bitset.AlignUp(uintptr(cur), uintptr(align)))
		end := start + size
		if end > len(a.mem) {
			return nil, false
		}
		if atomic.CompareAndSwapInt32(&a.cursor, cur, int32(end)) {
			return a.mem[start:end:end], true
		}
	}
}

type mremapTagState struct {
	head atomic.Pointer[mremapArena]
	mu   sync.Mutex // serializes new-arena creation and grow-size bookkeeping

	arenaCount  int
	totalBytes  int
	totalAllocs int
	outOfSpace  int
}

// Mremap is the CORE's general-purpose allocator (component C, §4.C).
type Mremap struct {
	mu   sync.Mutex
	tags map[Tag]*mremapTagState
	next Tag
	cfg  Config
}

func init() {
	Register("mremap", func(cfg Config) (Allocator, error) { return NewMremap(cfg), nil })
}

// NewMremap constructs a Mremap allocator from cfg, applying spec.md's
// documented defaults for any zero-valued field.
func NewMremap(cfg Config) *Mremap {
	if cfg.GrowRatio <= 1 {
		cfg.GrowRatio = 2
	}
	if cfg.MinimumArena <= 0 {
		cfg.MinimumArena = 1 << 20
	}
	if cfg.InitialArena <= 0 {
		cfg.InitialArena = cfg.MinimumArena
	}
	if cfg.EmptyThreshold <= 0 {
		cfg.EmptyThreshold = 64
	}
	return &Mremap{tags: make(map[Tag]*mremapTagState), cfg: cfg}
}

func (m *Mremap) Setup() error { return nil }

func (m *Mremap) Cleanup() {
	m.mu.Lock()
	tags := m.tags
	m.tags = make(map[Tag]*mremapTagState)
	m.mu.Unlock()
	for _, st := range tags {
		m.freeArenas(st)
	}
}

func (m *Mremap) GetTag() (Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.next
	m.next++
	m.tags[t] = &mremapTagState{}
	return t, nil
}

func (m *Mremap) state(tag Tag) *mremapTagState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.tags[tag]
	if !ok {
		st = &mremapTagState{}
		m.tags[tag] = st
	}
	return st
}

func (m *Mremap) freeArenas(st *mremapTagState) {
	a := st.head.Load()
	for a != nil {
		next := a.next.Load()
		if a.mmap {
			_ = munmapArena(a.mem)
		}
		a = next
	}
}

func (m *Mremap) ReleaseTag(tag Tag) {
	m.mu.Lock()
	st, ok := m.tags[tag]
	delete(m.tags, tag)
	m.mu.Unlock()
	if ok {
		m.freeArenas(st)
	}
}

// TrimTag page-aligns each arena's high-water mark and releases the tail,
// when the backing supports partial unmap (mmap-anon only; heap-backed
// arenas are left for the Go GC to reclaim once dereferenced).
func (m *Mremap) TrimTag(tag Tag) {
	st := m.state(tag)
	a := st.head.Load()
	for a != nil {
		if a.mmap {
			cur := int(atomic.LoadInt32(&a.cursor))
			trimArenaTail(a.mem, cur)
		}
		a = a.next.Load()
	}
}

func (m *Mremap) ResetTag(tag Tag) {
	m.ReleaseTag(tag)
}

func (m *Mremap) nextArenaSize(want int) int {
	size := m.cfg.InitialArena
	for size < want {
		size = int(float64(size) * m.cfg.GrowRatio)
	}
	if size < m.cfg.MinimumArena {
		size = m.cfg.MinimumArena
	}
	return size
}

func (m *Mremap) newArena(size int) (*mremapArena, error) {
	if m.cfg.ArenaBacking == BackingMmapAnon {
		mem, err := mmapAnon(size)
		if err == nil {
			return &mremapArena{mem: mem, mmap: true}, nil
		}
		// Fall through to heap backing: mmap-anon is an optimization,
		// not a correctness requirement (§1 excludes portability shims).
	}
	return &mremapArena{mem: make([]byte, size)}, nil
}

// growArena attempts to double an mmap-backed arena in place. Heap-backed
// arenas (plain Go slices) cannot grow in place without invalidating
// already-returned sub-slices, so they always fall through to a new
// arena — this mirrors real mmap semantics more closely than faking an
// in-place grow with append would.
func (m *Mremap) growArena(a *mremapArena) bool {
	if !a.mmap {
		return false
	}
	if !atomic.CompareAndSwapUint32(&a.flags, 0, arenaGrowing) {
		return false // another goroutine is already growing this arena
	}

	newSize := a.size() * 2
	grown, err := mremapGrow(a.mem, newSize)
	if err != nil {
		atomic.StoreUint32(&a.flags, arenaCantGrow)
		return false
	}
	a.mem = grown
	atomic.StoreUint32(&a.flags, 0)
	return true
}

func (m *Mremap) Alloc(tag Tag, size int, align int) ([]byte, error) {
	if align < 1 {
		align = 1
	}
	st := m.state(tag)

	for a := st.head.Load(); a != nil; a = a.next.Load() {
		if atomic.LoadUint32(&a.flags)&arenaFull != 0 {
			continue
		}
		if b, ok := a.bump(size, align); ok {
			st.totalBytes += size
			st.totalAllocs++
			if a.size()-int(atomic.LoadInt32(&a.cursor)) < m.cfg.EmptyThreshold &&
				atomic.LoadUint32(&a.flags)&arenaCantGrow != 0 {
				orUint32(&a.flags, arenaFull)
			}
			return b, nil
		}
	}

	// Try growing the tail arena before allocating a new one.
	st.mu.Lock()
	tail := st.head.Load()
	for tail != nil && tail.next.Load() != nil {
		tail = tail.next.Load()
	}
	if tail != nil && m.growArena(tail) {
		st.mu.Unlock()
		return m.Alloc(tag, size, align)
	}

	arenaSize := m.nextArenaSize(size)
	newArena, err := m.newArena(arenaSize)
	if err != nil {
		st.mu.Unlock()
		st.outOfSpace++
		return nil, fmt.Errorf("alloc: mremap: %w", err)
	}
	if tail == nil {
		st.head.Store(newArena)
	} else {
		tail.next.Store(newArena)
	}
	st.arenaCount++
	st.mu.Unlock()

	b, ok := newArena.bump(size, align)
	if !ok {
		st.outOfSpace++
		return nil, ErrOutOfSpace
	}
	st.totalBytes += size
	st.totalAllocs++
	return b, nil
}

func (m *Mremap) Store(tag Tag, p []byte) ([]byte, error) {
	b, err := m.Alloc(tag, len(p), 1)
	if err != nil {
		return nil, err
	}
	copy(b, p)
	return b, nil
}

func (m *Mremap) StoreV(tag Tag, iov [][]byte) ([]byte, error) {
	total := 0
	for _, p := range iov {
		total += len(p)
	}
	b, err := m.Alloc(tag, total, 1)
	if err != nil {
		return nil, err
	}
	off := 0
	for _, p := range iov {
		off += copy(b[off:], p)
	}
	return b, nil
}

// Release is a bookkeeping no-op: like Linear, an arena allocator cannot
// free an individual allocation without a separate free-list, which the
// dedup allocator's metadata backing provides on top of this when it
// needs one (internal/dedup).
func (m *Mremap) Release(tag Tag, ref []byte, size int) {}

func (m *Mremap) GetInfo(tag Tag) Info {
	st := m.state(tag)
	return Info{
		Tag:         tag,
		TotalBytes:  st.totalBytes,
		TotalAllocs: st.totalAllocs,
		ArenaCount:  st.arenaCount,
		OutOfSpace:  st.outOfSpace,
	}
}

func (m *Mremap) UpdateStats(tag Tag) {}

func (m *Mremap) Dump() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("mremap: %d tags", len(m.tags))
}
