// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"fmt"
	"sync"
)

func init() {
	Register("malloc", func(cfg Config) (Allocator, error) { return NewMalloc(cfg), nil })
}

// mallocBlock is the small header every Malloc allocation carries so that
// Release-by-slice can find and unlink it, matching spec.md's "each block
// carries a small header (mem pointer, size)".
type mallocBlock struct {
	mem        []byte
	prev, next *mallocBlock
}

type mallocTagState struct {
	mu         sync.Mutex
	head, tail *mallocBlock
	stats      Info
}

// Malloc wraps the Go runtime allocator (standing in for the system
// allocator the spec's C lineage wraps) and keeps, per tag, a doubly
// linked list of live blocks so ReleaseTag can free them all at once. A
// per-tag mutex makes it safe to share one Malloc allocator across
// parsers/goroutines, matching §5's "reference code includes this variant
// as optional" note: single-parser callers pay an uncontended lock, which
// is cheap enough not to warrant a lock-free variant here.
type Malloc struct {
	mu   sync.Mutex
	tags map[Tag]*mallocTagState
	next Tag
}

// NewMalloc constructs a Malloc allocator. cfg is accepted for interface
// symmetry with the other built-ins; Malloc has no tunables of its own.
func NewMalloc(cfg Config) *Malloc {
	return &Malloc{tags: make(map[Tag]*mallocTagState)}
}

func (m *Malloc) Setup() error { return nil }
func (m *Malloc) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = make(map[Tag]*mallocTagState)
}

func (m *Malloc) GetTag() (Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.next
	m.next++
	m.tags[t] = &mallocTagState{}
	return t, nil
}

func (m *Malloc) state(tag Tag) *mallocTagState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.tags[tag]
	if !ok {
		st = &mallocTagState{}
		m.tags[tag] = st
	}
	return st
}

func (m *Malloc) ReleaseTag(tag Tag) {
	m.mu.Lock()
	st, ok := m.tags[tag]
	delete(m.tags, tag)
	m.mu.Unlock()
	if !ok {
		return
	}
	st.mu.Lock()
	st.head, st.tail = nil, nil
	st.mu.Unlock()
}

func (m *Malloc) TrimTag(tag Tag) {} // Go's GC owns trimming; nothing to do early.

func (m *Malloc) ResetTag(tag Tag) { m.ReleaseTag(tag) }

func (m *Malloc) Alloc(tag Tag, size int, align int) ([]byte, error) {
	st := m.state(tag)
	b := &mallocBlock{mem: make([]byte, size)}
	st.mu.Lock()
	defer st.mu.Unlock()
	b.prev = st.tail
	if st.tail != nil {
		st.tail.next = b
	} else {
		st.head = b
	}
	st.tail = b
	st.stats.LiveBytes += size
	st.stats.LiveAllocs++
	st.stats.TotalBytes += size
	st.stats.TotalAllocs++
	return b.mem, nil
}

func (m *Malloc) Store(tag Tag, p []byte) ([]byte, error) {
	b, err := m.Alloc(tag, len(p), 1)
	if err != nil {
		return nil, err
	}
	copy(b, p)
	return b, nil
}

func (m *Malloc) StoreV(tag Tag, iov [][]byte) ([]byte, error) {
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

// Release walks the tag's block list for the block backing ref and
// unlinks it. Since Go slices cannot be compared for backing-array
// identity portably except via &ref[0], this matches on that pointer.
func (m *Malloc) Release(tag Tag, ref []byte, size int) {
	if len(ref) == 0 {
		return
	}
	st := m.state(tag)
	st.mu.Lock()
	defer st.mu.Unlock()
	for b := st.head; b != nil; b = b.next {
		if len(b.mem) > 0 && &b.mem[0] == &ref[0] {
			if b.prev != nil {
				b.prev.next = b.next
			} else {
				st.head = b.next
			}
			if b.next != nil {
				b.next.prev = b.prev
			} else {
				st.tail = b.prev
			}
			st.stats.LiveBytes -= len(b.mem)
			st.stats.LiveAllocs--
			return
		}
	}
}

func (m *Malloc) GetInfo(tag Tag) Info {
	st := m.state(tag)
	st.mu.Lock()
	defer st.mu.Unlock()
	info := st.stats
	info.Tag = tag
	return info
}

func (m *Malloc) UpdateStats(tag Tag) {}

func (m *Malloc) Dump() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("malloc: %d tags", len(m.tags))
}
