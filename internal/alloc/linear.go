// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"errors"
	"strconv"

	"github.com/fy-yaml/fy/internal/bitset"
)

// ErrOutOfSpace is returned by the Linear allocator when a request would
// advance the cursor past the end of its fixed buffer.
var ErrOutOfSpace = errors.New("alloc: out of space")

func init() {
	Register("linear", func(cfg Config) (Allocator, error) { return NewLinear(cfg), nil })
}

// Linear is a bump allocator over a single fixed-size buffer. It only ever
// has tag 0; GetTag always returns it, ReleaseTag rewinds the cursor to
// the start. Use it for short-lived, single-document parses where the
// caller can bound total live bytes up front.
type Linear struct {
	buf    []byte
	cursor int

	stats Info
}

// NewLinear constructs a Linear allocator. cfg.BufSize picks the buffer
// size (default 64 KiB if unset).
func NewLinear(cfg Config) *Linear {
	size := cfg.BufSize
	if size <= 0 {
		size = 64 << 10
	}
	return &Linear{buf: make([]byte, size)}
}

func (l *Linear) Setup() error { return nil }
func (l *Linear) Cleanup()     {}

func (l *Linear) GetTag() (Tag, error) { return 0, nil }

func (l *Linear) ReleaseTag(tag Tag) {
	l.cursor = 0
	l.stats = Info{}
}

func (l *Linear) TrimTag(tag Tag) {} // nothing to give back mid-lifetime

func (l *Linear) ResetTag(tag Tag) { l.ReleaseTag(tag) }

func (l *Linear) Alloc(tag Tag, size int, align int) ([]byte, error) {
	if align < 1 {
		align = 1
	}
	start := int(bitset.AlignUp(uintptr(l.cursor), uintptr(align)))
	end := start + size
	if end > len(l.buf) {
		l.stats.OutOfSpace++
		return nil, ErrOutOfSpace
	}
	l.cursor = end
	l.stats.LiveBytes += size
	l.stats.LiveAllocs++
	l.stats.TotalBytes += size
	l.stats.TotalAllocs++
	return l.buf[start:end:end], nil
}

func (l *Linear) Store(tag Tag, p []byte) ([]byte, error) {
	b, err := l.Alloc(tag, len(p), 1)
	if err != nil {
		return nil, err
	}
	copy(b, p)
	return b, nil
}

func (l *Linear) StoreV(tag Tag, iov [][]byte) ([]byte, error) {
	total := 0
	for _, p := range iov {
		total += len(p)
	}
	b, err := l.Alloc(tag, total, 1)
	if err != nil {
		return nil, err
	}
	off := 0
	for _, p := range iov {
		off += copy(b[off:], p)
	}
	return b, nil
}

// Release is a no-op: a bump allocator cannot free an
// individual allocation without invalidating everything allocated after
// it, so only ReleaseTag actually reclaims space.
func (l *Linear) Release(tag Tag, ref []byte, size int) {}

func (l *Linear) GetInfo(tag Tag) Info {
	info := l.stats
	info.Tag = tag
	info.ArenaCount = 1
	return info
}

func (l *Linear) UpdateStats(tag Tag) {}

func (l *Linear) Dump() string {
	return "linear: cursor=" + strconv.Itoa(l.cursor) + " cap=" + strconv.Itoa(len(l.buf))
}
