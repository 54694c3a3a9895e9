// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryKnowsBuiltins(t *testing.T) {
	names := Names()
	want := map[string]bool{"linear": false, "malloc": false, "mremap": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, found := range want {
		require.Truef(t, found, "builtin allocator %q not registered", n)
	}
}

func TestNewUnknownAllocator(t *testing.T) {
	_, err := New("does-not-exist", DefaultConfig())
	require.Error(t, err)
}

func testAllocatorRoundTrip(t *testing.T, name string, cfg Config) {
	t.Helper()
	a, err := New(name, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Setup())
	defer a.Cleanup()

	tag, err := a.GetTag()
	require.NoError(t, err)

	p1, err := a.Store(tag, []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(p1))

	p2, err := a.StoreV(tag, [][]byte{[]byte("hel"), []byte("lo "), []byte("world")})
	require.NoError(t, err)
	require.Equal(t, "hello world", string(p2))

	info := a.GetInfo(tag)
	require.Equal(t, tag, info.Tag)

	a.Release(tag, p1, len(p1))
	a.ReleaseTag(tag)
}

func TestLinearRoundTrip(t *testing.T) {
	testAllocatorRoundTrip(t, "linear", Config{BufSize: 4096})
}

func TestMallocRoundTrip(t *testing.T) {
	testAllocatorRoundTrip(t, "malloc", DefaultConfig())
}

func TestMremapRoundTrip(t *testing.T) {
	testAllocatorRoundTrip(t, "mremap", Config{InitialArena: 256, MinimumArena: 256, GrowRatio: 2})
}

func TestLinearOutOfSpace(t *testing.T) {
	a := NewLinear(Config{BufSize: 8})
	require.NoError(t, a.Setup())
	tag, _ := a.GetTag()
	_, err := a.Store(tag, []byte("too many bytes for this buffer"))
	require.ErrorIs(t, err, ErrOutOfSpace)
}

func TestMremapGrowsAcrossArenas(t *testing.T) {
	a := NewMremap(Config{InitialArena: 64, MinimumArena: 64, GrowRatio: 2})
	require.NoError(t, a.Setup())
	tag, err := a.GetTag()
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		_, err := a.Store(tag, []byte("0123456789"))
		require.NoError(t, err)
	}
	info := a.GetInfo(tag)
	require.GreaterOrEqual(t, info.ArenaCount, 1)
	require.Equal(t, 100, info.TotalAllocs)
}

func TestMremapReleaseTagFreesArenas(t *testing.T) {
	a := NewMremap(DefaultConfig())
	require.NoError(t, a.Setup())
	tag, err := a.GetTag()
	require.NoError(t, err)
	_, err = a.Store(tag, []byte("x"))
	require.NoError(t, err)
	a.ReleaseTag(tag)
	info := a.GetInfo(tag)
	require.Equal(t, 0, info.TotalAllocs)
}
