// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fy-yaml/fy/internal/alloc"
)

func newTestDedup(t *testing.T, threshold int) (*Dedup, alloc.Tag) {
	t.Helper()
	parent := alloc.NewMalloc(alloc.Config{})
	meta := alloc.NewMalloc(alloc.Config{})
	d := New(parent, meta, alloc.Config{DedupThreshold: threshold, BloomFilterBits: 10, BucketCountBits: 8})
	require.NoError(t, d.Setup())
	tag, err := d.GetTag()
	require.NoError(t, err)
	return d, tag
}

// TestDedupIdenticalPayloadsSharePointer is spec.md §8 property 6/S6: two
// distinct StoreV calls whose logical byte content is identical must
// return the same backing pointer, and dup stats must reflect the hit.
func TestDedupIdenticalPayloadsSharePointer(t *testing.T) {
	d, tag := newTestDedup(t, 8)

	p1, err := d.StoreV(tag, [][]byte{[]byte("hello world")})
	require.NoError(t, err)

	p2, err := d.StoreV(tag, [][]byte{[]byte("hel"), []byte("lo world")})
	require.NoError(t, err)

	require.Equal(t, &p1[0], &p2[0], "expected identical backing pointer for identical content")

	stats := d.Stats(tag)
	require.Equal(t, 1, stats.Stores)
	require.Equal(t, 1, stats.DupStores)
	require.Equal(t, 11, stats.DupSavedBytes)
}

// TestDedupBelowThresholdBypasses checks small payloads skip the
// directory entirely and are never deduplicated against each other.
func TestDedupBelowThresholdBypasses(t *testing.T) {
	d, tag := newTestDedup(t, 64)

	p1, err := d.StoreV(tag, [][]byte{[]byte("short")})
	require.NoError(t, err)
	p2, err := d.StoreV(tag, [][]byte{[]byte("short")})
	require.NoError(t, err)

	require.NotEqual(t, &p1[0], &p2[0], "below-threshold stores must not be deduplicated")
	stats := d.Stats(tag)
	require.Equal(t, 0, stats.Stores)
	require.Equal(t, 0, stats.DupStores)
}

// TestDedupDistinctPayloadsDiffer confirms non-identical content over
// threshold gets distinct entries and the bloom filter does not produce
// false merges.
func TestDedupDistinctPayloadsDiffer(t *testing.T) {
	d, tag := newTestDedup(t, 4)

	p1, err := d.StoreV(tag, [][]byte{[]byte("alpha-content")})
	require.NoError(t, err)
	p2, err := d.StoreV(tag, [][]byte{[]byte("beta-content!")})
	require.NoError(t, err)

	require.NotEqual(t, &p1[0], &p2[0])
	stats := d.Stats(tag)
	require.Equal(t, 2, stats.Stores)
	require.Equal(t, 0, stats.DupStores)
}

// TestDedupReleaseRefcounting covers property 7: refcounted release only
// frees backing storage once the last reference drops, and the bloom bit
// staying set after a release is harmless (lookup falls through an empty
// chain).
func TestDedupReleaseRefcounting(t *testing.T) {
	d, tag := newTestDedup(t, 4)

	p1, err := d.StoreV(tag, [][]byte{[]byte("shared-payload-1")})
	require.NoError(t, err)
	p2, err := d.StoreV(tag, [][]byte{[]byte("shared-payload-1")})
	require.NoError(t, err)
	require.Equal(t, &p1[0], &p2[0])

	d.Release(tag, p1, len(p1))
	stats := d.Stats(tag)
	require.Equal(t, 1, stats.Releases)

	// One reference remains; the same content must still dedup-hit.
	p3, err := d.StoreV(tag, [][]byte{[]byte("shared-payload-1")})
	require.NoError(t, err)
	require.Equal(t, &p1[0], &p3[0])

	d.Release(tag, p2, len(p2))
	d.Release(tag, p3, len(p3))
	stats = d.Stats(tag)
	require.Equal(t, 3, stats.Releases)

	// Fully released; a fresh store of the same content is a new entry.
	p4, err := d.StoreV(tag, [][]byte{[]byte("shared-payload-1")})
	require.NoError(t, err)
	_ = p4
}

// TestDedupAdjustRehashesAllEntries covers property 8/9: forcing many
// distinct large-enough entries past the chain-length grow trigger
// exercises adjust() and confirms every previously stored entry is still
// reachable (and still dedups) afterward.
func TestDedupAdjustRehashesAllEntries(t *testing.T) {
	d, tag := newTestDedup(t, 4)

	const n = 500
	first := make([][]byte, n)
	for i := 0; i < n; i++ {
		content := []byte(pad("entry-content-", i))
		p, err := d.StoreV(tag, [][]byte{content})
		require.NoError(t, err)
		first[i] = p
	}

	for i := 0; i < n; i++ {
		content := []byte(pad("entry-content-", i))
		p, err := d.StoreV(tag, [][]byte{content})
		require.NoError(t, err)
		require.Equal(t, &first[i][0], &p[0], "entry %d not reachable after adjust", i)
	}

	stats := d.Stats(tag)
	require.Equal(t, n, stats.Stores)
	require.Equal(t, n, stats.DupStores)
}

func pad(prefix string, i int) string {
	s := prefix
	for j, k := 0, i; j < 20; j, k = j+1, k/26 {
		s += string(rune('a' + k%26))
	}
	return s
}

func TestDedupReleaseTagClearsDirectory(t *testing.T) {
	d, tag := newTestDedup(t, 4)

	_, err := d.StoreV(tag, [][]byte{[]byte("release-tag-content")})
	require.NoError(t, err)
	d.ReleaseTag(tag)

	newTag, err := d.GetTag()
	require.NoError(t, err)
	require.NotEqual(t, tag, newTag)

	p, err := d.StoreV(newTag, [][]byte{[]byte("release-tag-content")})
	require.NoError(t, err)
	stats := d.Stats(newTag)
	require.Equal(t, 1, stats.Stores)
	require.Equal(t, 0, stats.DupStores)
	_ = p
}
