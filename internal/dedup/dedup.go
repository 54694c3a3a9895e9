// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// Package dedup implements the content-dedup allocator (component D,
// spec.md §4.D): a Bloom filter plus a hash-bucketed directory, keyed by
// xxHash64, fronting a backing allocator so that byte-identical payloads
// share one pointer. Registers itself as "dedup" in internal/alloc's
// factory.
package dedup

import (
	"bytes"
	"fmt"
	"math/bits"
	"sync"

	"github.com/fy-yaml/fy/internal/alloc"
	fybitset "github.com/fy-yaml/fy/internal/bitset"
)

func init() {
	alloc.Register("dedup", func(cfg alloc.Config) (alloc.Allocator, error) {
		parent := cfg.Parent
		if parent == nil {
			var err error
			parent, err = alloc.New("mremap", alloc.DefaultConfig())
			if err != nil {
				return nil, err
			}
		}
		meta := cfg.MetaParent
		if meta == nil {
			meta = alloc.NewMalloc(alloc.Config{})
		}
		return New(parent, meta, cfg), nil
	})
}

// bitToChainLength is the size-indexed default grow-trigger table from
// §4.D "Sizing heuristics": small tables tolerate chains of 1, large ones
// tolerate up to 10, indexed by bucketBits.
var bitToChainLength = map[int]int{
	0: 1, 1: 1, 2: 1, 3: 1, 4: 1, 5: 2, 6: 2, 7: 3, 8: 3, 9: 4, 10: 4,
	11: 5, 12: 5, 13: 6, 14: 6, 15: 7, 16: 7, 17: 8, 18: 8, 19: 9, 20: 9,
}

func chainLengthGrowTrigger(bucketBits int) int {
	if v, ok := bitToChainLength[bucketBits]; ok {
		return v
	}
	return 10
}

// entry is one stored payload: a node in its bucket's doubly linked chain.
type entry struct {
	hash     uint64
	refcount int
	size     int
	payload  []byte

	metaRef []byte // backing allocation in the metadata allocator, for stats only

	prev, next *entry
}

// directory is one (bloom, buckets, in-use, collision) instance. Two of
// these exist per tag (active, shadow) so adjust() can rehash out of
// place, per §4.D.
type directory struct {
	bloomBits  int
	bucketBits int
	bloom      *bloom
	buckets    []*entry // chain head per bucket
	inUse      *fybitset.Set
	collision  *fybitset.Set
}

func newDirectory(bloomBits, bucketBits int) *directory {
	return &directory{
		bloomBits:  bloomBits,
		bucketBits: bucketBits,
		bloom:      newBloom(bloomBits),
		buckets:    make([]*entry, 1<<uint(bucketBits)),
		inUse:      fybitset.New(1 << uint(bucketBits)),
		collision:  fybitset.New(1 << uint(bucketBits)),
	}
}

func (d *directory) bucketMask() uint64 { return uint64(len(d.buckets) - 1) }
func (d *directory) bucketPos(hash uint64) int { return int(hash & d.bucketMask()) }

// Stats are the per-tag counters §4.D names.
type Stats struct {
	Stores         int
	StoredBytes    int
	DupStores      int
	DupSavedBytes  int
	Releases       int
	ReleasedBytes  int
}

type tagState struct {
	mu     sync.Mutex
	dir    *directory
	shadow *directory
	stats  Stats

	growTrigger int
}

// Dedup is the content-dedup allocator.
type Dedup struct {
	parent alloc.Allocator // payload backing
	meta   alloc.Allocator // per-entry metadata backing

	cfg  alloc.Config
	seed uint64

	mu   sync.Mutex
	tags map[alloc.Tag]*tagState
	next alloc.Tag
}

// New constructs a Dedup allocator fronting parent (payload) and meta
// (bucket/entry bookkeeping).
func New(parent, meta alloc.Allocator, cfg alloc.Config) *Dedup {
	return &Dedup{
		parent: parent,
		meta:   meta,
		cfg:    cfg,
		seed:   0x9e3779b97f4a7c15, // fixed at creation, per §4.D step 2
		tags:   make(map[alloc.Tag]*tagState),
	}
}

func (d *Dedup) Setup() error {
	if err := d.parent.Setup(); err != nil {
		return err
	}
	return d.meta.Setup()
}

func (d *Dedup) Cleanup() {
	d.parent.Cleanup()
	d.meta.Cleanup()
}

// sizeFromEstimate implements §4.D's sizing heuristics for bloom/bucket
// bit counts when the caller supplies EstimatedContentSize instead of
// explicit BloomFilterBits/BucketCountBits.
func sizeFromEstimate(estimated uint64) (bloomBits, bucketBits int) {
	if estimated == 0 {
		return 10, 8 // small, sane defaults when nothing is known
	}
	bucketBits = bits.Len64(estimated/1024)
	if bucketBits < 6 {
		bucketBits = 6
	}
	if bucketBits > 30 {
		bucketBits = 30
	}
	byContent := bits.Len64(estimated / 128)
	bloomBits = bucketBits + 3
	if byContent > bloomBits {
		bloomBits = byContent
	}
	if bloomBits > 31 {
		bloomBits = 31
	}
	return bloomBits, bucketBits
}

// GetTag allocates a fresh dedup tag. The same tag number is used against
// both the parent (payload) and meta (bookkeeping) backing allocators
// directly, skipping their own GetTag: Malloc and Mremap create tag state
// lazily on first use of any tag number, so there is nothing to
// pre-register, and using one shared number keeps ReleaseTag/TrimTag
// trivial to route to both backings at once.
func (d *Dedup) GetTag() (alloc.Tag, error) {
	bloomBits, bucketBits := d.cfg.BloomFilterBits, d.cfg.BucketCountBits
	if bloomBits == 0 || bucketBits == 0 {
		eb, eu := sizeFromEstimate(d.cfg.EstimatedContentSize)
		if bloomBits == 0 {
			bloomBits = eb
		}
		if bucketBits == 0 {
			bucketBits = eu
		}
	}
	if bloomBits < bucketBits {
		bloomBits = bucketBits
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.next
	d.next++
	d.tags[t] = &tagState{
		dir:         newDirectory(bloomBits, bucketBits),
		growTrigger: chainLengthGrowTrigger(bucketBits),
	}
	return t, nil
}

func (d *Dedup) state(tag alloc.Tag) *tagState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.tags[tag]
	if !ok {
		bloomBits, bucketBits := sizeFromEstimate(d.cfg.EstimatedContentSize)
		st = &tagState{dir: newDirectory(bloomBits, bucketBits), growTrigger: chainLengthGrowTrigger(bucketBits)}
		d.tags[tag] = st
	}
	return st
}

func (d *Dedup) ReleaseTag(tag alloc.Tag) {
	d.mu.Lock()
	delete(d.tags, tag)
	d.mu.Unlock()
	d.parent.ReleaseTag(tag)
	d.meta.ReleaseTag(tag)
}

func (d *Dedup) TrimTag(tag alloc.Tag) {
	d.parent.TrimTag(tag)
	d.meta.TrimTag(tag)
}

func (d *Dedup) ResetTag(tag alloc.Tag) { d.ReleaseTag(tag) }

func (d *Dedup) Alloc(tag alloc.Tag, size int, align int) ([]byte, error) {
	return d.parent.Alloc(tag, size, align)
}

func (d *Dedup) Store(tag alloc.Tag, p []byte) ([]byte, error) {
	return d.StoreV(tag, [][]byte{p})
}

// StoreV implements the insert algorithm of §4.D steps 1-6.
func (d *Dedup) StoreV(tag alloc.Tag, iov [][]byte) ([]byte, error) {
	hash, total := hashIOV(iov, d.seed)

	threshold := d.cfg.DedupThreshold
	if total < threshold {
		return d.parent.StoreV(tag, iov)
	}

	st := d.state(tag)
	st.mu.Lock()
	defer st.mu.Unlock()

	dir := st.dir
	bloomHit := dir.bloom.test(hash)
	bucketPos := dir.bucketPos(hash)

	if bloomHit && dir.inUse.IsUsed(bucketPos) {
		chainLen := 0
		for e := dir.buckets[bucketPos]; e != nil; e = e.next {
			chainLen++
			if e.hash == hash && e.size == total && payloadEqualsIOV(e.payload, iov) {
				e.refcount++
				st.stats.DupStores++
				st.stats.DupSavedBytes += total
				return e.payload, nil
			}
		}
	}

	// Miss: allocate a fresh entry.
	payload, err := d.parent.StoreV(tag, iov)
	if err != nil {
		return nil, err
	}
	metaRef, err := d.meta.Alloc(tag, entryMetaSize, 8)
	if err != nil {
		d.parent.Release(tag, payload, total)
		return nil, err
	}
	e := &entry{hash: hash, refcount: 1, size: total, payload: payload, metaRef: metaRef}
	e.next = dir.buckets[bucketPos]
	if e.next != nil {
		e.next.prev = e
		dir.collision.MarkUsed(bucketPos)
	}
	dir.buckets[bucketPos] = e
	dir.inUse.MarkUsed(bucketPos)
	dir.bloom.set(hash)

	st.stats.Stores++
	st.stats.StoredBytes += total

	chainLen := chainLength(dir.buckets[bucketPos])
	if chainLen > st.growTrigger {
		d.adjustLocked(tag, st)
	}
	return payload, nil
}

// entryMetaSize is a nominal size charged against the metadata allocator
// per stored entry, standing in for the bucket-entry header size spec.md
// describes (hash, refcount, size, payload pointer): the chain pointers
// themselves live in the Go entry struct, which the garbage collector
// already tracks, so this charge exists purely to keep the metadata
// backing allocator's stats meaningful rather than to hold real data.
const entryMetaSize = 32

func chainLength(head *entry) int {
	n := 0
	for e := head; e != nil; e = e.next {
		n++
	}
	return n
}

func payloadEqualsIOV(payload []byte, iov [][]byte) bool {
	off := 0
	for _, p := range iov {
		if off+len(p) > len(payload) {
			return false
		}
		if !bytes.Equal(payload[off:off+len(p)], p) {
			return false
		}
		off += len(p)
	}
	return off == len(payload)
}

// Release implements §4.D's release algorithm: recompute the hash, walk
// bloom -> bucket -> chain, decrement refcount, and on zero unlink and
// free both backings.
func (d *Dedup) Release(tag alloc.Tag, ref []byte, size int) {
	if len(ref) == 0 {
		return
	}
	hash := xxh64(ref, d.seed)
	st := d.state(tag)
	st.mu.Lock()
	defer st.mu.Unlock()

	dir := st.dir
	pos := dir.bucketPos(hash)
	for e := dir.buckets[pos]; e != nil; e = e.next {
		if e.hash != hash || e.size != size || !bytes.Equal(e.payload, ref) {
			continue
		}
		e.refcount--
		st.stats.Releases++
		st.stats.ReleasedBytes += size
		if e.refcount > 0 {
			return
		}
		// Unlink.
		if e.prev != nil {
			e.prev.next = e.next
		} else {
			dir.buckets[pos] = e.next
		}
		if e.next != nil {
			e.next.prev = e.prev
		}
		if dir.buckets[pos] == nil {
			dir.inUse.Free(pos)
		}
		d.parent.Release(tag, e.payload, e.size)
		d.meta.Release(tag, e.metaRef, entryMetaSize)
		// The bloom bit for hash is deliberately left set: §4.D's lazy
		// clear policy. A later lookup may bloom-hit and walk an empty
		// or unrelated chain, which is harmless (the chain/byte compare
		// is authoritative) and only costs a wasted bucket scan.
		return
	}
}

// adjustLocked rehashes st's directory into a larger shadow instance and
// swaps it in, per §4.D "Adjust (rehash)". Caller must hold st.mu.
func (d *Dedup) adjustLocked(tag alloc.Tag, st *tagState) {
	old := st.dir
	newBucketBits := old.bucketBits + 1
	newBloomBits := old.bloomBits + 1
	if newBloomBits < newBucketBits {
		newBloomBits = newBucketBits
	}
	if newBucketBits > 31 {
		return // already at the ceiling; stop growing rather than overflow
	}
	shadow := newDirectory(newBloomBits, newBucketBits)

	old.inUse.Iterate(func(pos int) bool {
		for e := old.buckets[pos]; e != nil; {
			nextE := e.next
			e.prev, e.next = nil, nil
			newPos := shadow.bucketPos(e.hash)
			e.next = shadow.buckets[newPos]
			if e.next != nil {
				e.next.prev = e
				shadow.collision.MarkUsed(newPos)
			}
			shadow.buckets[newPos] = e
			shadow.inUse.MarkUsed(newPos)
			shadow.bloom.set(e.hash)
			e = nextE
		}
		return true
	})

	st.dir = shadow
	st.growTrigger = chainLengthGrowTrigger(newBucketBits)
	st.shadow = old // kept only for diagnostics; eligible for GC otherwise
}

func (d *Dedup) GetInfo(tag alloc.Tag) alloc.Info {
	return d.parent.GetInfo(tag)
}

// UpdateStats forwards to the payload and metadata backings' own
// UpdateStats. The dedup counters are not folded into their stats; they
// are read through Stats.
func (d *Dedup) UpdateStats(tag alloc.Tag) {
	d.parent.UpdateStats(tag)
	d.meta.UpdateStats(tag)
}

// Stats returns a snapshot of tag's dedup counters.
func (d *Dedup) Stats(tag alloc.Tag) Stats {
	st := d.state(tag)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stats
}

func (d *Dedup) Dump() string {
	d.mu.Lock()
	n := len(d.tags)
	d.mu.Unlock()
	return fmt.Sprintf("dedup: %d tags over %s", n, d.parent.Dump())
}
