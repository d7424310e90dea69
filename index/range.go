// Copyright 2024 The memris Authors
// This file is part of memris.
//
// memris is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// memris is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with memris. If not, see <http://www.gnu.org/licenses/>.

package index

import (
	"sync"
	"sync/atomic"

	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/google/btree"
)

// Ordered is any key type RangeIndex can compare with <, mirroring the
// numeric and string TypeCodes that support range queries.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string
}

// rangeItem is one distinct ordered key in a RangeIndex's tree, carrying its
// own copy-on-write posting list.
type rangeItem[K Ordered] struct {
	key     K
	entries *atomic.Pointer[[]Entry]
}

func (a rangeItem[K]) Less(b btree.Item) bool {
	return a.key < b.(rangeItem[K]).key
}

// RangeIndex accelerates ordered comparisons (<, <=, >, >=, between) and
// equality on an ordered key type, backed by a google/btree B-tree of
// distinct keys. Structural changes to the tree (a never-before-seen key)
// are serialized by mu; the posting list per key is copy-on-write exactly
// like HashIndex, so lookups never block on a concurrent writer.
type RangeIndex[K Ordered] struct {
	mu    sync.Mutex
	tree  *btree.BTree
	table liveChecker
}

// NewRangeIndex builds a range index over rows of t, using degree as the
// B-tree's branching factor.
func NewRangeIndex[K Ordered](t liveChecker, degree int) *RangeIndex[K] {
	return &RangeIndex[K]{tree: btree.New(degree), table: t}
}

func (r *RangeIndex[K]) bucketFor(key K) *atomic.Pointer[[]Entry] {
	r.mu.Lock()
	defer r.mu.Unlock()
	probe := rangeItem[K]{key: key}
	if existing := r.tree.Get(probe); existing != nil {
		return existing.(rangeItem[K]).entries
	}
	ptr := &atomic.Pointer[[]Entry]{}
	empty := []Entry{}
	ptr.Store(&empty)
	r.tree.ReplaceOrInsert(rangeItem[K]{key: key, entries: ptr})
	return ptr
}

// Add records that ref currently has value key.
func (r *RangeIndex[K]) Add(key K, ref rowstore.RowRef) {
	b := r.bucketFor(key)
	for {
		old := b.Load()
		next := make([]Entry, len(*old), len(*old)+1)
		copy(next, *old)
		next = append(next, Entry{Row: ref.Row(), Generation: ref.Generation()})
		if b.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Remove drops ref's posting under key.
func (r *RangeIndex[K]) Remove(key K, ref rowstore.RowRef) {
	r.mu.Lock()
	probe := rangeItem[K]{key: key}
	existing := r.tree.Get(probe)
	r.mu.Unlock()
	if existing == nil {
		return
	}
	b := existing.(rangeItem[K]).entries
	for {
		old := b.Load()
		next := make([]Entry, 0, len(*old))
		for _, e := range *old {
			if e.Row != ref.Row() || e.Generation != ref.Generation() {
				next = append(next, e)
			}
		}
		if b.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Equals returns the live rows holding exactly key.
func (r *RangeIndex[K]) Equals(key K) rowstore.Selection {
	r.mu.Lock()
	item := r.tree.Get(rangeItem[K]{key: key})
	r.mu.Unlock()
	if item == nil {
		return rowstore.NewSelectionFromSortedIDs(nil)
	}
	return toSelection(*item.(rangeItem[K]).entries.Load(), r.table)
}

// Between returns the live rows whose key lies in [lo, hi] (inclusive); set
// loOK/hiOK false to leave that bound open (unbounded).
func (r *RangeIndex[K]) Between(lo, hi K, loOK, hiOK bool) rowstore.Selection {
	return r.between(lo, hi, loOK, hiOK, true)
}

// BetweenExclusiveHi returns the live rows whose key lies in [lo, hi) — hi
// itself excluded. PrefixIndex.StartsWith needs this: prefixUpperBound
// computes the smallest string not prefixed by the needle, which is a valid
// stored key in its own right and must not be included.
func (r *RangeIndex[K]) BetweenExclusiveHi(lo, hi K, loOK bool) rowstore.Selection {
	return r.between(lo, hi, loOK, true, false)
}

func (r *RangeIndex[K]) between(lo, hi K, loOK, hiOK, hiInclusive bool) rowstore.Selection {
	var collected []Entry
	visit := func(it btree.Item) bool {
		ri := it.(rangeItem[K])
		if hiOK {
			if hiInclusive && ri.key > hi {
				return false
			}
			if !hiInclusive && ri.key >= hi {
				return false
			}
		}
		collected = append(collected, *ri.entries.Load()...)
		return true
	}
	r.mu.Lock()
	switch {
	case loOK:
		r.tree.AscendGreaterOrEqual(rangeItem[K]{key: lo}, visit)
	default:
		r.tree.Ascend(visit)
	}
	r.mu.Unlock()
	return toSelection(collected, r.table)
}
