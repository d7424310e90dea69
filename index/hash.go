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
)

// HashIndex accelerates equality lookups on a comparable key type. The key
// set (which distinct values exist) lives behind a plain map guarded by a
// mutex, since new distinct keys appear rarely; the posting list for each
// key is an immutable slice behind an atomic pointer, replaced wholesale on
// every add/remove — copy-on-write, so concurrent lookups never block on a
// writer.
type HashIndex[K comparable] struct {
	mu      sync.Mutex
	buckets map[K]*atomic.Pointer[[]Entry]
	table   liveChecker
}

// NewHashIndex builds a hash index over rows of t.
func NewHashIndex[K comparable](t liveChecker) *HashIndex[K] {
	return &HashIndex[K]{buckets: make(map[K]*atomic.Pointer[[]Entry]), table: t}
}

func (h *HashIndex[K]) bucketFor(key K) *atomic.Pointer[[]Entry] {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buckets[key]
	if !ok {
		b = &atomic.Pointer[[]Entry]{}
		empty := []Entry{}
		b.Store(&empty)
		h.buckets[key] = b
	}
	return b
}

// Add records that row (at its current generation) has value key.
func (h *HashIndex[K]) Add(key K, ref rowstore.RowRef) {
	b := h.bucketFor(key)
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

// Remove drops ref's posting under key, if present.
func (h *HashIndex[K]) Remove(key K, ref rowstore.RowRef) {
	h.mu.Lock()
	b, ok := h.buckets[key]
	h.mu.Unlock()
	if !ok {
		return
	}
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

// Lookup returns the live rows currently holding key.
func (h *HashIndex[K]) Lookup(key K) rowstore.Selection {
	h.mu.Lock()
	b, ok := h.buckets[key]
	h.mu.Unlock()
	if !ok {
		return rowstore.NewSelectionFromSortedIDs(nil)
	}
	return toSelection(*b.Load(), h.table)
}

// --- rowstore.IDIndex adapter, for use as a primary-key index ---

// AddID satisfies rowstore.IDIndex for a HashIndex[any]-style primary key
// index: it replaces any existing posting for key rather than appending,
// since an id column has at most one live row per key.
func (h *HashIndex[K]) AddID(key any, ref rowstore.RowRef) {
	k := key.(K)
	b := h.bucketFor(k)
	entry := []Entry{{Row: ref.Row(), Generation: ref.Generation()}}
	b.Store(&entry)
}

// RemoveID clears the posting for key entirely.
func (h *HashIndex[K]) RemoveID(key any) {
	k := key.(K)
	h.mu.Lock()
	b, ok := h.buckets[k]
	h.mu.Unlock()
	if !ok {
		return
	}
	empty := []Entry{}
	b.Store(&empty)
}

// LookupID returns the single live row for key, if any.
func (h *HashIndex[K]) LookupID(key any) (rowstore.RowRef, bool) {
	k := key.(K)
	sel := h.Lookup(k)
	if sel.Empty() {
		return 0, false
	}
	ids := sel.IDs()
	row := ids[0]
	return rowstore.NewRowRef(h.table.GenerationOf(row), row), true
}
