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

package rowstore

import (
	"strings"
	"sync/atomic"

	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/pkg/errors"
)

// page is a fixed-size primitive array allocated lazily on first write.
type page[T any] struct {
	values []T
}

// PagedColumn is an append-mostly typed column: an ordered sequence of
// lazily-allocated pages plus an optional present bitmap for nullable
// columns and a monotonic published watermark bounding what scans may see.
type PagedColumn[T any] struct {
	pageSize  int
	present   *atomicBitset // nil when the column is not nullable
	pages     []atomic.Pointer[page[T]]
	published atomic.Uint32
	tomb      *atomicBitset // the owning table's tombstone bitmap, shared
}

// NewPagedColumn allocates the page-pointer index for up to maxPages pages
// of pageSize rows each. Pages themselves are allocated lazily by set.
func NewPagedColumn[T any](pageSize, maxPages int, nullable bool, tomb *atomicBitset) *PagedColumn[T] {
	c := &PagedColumn[T]{
		pageSize: pageSize,
		pages:    make([]atomic.Pointer[page[T]], maxPages),
		tomb:     tomb,
	}
	if nullable {
		c.present = newAtomicBitset(pageSize * maxPages)
	}
	return c
}

func (c *PagedColumn[T]) pageOf(row uint32) (int, int) {
	idx := int(row) / c.pageSize
	off := int(row) % c.pageSize
	return idx, off
}

// set ensures the page containing row exists (CAS-allocated if absent),
// writes value, and if nullable marks the present bit. It never advances
// the published watermark.
func (c *PagedColumn[T]) set(row uint32, value T) error {
	idx, off := c.pageOf(row)
	if idx >= len(c.pages) {
		return errors.Wrapf(merrors.ErrCapacityExceeded, "column has room for %d pages, row %d needs page %d", len(c.pages), row, idx)
	}
	p := c.pages[idx].Load()
	if p == nil {
		fresh := &page[T]{values: make([]T, c.pageSize)}
		if c.pages[idx].CompareAndSwap(nil, fresh) {
			p = fresh
		} else {
			p = c.pages[idx].Load()
		}
	}
	p.values[off] = value
	if c.present != nil {
		c.present.set(row)
	}
	return nil
}

// setNull clears the present bit for row without touching the value slot.
func (c *PagedColumn[T]) setNull(row uint32) {
	if c.present != nil {
		c.present.clear(row)
	}
}

// publish monotonically advances the published watermark to upTo. Callers
// must have completed every set for rows < upTo before calling this; the
// atomic compare-and-swap gives the release-store ordering this relies on.
func (c *PagedColumn[T]) publish(upTo uint32) {
	for {
		cur := c.published.Load()
		if upTo <= cur {
			return
		}
		if c.published.CompareAndSwap(cur, upTo) {
			return
		}
	}
}

// Published returns the exclusive upper bound of rows visible to scans.
func (c *PagedColumn[T]) Published() uint32 { return c.published.Load() }

// read performs an unconditional primitive read. Callers guard with the
// seqlock or a generation check as appropriate; read itself does neither.
func (c *PagedColumn[T]) read(row uint32) (value T, present bool) {
	idx, off := c.pageOf(row)
	p := c.pages[idx].Load()
	if p == nil {
		var zero T
		return zero, false
	}
	if c.present != nil && !c.present.get(row) {
		var zero T
		return zero, false
	}
	return p.values[off], true
}

func (c *PagedColumn[T]) liveAndBefore(row uint32, published uint32) bool {
	return row < published && (c.tomb == nil || !c.tomb.get(row))
}

// scanEquals iterates [0, published) skipping tombstoned rows, returning
// the row ids whose value equals target.
func (c *PagedColumn[T]) scanEquals(target T, eq func(a, b T) bool, limit int) []uint32 {
	published := c.published.Load()
	var out []uint32
	for row := uint32(0); row < published; row++ {
		if !c.liveAndBefore(row, published) {
			continue
		}
		v, present := c.read(row)
		if !present {
			continue
		}
		if eq(v, target) {
			out = append(out, row)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// scanBetween iterates [0, published) returning rows whose value is within
// [lo, hi] inclusive according to less.
func (c *PagedColumn[T]) scanBetween(lo, hi T, less func(a, b T) bool, limit int) []uint32 {
	published := c.published.Load()
	var out []uint32
	for row := uint32(0); row < published; row++ {
		if !c.liveAndBefore(row, published) {
			continue
		}
		v, present := c.read(row)
		if !present {
			continue
		}
		if !less(v, lo) && !less(hi, v) {
			out = append(out, row)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// scanIn returns rows whose value matches any of targets.
func (c *PagedColumn[T]) scanIn(targets []T, eq func(a, b T) bool, limit int) []uint32 {
	published := c.published.Load()
	var out []uint32
	for row := uint32(0); row < published; row++ {
		if !c.liveAndBefore(row, published) {
			continue
		}
		v, present := c.read(row)
		if !present {
			continue
		}
		for _, t := range targets {
			if eq(v, t) {
				out = append(out, row)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ScanPredicate is a generic row-at-a-time scan used by StringColumn's
// ScanStartsWith, ScanEndsWith, ScanContains and ScanIgnoreCaseEquals, and
// by the execution kernel's typed full-table scan when no index serves a
// condition.
func (c *PagedColumn[T]) ScanPredicate(pred func(v T) bool, limit int) []uint32 {
	published := c.published.Load()
	var out []uint32
	for row := uint32(0); row < published; row++ {
		if !c.liveAndBefore(row, published) {
			continue
		}
		v, present := c.read(row)
		if !present {
			continue
		}
		if pred(v) {
			out = append(out, row)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Read exposes read for callers outside the package that already hold the
// appropriate consistency guard (seqlock readConsistent or a watermark
// check), e.g. the execution kernel's residual-condition evaluator.
func (c *PagedColumn[T]) Read(row uint32) (T, bool) { return c.read(row) }

// Set exposes set for the entity saver, which writes within beginWrite/
// endWrite.
func (c *PagedColumn[T]) Set(row uint32, value T) error { return c.set(row, value) }

// SetNull exposes setNull for the entity saver.
func (c *PagedColumn[T]) SetNull(row uint32) { c.setNull(row) }

// Publish exposes publish for the table's insert/update path.
func (c *PagedColumn[T]) Publish(upTo uint32) { c.publish(upTo) }

// foldLower is the locale-independent lower-case fold used by
// scanIgnoreCaseEquals; it avoids strings.ToLower's Unicode-aware special
// casing so behavior is stable across locales.
func foldLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
