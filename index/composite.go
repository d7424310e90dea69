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
	"fmt"
	"strings"

	"github.com/Thejuampi/memris-sub003/rowstore"
)

// compositeKey joins a fixed-arity tuple of column values into one
// comparable string key, using a separator that cannot appear inside a
// formatted field because every field is length-prefixed.
func compositeKey(parts ...any) string {
	var b strings.Builder
	for _, p := range parts {
		s := fmt.Sprint(p)
		fmt.Fprintf(&b, "%d:%s|", len(s), s)
	}
	return b.String()
}

// CompositeHashIndex accelerates equality queries over an AND of several
// columns (e.g. findByTenantIdAndStatus), by hashing the tuple into a single
// string key over a plain HashIndex. Built at registration from a
// multi-field index declaration; the query compiler matches indexes one
// property path at a time and does not route conditions to it.
type CompositeHashIndex struct {
	*HashIndex[string]
}

// NewCompositeHashIndex builds a composite equality index over rows of t.
func NewCompositeHashIndex(t liveChecker) *CompositeHashIndex {
	return &CompositeHashIndex{HashIndex: NewHashIndex[string](t)}
}

// AddTuple records ref under the tuple of column values.
func (c *CompositeHashIndex) AddTuple(ref rowstore.RowRef, values ...any) {
	c.Add(compositeKey(values...), ref)
}

// RemoveTuple drops ref's posting under the tuple of column values.
func (c *CompositeHashIndex) RemoveTuple(ref rowstore.RowRef, values ...any) {
	c.Remove(compositeKey(values...), ref)
}

// LookupTuple returns the live rows matching the exact tuple of values.
func (c *CompositeHashIndex) LookupTuple(values ...any) rowstore.Selection {
	return c.Lookup(compositeKey(values...))
}

// CompositeRangeIndex accelerates a leading-prefix-equality-plus-trailing-
// range query (e.g. findByTenantIdAndCreatedAtBetween), by sorting tuples
// lexicographically on a length-prefixed encoding of their leading columns
// followed by a sortable encoding of the trailing ordered column, so a range
// scan over the trailing column within a fixed prefix is one contiguous
// B-tree range.
type CompositeRangeIndex struct {
	*RangeIndex[string]
}

// NewCompositeRangeIndex builds a composite range index over rows of t.
func NewCompositeRangeIndex(t liveChecker, degree int) *CompositeRangeIndex {
	return &CompositeRangeIndex{RangeIndex: NewRangeIndex[string](t, degree)}
}

// leadingKey encodes the equality-constrained leading columns plus a
// trailing sortable value into one string key. trailing must already be in
// a byte-order-preserving form (e.g. typecode.EncodeFloat64 for doubles, or
// a fixed-width decimal string for integers).
func leadingKey(trailing string, equalityValues ...any) string {
	return compositeKey(equalityValues...) + trailing
}

// AddTuple records ref under the leading equality values plus trailing
// sortable value.
func (c *CompositeRangeIndex) AddTuple(ref rowstore.RowRef, trailing string, equalityValues ...any) {
	c.Add(leadingKey(trailing, equalityValues...), ref)
}

// RemoveTuple drops ref's posting under the leading equality values plus
// trailing sortable value.
func (c *CompositeRangeIndex) RemoveTuple(ref rowstore.RowRef, trailing string, equalityValues ...any) {
	c.Remove(leadingKey(trailing, equalityValues...), ref)
}

// LookupRange returns the live rows matching equalityValues exactly on the
// leading columns and whose trailing column falls in [loTrailing, hiTrailing].
func (c *CompositeRangeIndex) LookupRange(loTrailing, hiTrailing string, equalityValues ...any) rowstore.Selection {
	prefix := compositeKey(equalityValues...)
	return c.Between(prefix+loTrailing, prefix+hiTrailing, true, true)
}
