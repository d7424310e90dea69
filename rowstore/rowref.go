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

// Package rowstore implements the columnar table engine: paged primitive
// columns, a per-row allocator with generation-stamped slots, tombstones,
// per-row sequence locks, and typed scans.
package rowstore

// RowRef is a packed reference to a row slot: high 32 bits are the
// generation the slot had when the ref was minted, low 32 bits are the row
// id. Every scan returns RowRefs, never raw row ids; every dereference
// re-checks the generation against the table's current value for that slot.
type RowRef uint64

// NewRowRef packs a (generation, row) pair into a RowRef.
func NewRowRef(generation uint32, row uint32) RowRef {
	return RowRef(uint64(generation)<<32 | uint64(row))
}

// Row returns the row id component.
func (r RowRef) Row() uint32 { return uint32(r) }

// Generation returns the generation component.
func (r RowRef) Generation() uint32 { return uint32(r >> 32) }
