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
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// bitsetPromotionThreshold is the row count above which a Selection
// upgrades from a sorted array to a roaring bitmap: small sets are stored
// as sorted arrays, and above this threshold they upgrade to a bitset.
const bitsetPromotionThreshold = 256

// Selection is the result of a condition: a set of row ids, represented as
// whichever of sorted-array or bitmap is cheaper for its size. It holds row
// ids, not RowRefs — generation is re-validated via Table at the point a
// row id is turned into a RowRef (ToRowRefs), so staleness is always
// caught, never silently carried inside the Selection itself.
type Selection struct {
	small  []uint32 // sorted, used when len(small) <= bitsetPromotionThreshold
	bitmap *roaring.Bitmap
}

// NewSelectionFromSortedIDs builds a Selection from an already-sorted row
// id slice, such as the output of a column scan.
func NewSelectionFromSortedIDs(ids []uint32) Selection {
	if len(ids) > bitsetPromotionThreshold {
		bm := roaring.New()
		bm.AddMany(ids)
		return Selection{bitmap: bm}
	}
	return Selection{small: ids}
}

// Empty reports whether the selection has no rows.
func (s Selection) Empty() bool {
	if s.bitmap != nil {
		return s.bitmap.IsEmpty()
	}
	return len(s.small) == 0
}

// Len returns the number of rows in the selection.
func (s Selection) Len() int {
	if s.bitmap != nil {
		return int(s.bitmap.GetCardinality())
	}
	return len(s.small)
}

// IDs returns the row ids in ascending order.
func (s Selection) IDs() []uint32 {
	if s.bitmap != nil {
		return s.bitmap.ToArray()
	}
	return s.small
}

func (s Selection) asBitmap() *roaring.Bitmap {
	if s.bitmap != nil {
		return s.bitmap
	}
	bm := roaring.New()
	bm.AddMany(s.small)
	return bm
}

// Intersect returns the AND of s and o, picking whichever representation is
// cheaper for the result size.
func (s Selection) Intersect(o Selection) Selection {
	if s.bitmap == nil && o.bitmap == nil {
		return Selection{small: sortedIntersect(s.small, o.small)}
	}
	bm := roaring.And(s.asBitmap(), o.asBitmap())
	return fromBitmap(bm)
}

// Union returns the OR of s and o.
func (s Selection) Union(o Selection) Selection {
	if s.bitmap == nil && o.bitmap == nil {
		merged := sortedUnion(s.small, o.small)
		if len(merged) > bitsetPromotionThreshold {
			bm := roaring.New()
			bm.AddMany(merged)
			return Selection{bitmap: bm}
		}
		return Selection{small: merged}
	}
	bm := roaring.Or(s.asBitmap(), o.asBitmap())
	return fromBitmap(bm)
}

func fromBitmap(bm *roaring.Bitmap) Selection {
	if bm.GetCardinality() <= bitsetPromotionThreshold {
		return Selection{small: bm.ToArray()}
	}
	return Selection{bitmap: bm}
}

func sortedIntersect(a, b []uint32) []uint32 {
	var out []uint32
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

func sortedUnion(a, b []uint32) []uint32 {
	out := make([]uint32, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// ToRowRefs mints a RowRef per live row id in the selection using the
// table's current generation, dropping any row that is no longer live.
func (s Selection) ToRowRefs(t *Table) []RowRef {
	ids := s.IDs()
	out := make([]RowRef, 0, len(ids))
	for _, row := range ids {
		if ref, ok := t.RowRefFor(row); ok {
			out = append(out, ref)
		}
	}
	return out
}

// SortUint32 is used by callers that build an unsorted id slice (e.g. a hash
// index's bucket) before handing it to NewSelectionFromSortedIDs.
func SortUint32(ids []uint32) []uint32 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NewSelectionFromIDs builds a Selection from an unsorted row id slice.
func NewSelectionFromIDs(ids []uint32) Selection {
	return NewSelectionFromSortedIDs(SortUint32(ids))
}
