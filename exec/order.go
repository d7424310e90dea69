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

package exec

import (
	"container/heap"
	"sort"

	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
)

type orderedRow struct {
	ref     rowstore.RowRef
	key     any
	present bool
}

func valueLess(a, b any, tc typecode.TypeCode) bool {
	switch tc {
	case typecode.String:
		return a.(string) < b.(string)
	case typecode.Float:
		return a.(float32) < b.(float32)
	case typecode.Double:
		return a.(float64) < b.(float64)
	case typecode.Byte:
		return a.(byte) < b.(byte)
	case typecode.Short:
		return a.(int16) < b.(int16)
	case typecode.Long:
		return a.(int64) < b.(int64)
	case typecode.Bool:
		return !a.(bool) && b.(bool)
	default: // Int, Char
		return a.(int32) < b.(int32)
	}
}

// sortsBefore reports whether a must appear before b in the final ordering,
// nulls-first for ASC and nulls-last for DESC.
func sortsBefore(a, b orderedRow, desc bool, tc typecode.TypeCode) bool {
	switch {
	case a.present && b.present:
		if desc {
			return valueLess(b.key, a.key, tc)
		}
		return valueLess(a.key, b.key, tc)
	case !a.present && !b.present:
		return false
	case !a.present:
		return !desc
	default: // !b.present
		return desc
	}
}

// worstFirstHeap is a container/heap max-heap over "worseness": its root is
// always the currently-kept row that would be the first one evicted, so
// OrderAndLimit can maintain a running top-K in O(N log K).
type worstFirstHeap struct {
	rows []orderedRow
	desc bool
	tc   typecode.TypeCode
}

func (h *worstFirstHeap) Len() int { return len(h.rows) }
func (h *worstFirstHeap) Less(i, j int) bool {
	// rows[i] belongs closer to the root (is worse, evicted first) when
	// rows[j] would sort before rows[i] in the final ordering.
	return sortsBefore(h.rows[j], h.rows[i], h.desc, h.tc)
}
func (h *worstFirstHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *worstFirstHeap) Push(x any)    { h.rows = append(h.rows, x.(orderedRow)) }
func (h *worstFirstHeap) Pop() any {
	old := h.rows
	n := len(old)
	item := old[n-1]
	h.rows = old[:n-1]
	return item
}

// OrderAndLimit sorts refs by order's column (stable, nulls-first for ASC /
// nulls-last for DESC) and truncates to limit. When both order and a
// positive limit are given, a bounded worstFirstHeap keeps this O(N log K)
// instead of sorting the full candidate set.
func OrderAndLimit(table *rowstore.Table, refs []rowstore.RowRef, order *query.CompiledOrder, limit int) ([]rowstore.RowRef, error) {
	if order == nil {
		if limit > 0 && limit < len(refs) {
			refs = refs[:limit]
		}
		return refs, nil
	}

	read, err := rawColumnReader(table, order.ColumnIndex, order.TypeCode)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit >= len(refs) {
		rows := make([]orderedRow, len(refs))
		for i, ref := range refs {
			v, present := read(ref.Row())
			rows[i] = orderedRow{ref: ref, key: v, present: present}
		}
		sort.SliceStable(rows, func(i, j int) bool { return sortsBefore(rows[i], rows[j], order.Desc, order.TypeCode) })
		out := make([]rowstore.RowRef, len(rows))
		for i, r := range rows {
			out[i] = r.ref
		}
		if limit > 0 && limit < len(out) {
			out = out[:limit]
		}
		return out, nil
	}

	h := &worstFirstHeap{desc: order.Desc, tc: order.TypeCode}
	heap.Init(h)
	for _, ref := range refs {
		v, present := read(ref.Row())
		row := orderedRow{ref: ref, key: v, present: present}
		if h.Len() < limit {
			heap.Push(h, row)
			continue
		}
		if sortsBefore(row, h.rows[0], order.Desc, order.TypeCode) {
			heap.Pop(h)
			heap.Push(h, row)
		}
	}
	sort.SliceStable(h.rows, func(i, j int) bool { return sortsBefore(h.rows[i], h.rows[j], order.Desc, order.TypeCode) })
	out := make([]rowstore.RowRef, len(h.rows))
	for i, r := range h.rows {
		out[i] = r.ref
	}
	return out, nil
}
