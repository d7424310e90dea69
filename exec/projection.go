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
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
)

// Project reads projection's fields directly off refs' rows, skipping the
// full entity.EntityMaterializer (and its relation resolution) since a
// record-like projection never carries relations. Each returned map is
// keyed by the projected field's registered name; an absent (nullable,
// unset) value is simply omitted from the map rather than stored as nil.
func Project(table *rowstore.Table, refs []rowstore.RowRef, projection []query.ProjectionField) ([]map[string]any, error) {
	readers := make([]func(row uint32) (any, bool), len(projection))
	for i, f := range projection {
		read, err := rawColumnReader(table, f.ColumnIndex, f.TypeCode)
		if err != nil {
			return nil, err
		}
		readers[i] = read
	}

	out := make([]map[string]any, len(refs))
	for i, ref := range refs {
		row := ref.Row()
		record := make(map[string]any, len(projection))
		for j, f := range projection {
			if v, present := readers[j](row); present {
				record[f.Name] = v
			}
		}
		out[i] = record
	}
	return out, nil
}

// GroupCount reads groupBy's column off every ref and returns the live-row
// count per distinct key, the "count-by" half of the grouped-map return
// shape. Rows with an absent (null) group key are counted together under a
// nil key, matching SQL's GROUP BY treatment of NULL as its own bucket.
func GroupCount(table *rowstore.Table, refs []rowstore.RowRef, groupBy *query.CompiledCondition) (map[any]int64, error) {
	read, err := rawColumnReader(table, groupBy.ColumnIndex, groupBy.TypeCode)
	if err != nil {
		return nil, err
	}
	counts := make(map[any]int64)
	for _, ref := range refs {
		v, present := read(ref.Row())
		var key any
		if present {
			key = v
		}
		counts[key]++
	}
	return counts, nil
}

// GroupRows partitions refs by groupBy's column value, the "grouped find"
// half of the grouped-map return shape: each bucket's RowRefs are handed
// back for the caller to materialize (via entity.EntityMaterializer) or
// project (via Project) independently, preserving refs' relative order
// within a bucket.
func GroupRows(table *rowstore.Table, refs []rowstore.RowRef, groupBy *query.CompiledCondition) (map[any][]rowstore.RowRef, error) {
	read, err := rawColumnReader(table, groupBy.ColumnIndex, groupBy.TypeCode)
	if err != nil {
		return nil, err
	}
	groups := make(map[any][]rowstore.RowRef)
	for _, ref := range refs {
		v, present := read(ref.Row())
		var key any
		if present {
			key = v
		}
		groups[key] = append(groups[key], ref)
	}
	return groups, nil
}
