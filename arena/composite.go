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

package arena

import (
	"fmt"
	"strings"

	"github.com/Thejuampi/memris-sub003/index"
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
)

// compositePath is the synthetic Catalog key for a multi-field
// IndexDeclaration, joining its fields in declaration order. The query
// compiler only ever resolves a Condition's own single path against
// Catalog, so nothing is looked up under this key yet; it exists so the
// built index is at least addressable and inspectable by name, and so a
// future compiler pass that detects a multi-condition AND group matching
// a composite's field set has a ready-made key to probe.
func compositePath(fields []string) string {
	return strings.Join(fields, "+")
}

// builtCompositeIndex mirrors builtIndex for a multi-field index: add/remove
// take the tuple of field values in declaration order.
type builtCompositeIndex struct {
	handle query.IndexHandle
	add    func(values []any, ref rowstore.RowRef)
	remove func(values []any, ref rowstore.RowRef)
}

// newCompositeIndex builds a CompositeHashIndex or CompositeRangeIndex over
// decl's fields. For KindCompositeRange the last field is taken as the
// trailing ordered column and the rest as leading equality columns, the
// same leading-prefix-plus-range shape index.CompositeRangeIndex compiles
// its key for.
func newCompositeIndex(table *rowstore.Table, kind index.Kind, degree int) builtCompositeIndex {
	switch kind {
	case index.KindCompositeRange:
		r := index.NewCompositeRangeIndex(table, degree)
		return builtCompositeIndex{
			handle: query.IndexHandle{Kind: index.KindCompositeRange, Value: r},
			add: func(values []any, ref rowstore.RowRef) {
				leading, trailing := splitTrailing(values)
				r.AddTuple(ref, trailing, leading...)
			},
			remove: func(values []any, ref rowstore.RowRef) {
				leading, trailing := splitTrailing(values)
				r.RemoveTuple(ref, trailing, leading...)
			},
		}
	default: // index.KindCompositeHash
		h := index.NewCompositeHashIndex(table)
		return builtCompositeIndex{
			handle: query.IndexHandle{Kind: index.KindCompositeHash, Value: h},
			add:    func(values []any, ref rowstore.RowRef) { h.AddTuple(ref, values...) },
			remove: func(values []any, ref rowstore.RowRef) { h.RemoveTuple(ref, values...) },
		}
	}
}

// splitTrailing separates a composite range index's leading equality values
// from its trailing value, formatting the trailing value with fmt.Sprint the
// same way for every add/remove. fmt.Sprint output is not fixed-width, so
// the index's lexicographic order follows the trailing column's value order
// only where the formatted values already sort that way (plain strings, or
// non-negative numbers of equal digit count).
func splitTrailing(values []any) (leading []any, trailing string) {
	if len(values) == 0 {
		return nil, ""
	}
	return values[:len(values)-1], fmt.Sprint(values[len(values)-1])
}
