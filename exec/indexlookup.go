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
	"github.com/Thejuampi/memris-sub003/index"
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
)

// indexSelection probes handle for cond's operator/argument, returning a
// (possibly boundary-inclusive) candidate Selection. The kernel always
// residual-rechecks every condition against its own matchValue afterward
// (kernel.go), so an index returning a superset here — e.g. RangeIndex's
// inclusive Between standing in for a strict GREATER_THAN — is harmless.
func indexSelection(handle query.IndexHandle, cond query.CompiledCondition, args []any) (rowstore.Selection, error) {
	switch handle.Kind {
	case index.KindHash:
		return hashSelectionFor(handle.Value, cond, args)
	case index.KindRange:
		return rangeSelectionFor(handle.Value, cond, args)
	case index.KindPrefix:
		p, ok := handle.Value.(*index.PrefixIndex)
		if !ok {
			return rowstore.Selection{}, errors.New("exec: prefix index handle has wrong concrete type")
		}
		return p.StartsWith(argAs[string](args[cond.ArgumentSlot])), nil
	case index.KindSuffix:
		s, ok := handle.Value.(*index.SuffixIndex)
		if !ok {
			return rowstore.Selection{}, errors.New("exec: suffix index handle has wrong concrete type")
		}
		return s.EndsWith(argAs[string](args[cond.ArgumentSlot])), nil
	default:
		return rowstore.Selection{}, errors.Errorf("exec: index kind %v is not addressable by a single condition", handle.Kind)
	}
}

func hashSelectionFor(v any, cond query.CompiledCondition, args []any) (rowstore.Selection, error) {
	switch cond.TypeCode {
	case typecode.Int, typecode.Char:
		return hashSelection[int32](v, cond, args)
	case typecode.Long:
		return hashSelection[int64](v, cond, args)
	case typecode.Bool:
		return hashSelection[bool](v, cond, args)
	case typecode.Byte:
		return hashSelection[byte](v, cond, args)
	case typecode.Short:
		return hashSelection[int16](v, cond, args)
	case typecode.Float:
		return hashSelection[float32](v, cond, args)
	case typecode.Double:
		return hashSelection[float64](v, cond, args)
	case typecode.String:
		return hashSelection[string](v, cond, args)
	default:
		return rowstore.Selection{}, errors.Errorf("exec: type code %v has no hash index representation", cond.TypeCode)
	}
}

func hashSelection[K comparable](v any, cond query.CompiledCondition, args []any) (rowstore.Selection, error) {
	idx, ok := v.(*index.HashIndex[K])
	if !ok {
		return rowstore.Selection{}, errors.New("exec: hash index handle has wrong key type")
	}
	switch cond.Operator {
	case query.OpEquals:
		return idx.Lookup(argAs[K](args[cond.ArgumentSlot])), nil
	case query.OpIn:
		targets := argAsSlice[K](args[cond.ArgumentSlot])
		var sel rowstore.Selection
		for i, t := range targets {
			if i == 0 {
				sel = idx.Lookup(t)
				continue
			}
			sel = sel.Union(idx.Lookup(t))
		}
		return sel, nil
	default:
		return rowstore.Selection{}, errors.Errorf("exec: hash index does not support operator %v", cond.Operator)
	}
}

// hashLookup probes a type-erased hash index handle directly for key,
// without a CompiledCondition/argument-vector detour. Used by joins.go to
// resolve a OneToMany/ManyToMany relation's FK value against an
// index.HashIndex registered for the child's FK column.
func hashLookup(handle query.IndexHandle, tc typecode.TypeCode, key any) (rowstore.Selection, error) {
	switch tc {
	case typecode.Int, typecode.Char:
		return hashLookupAs[int32](handle.Value, key)
	case typecode.Long:
		return hashLookupAs[int64](handle.Value, key)
	case typecode.Bool:
		return hashLookupAs[bool](handle.Value, key)
	case typecode.Byte:
		return hashLookupAs[byte](handle.Value, key)
	case typecode.Short:
		return hashLookupAs[int16](handle.Value, key)
	case typecode.Float:
		return hashLookupAs[float32](handle.Value, key)
	case typecode.Double:
		return hashLookupAs[float64](handle.Value, key)
	case typecode.String:
		return hashLookupAs[string](handle.Value, key)
	default:
		return rowstore.Selection{}, errors.Errorf("exec: type code %v has no hash index representation", tc)
	}
}

func hashLookupAs[K comparable](v any, key any) (rowstore.Selection, error) {
	idx, ok := v.(*index.HashIndex[K])
	if !ok {
		return rowstore.Selection{}, errors.New("exec: hash index handle has wrong key type")
	}
	return idx.Lookup(argAs[K](key)), nil
}

func rangeSelectionFor(v any, cond query.CompiledCondition, args []any) (rowstore.Selection, error) {
	switch cond.TypeCode {
	case typecode.Int, typecode.Char:
		return rangeSelection[int32](v, cond, args)
	case typecode.Long:
		return rangeSelection[int64](v, cond, args)
	case typecode.Byte:
		return rangeSelection[byte](v, cond, args)
	case typecode.Short:
		return rangeSelection[int16](v, cond, args)
	case typecode.Float:
		return rangeSelection[float32](v, cond, args)
	case typecode.Double:
		return rangeSelection[float64](v, cond, args)
	case typecode.String:
		return rangeSelection[string](v, cond, args)
	default:
		return rowstore.Selection{}, errors.Errorf("exec: type code %v has no range index representation", cond.TypeCode)
	}
}

func rangeSelection[K index.Ordered](v any, cond query.CompiledCondition, args []any) (rowstore.Selection, error) {
	idx, ok := v.(*index.RangeIndex[K])
	if !ok {
		return rowstore.Selection{}, errors.New("exec: range index handle has wrong key type")
	}
	var zero K
	switch cond.Operator {
	case query.OpEquals:
		return idx.Equals(argAs[K](args[cond.ArgumentSlot])), nil
	case query.OpGreaterThan, query.OpGreaterThanEqual:
		return idx.Between(argAs[K](args[cond.ArgumentSlot]), zero, true, false), nil
	case query.OpLessThan, query.OpLessThanEqual:
		return idx.Between(zero, argAs[K](args[cond.ArgumentSlot]), false, true), nil
	case query.OpBetween:
		lo := argAs[K](args[cond.ArgumentSlot])
		hi := argAs[K](args[cond.ArgumentSlot+1])
		return idx.Between(lo, hi, true, true), nil
	default:
		return rowstore.Selection{}, errors.Errorf("exec: range index does not support operator %v", cond.Operator)
	}
}
