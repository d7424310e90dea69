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
	"reflect"

	"github.com/Thejuampi/memris-sub003/index"
	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
)

// builtIndex is what newTypedIndex hands back to its caller: the
// type-erased handle the query compiler's Catalog stores, plus the
// type-erased add/remove closures entity.EntitySaver.RegisterIndexMaintainer
// needs, so neither query nor entity ever has to know the index's concrete
// key type.
type builtIndex struct {
	handle query.IndexHandle
	add    func(key any, ref rowstore.RowRef)
	remove func(key any, ref rowstore.RowRef)
}

// coerceKey converts a caller- or reflection-supplied key to T, the same
// conversion entity.buildColumnIO performs on write, so an index's key
// type always matches its column's Go representation regardless of the
// literal type the caller passed in.
func coerceKey[T any](key any) T {
	var zero T
	v := reflect.ValueOf(key)
	if v.Type() != reflect.TypeOf(zero) {
		v = v.Convert(reflect.TypeOf(zero))
	}
	return v.Interface().(T)
}

// newTypedIndex builds one accelerated index of kind over rows of table for
// a column of TypeCode tc, used for every declared single-field secondary
// index (the primary-key index is built by newPrimaryKeyIndex).
func newTypedIndex(table *rowstore.Table, kind index.Kind, tc typecode.TypeCode, degree int) (builtIndex, error) {
	switch kind {
	case index.KindHash:
		return newHashIndex(table, tc)
	case index.KindRange:
		return newRangeIndex(table, tc, degree)
	case index.KindPrefix:
		if tc != typecode.String {
			return builtIndex{}, errors.Wrapf(merrors.ErrUnsupportedType, "prefix index requires a string column, got %v", tc)
		}
		p := index.NewPrefixIndex(table, degree)
		return builtIndex{
			handle: query.IndexHandle{Kind: index.KindPrefix, Value: p},
			add:    func(key any, ref rowstore.RowRef) { p.Add(coerceKey[string](key), ref) },
			remove: func(key any, ref rowstore.RowRef) { p.Remove(coerceKey[string](key), ref) },
		}, nil
	case index.KindSuffix:
		if tc != typecode.String {
			return builtIndex{}, errors.Wrapf(merrors.ErrUnsupportedType, "suffix index requires a string column, got %v", tc)
		}
		s := index.NewSuffixIndex(table, degree)
		return builtIndex{
			handle: query.IndexHandle{Kind: index.KindSuffix, Value: s},
			add:    func(key any, ref rowstore.RowRef) { s.Add(index.ReverseString(coerceKey[string](key)), ref) },
			remove: func(key any, ref rowstore.RowRef) { s.Remove(index.ReverseString(coerceKey[string](key)), ref) },
		}, nil
	default:
		return builtIndex{}, errors.Errorf("arena: index kind %v is not buildable from a single field", kind)
	}
}

func newHashIndex(table *rowstore.Table, tc typecode.TypeCode) (builtIndex, error) {
	switch tc {
	case typecode.Int, typecode.Char:
		return hashIndexOf[int32](table), nil
	case typecode.Long:
		return hashIndexOf[int64](table), nil
	case typecode.Bool:
		return hashIndexOf[bool](table), nil
	case typecode.Byte:
		return hashIndexOf[byte](table), nil
	case typecode.Short:
		return hashIndexOf[int16](table), nil
	case typecode.Float:
		return hashIndexOf[float32](table), nil
	case typecode.Double:
		return hashIndexOf[float64](table), nil
	case typecode.String:
		return hashIndexOf[string](table), nil
	default:
		return builtIndex{}, errors.Wrapf(merrors.ErrUnsupportedType, "hash index: type code %v", tc)
	}
}

func hashIndexOf[K comparable](table *rowstore.Table) builtIndex {
	h := index.NewHashIndex[K](table)
	return builtIndex{
		handle: query.IndexHandle{Kind: index.KindHash, Value: h},
		add:    func(key any, ref rowstore.RowRef) { h.Add(coerceKey[K](key), ref) },
		remove: func(key any, ref rowstore.RowRef) { h.Remove(coerceKey[K](key), ref) },
	}
}

func newRangeIndex(table *rowstore.Table, tc typecode.TypeCode, degree int) (builtIndex, error) {
	switch tc {
	case typecode.Int, typecode.Char:
		return rangeIndexOf[int32](table, degree), nil
	case typecode.Long:
		return rangeIndexOf[int64](table, degree), nil
	case typecode.Byte:
		return rangeIndexOf[byte](table, degree), nil
	case typecode.Short:
		return rangeIndexOf[int16](table, degree), nil
	case typecode.Float:
		return rangeIndexOf[float32](table, degree), nil
	case typecode.Double:
		return rangeIndexOf[float64](table, degree), nil
	case typecode.String:
		return rangeIndexOf[string](table, degree), nil
	default:
		return builtIndex{}, errors.Wrapf(merrors.ErrUnsupportedType, "range index: type code %v", tc)
	}
}

func rangeIndexOf[K index.Ordered](table *rowstore.Table, degree int) builtIndex {
	r := index.NewRangeIndex[K](table, degree)
	return builtIndex{
		handle: query.IndexHandle{Kind: index.KindRange, Value: r},
		add:    func(key any, ref rowstore.RowRef) { r.Add(coerceKey[K](key), ref) },
		remove: func(key any, ref rowstore.RowRef) { r.Remove(coerceKey[K](key), ref) },
	}
}

// newPrimaryKeyIndex always builds a hash index: primary-key lookup is
// always equality, regardless of what the compiler would otherwise pick
// for the id column's TypeCode.
func newPrimaryKeyIndex(table *rowstore.Table, tc typecode.TypeCode) (rowstore.IDIndex, error) {
	built, err := newHashIndex(table, tc)
	if err != nil {
		return nil, err
	}
	idx, ok := built.handle.Value.(rowstore.IDIndex)
	if !ok {
		return nil, errors.New("arena: primary-key hash index does not satisfy rowstore.IDIndex")
	}
	return idx, nil
}
