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
	"reflect"
	"strings"

	"github.com/Thejuampi/memris-sub003/query"
)

// foldLower matches rowstore's locale-independent fold so residual
// ignoreCase comparisons agree with the column's own ignoreCase scans.
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

// argAs coerces a caller-supplied condition argument to the column's own Go
// representation (e.g. a user passing a plain int literal for a Short
// column), the same conversion entity.buildColumnIO performs on write.
func argAs[T any](arg any) T {
	var zero T
	v := reflect.ValueOf(arg)
	if v.Type() != reflect.TypeOf(zero) {
		v = v.Convert(reflect.TypeOf(zero))
	}
	return v.Interface().(T)
}

// argAsSlice coerces an IN condition's argument (a slice of caller-supplied
// values, boxed as []any) to []T.
func argAsSlice[T any](arg any) []T {
	v := reflect.ValueOf(arg)
	out := make([]T, v.Len())
	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i)
		if elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		out[i] = argAs[T](elem.Interface())
	}
	return out
}

// matchValue evaluates cond against one already-read column value, used both
// to residual-filter a driver's candidate rows and, wrapped in
// PagedColumn.ScanPredicate, to perform a full-table scan when no index
// backs cond. less is nil for TypeCodes with no defined
// ordering (Bool); ordering operators never reach it there because the
// query compiler rejects them against a non-ordered TypeCode first.
func matchValue[T comparable](v T, present bool, cond query.CompiledCondition, args []any, less func(a, b T) bool) bool {
	switch cond.Operator {
	case query.OpIsNull:
		return !present
	case query.OpIsNotNull:
		return present
	}
	if !present {
		return false
	}
	switch cond.Operator {
	case query.OpEquals:
		return v == argAs[T](args[cond.ArgumentSlot])
	case query.OpNotEquals:
		return v != argAs[T](args[cond.ArgumentSlot])
	case query.OpIn:
		for _, t := range argAsSlice[T](args[cond.ArgumentSlot]) {
			if v == t {
				return true
			}
		}
		return false
	case query.OpGreaterThan:
		return less(argAs[T](args[cond.ArgumentSlot]), v)
	case query.OpGreaterThanEqual:
		return !less(v, argAs[T](args[cond.ArgumentSlot]))
	case query.OpLessThan:
		return less(v, argAs[T](args[cond.ArgumentSlot]))
	case query.OpLessThanEqual:
		return !less(argAs[T](args[cond.ArgumentSlot]), v)
	case query.OpBetween:
		lo := argAs[T](args[cond.ArgumentSlot])
		hi := argAs[T](args[cond.ArgumentSlot+1])
		return !less(v, lo) && !less(hi, v)
	default:
		return false
	}
}

// scanPresence returns the live rows below the column's published watermark
// whose presence bit matches wantPresent, used for IS NULL / IS NOT NULL
// (PagedColumn.ScanPredicate itself never visits an absent cell, so those
// two operators need their own walk).
func scanPresence[T any](col interface {
	Published() uint32
	Read(row uint32) (T, bool)
}, table interface{ IsTombstoned(row uint32) bool }, wantPresent bool, limit int) []uint32 {
	published := col.Published()
	var out []uint32
	for row := uint32(0); row < published; row++ {
		if table.IsTombstoned(row) {
			continue
		}
		_, present := col.Read(row)
		if present == wantPresent {
			out = append(out, row)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}
