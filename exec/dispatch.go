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
	"strings"

	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
)

// typedOps is the pair of closures bound to one compiled condition's column
// at executor-build time (the one place per condition where TypeCode is
// switched on), mirroring entity.buildColumnIO's columnIO: scan performs a
// full-table residual-predicate scan, match evaluates the same predicate against a
// single already-known row (used to residual-filter a driver's candidates).
type typedOps struct {
	scan  func(args []any, limit int) []uint32
	match func(args []any, row uint32) bool
}

// buildTypedOps resolves cond's column (at columnIndex of table, typed tc)
// into a typedOps. Called once per CompiledCondition when an Executor is
// built.
func buildTypedOps(table *rowstore.Table, columnIndex int, tc typecode.TypeCode, cond query.CompiledCondition) (typedOps, error) {
	switch tc {
	case typecode.Int, typecode.Char:
		return ops(table, columnIndex, cond, func(a, b int32) bool { return a < b })
	case typecode.Long:
		return ops(table, columnIndex, cond, func(a, b int64) bool { return a < b })
	case typecode.Bool:
		return ops(table, columnIndex, cond, nil)
	case typecode.Byte:
		return ops(table, columnIndex, cond, func(a, b byte) bool { return a < b })
	case typecode.Short:
		return ops(table, columnIndex, cond, func(a, b int16) bool { return a < b })
	case typecode.Float:
		return ops(table, columnIndex, cond, func(a, b float32) bool { return a < b })
	case typecode.Double:
		return ops(table, columnIndex, cond, func(a, b float64) bool { return a < b })
	case typecode.String:
		return stringOps(table, columnIndex, cond)
	default:
		return typedOps{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: type code %v has no executable ops", columnIndex, tc)
	}
}

func ops[T comparable](table *rowstore.Table, columnIndex int, cond query.CompiledCondition, less func(a, b T) bool) (typedOps, error) {
	col, ok := rowstore.ColumnAt[T](table, columnIndex)
	if !ok {
		return typedOps{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected %T column", columnIndex, *new(T))
	}
	return typedOps{
		scan: func(args []any, limit int) []uint32 {
			if cond.Operator == query.OpIsNull {
				return scanPresence[T](col, table, false, limit)
			}
			if cond.Operator == query.OpIsNotNull {
				return scanPresence[T](col, table, true, limit)
			}
			return col.ScanPredicate(func(v T) bool { return matchValue(v, true, cond, args, less) }, limit)
		},
		match: func(args []any, row uint32) bool {
			v, present := col.Read(row)
			return matchValue(v, present, cond, args, less)
		},
	}, nil
}

func stringOps(table *rowstore.Table, columnIndex int, cond query.CompiledCondition) (typedOps, error) {
	col, ok := rowstore.StringColumnAt(table, columnIndex)
	if !ok {
		return typedOps{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected string column", columnIndex)
	}
	less := func(a, b string) bool { return a < b }

	switch cond.Operator {
	case query.OpStartsWith:
		return typedOps{
			scan:  func(args []any, limit int) []uint32 { return col.ScanStartsWith(argAs[string](args[cond.ArgumentSlot]), cond.IgnoreCase, limit) },
			match: func(args []any, row uint32) bool { return matchStringAffix(col, row, argAs[string](args[cond.ArgumentSlot]), cond.IgnoreCase, strStartsWith) },
		}, nil
	case query.OpEndsWith:
		return typedOps{
			scan:  func(args []any, limit int) []uint32 { return col.ScanEndsWith(argAs[string](args[cond.ArgumentSlot]), cond.IgnoreCase, limit) },
			match: func(args []any, row uint32) bool { return matchStringAffix(col, row, argAs[string](args[cond.ArgumentSlot]), cond.IgnoreCase, strEndsWith) },
		}, nil
	case query.OpContains:
		return typedOps{
			scan:  func(args []any, limit int) []uint32 { return col.ScanContains(argAs[string](args[cond.ArgumentSlot]), cond.IgnoreCase, limit) },
			match: func(args []any, row uint32) bool { return matchStringAffix(col, row, argAs[string](args[cond.ArgumentSlot]), cond.IgnoreCase, strContains) },
		}, nil
	case query.OpEquals:
		if cond.IgnoreCase {
			return typedOps{
				scan:  func(args []any, limit int) []uint32 { return col.ScanIgnoreCaseEquals(argAs[string](args[cond.ArgumentSlot]), limit) },
				match: func(args []any, row uint32) bool {
					v, present := col.Read(row)
					return present && foldLower(v) == foldLower(argAs[string](args[cond.ArgumentSlot]))
				},
			}, nil
		}
		fallthrough
	default:
		return ops[string](table, columnIndex, cond, less)
	}
}

func strStartsWith(v, needle string) bool { return strings.HasPrefix(v, needle) }
func strEndsWith(v, needle string) bool   { return strings.HasSuffix(v, needle) }
func strContains(v, needle string) bool   { return strings.Contains(v, needle) }

func matchStringAffix(col *rowstore.StringColumn, row uint32, needle string, ignoreCase bool, pred func(v, needle string) bool) bool {
	v, present := col.Read(row)
	if !present {
		return false
	}
	if ignoreCase {
		return pred(foldLower(v), foldLower(needle))
	}
	return pred(v, needle)
}
