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

package entity

import (
	"reflect"

	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
)

// GoTypeFor returns the Go representation used for a TypeCode's column,
// matching the case labels in buildColumnIO. Exported for the query/exec
// packages, which coerce caller-supplied condition arguments to a column's
// concrete representation before comparing or indexing.
func GoTypeFor(tc typecode.TypeCode) reflect.Type {
	switch tc {
	case typecode.Int:
		return reflect.TypeOf(int(0))
	case typecode.Long:
		return reflect.TypeOf(int64(0))
	case typecode.Bool:
		return reflect.TypeOf(false)
	case typecode.Byte:
		return reflect.TypeOf(byte(0))
	case typecode.Short:
		return reflect.TypeOf(int16(0))
	case typecode.Char:
		return reflect.TypeOf(rune(0))
	case typecode.Float:
		return reflect.TypeOf(float32(0))
	case typecode.Double:
		return reflect.TypeOf(float64(0))
	case typecode.String:
		return reflect.TypeOf("")
	default:
		return nil
	}
}

// columnIO is a pair of closures bound to one concrete column at saver/
// materializer build time: the one place per field where a TypeCode is
// switched on to pick a Go type, so steady-state reads/writes are a direct
// call through these closures rather than a repeated type switch.
type columnIO struct {
	write func(row uint32, v reflect.Value, isNull bool) error
	read  func(row uint32) (reflect.Value, bool)
}

// buildColumnIO resolves column idx of t (whose TypeCode must be tc) into a
// columnIO. Called once per field during EntitySaver/EntityMaterializer
// construction.
func buildColumnIO(t *rowstore.Table, idx int, tc typecode.TypeCode) (columnIO, error) {
	switch tc {
	case typecode.Int:
		col, ok := rowstore.ColumnAt[int32](t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected int32 column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, int32(v.Int()))
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(int(v)), ok
			},
		}, nil
	case typecode.Long:
		col, ok := rowstore.ColumnAt[int64](t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected int64 column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, v.Int())
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(v), ok
			},
		}, nil
	case typecode.Bool:
		col, ok := rowstore.ColumnAt[bool](t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected bool column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, v.Bool())
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(v), ok
			},
		}, nil
	case typecode.Byte:
		col, ok := rowstore.ColumnAt[byte](t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected byte column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, byte(v.Uint()))
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(v), ok
			},
		}, nil
	case typecode.Short:
		col, ok := rowstore.ColumnAt[int16](t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected int16 column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, int16(v.Int()))
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(v), ok
			},
		}, nil
	case typecode.Char:
		col, ok := rowstore.ColumnAt[rune](t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected rune column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, int32(v.Int()))
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(v), ok
			},
		}, nil
	case typecode.Float:
		col, ok := rowstore.ColumnAt[float32](t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected float32 column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, float32(v.Float()))
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(v), ok
			},
		}, nil
	case typecode.Double:
		col, ok := rowstore.ColumnAt[float64](t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected float64 column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, v.Float())
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(v), ok
			},
		}, nil
	case typecode.String:
		col, ok := rowstore.StringColumnAt(t, idx)
		if !ok {
			return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: expected string column", idx)
		}
		return columnIO{
			write: func(row uint32, v reflect.Value, isNull bool) error {
				if isNull {
					col.SetNull(row)
					return nil
				}
				return col.Set(row, v.String())
			},
			read: func(row uint32) (reflect.Value, bool) {
				v, ok := col.Read(row)
				return reflect.ValueOf(v), ok
			},
		}, nil
	default:
		return columnIO{}, errors.Wrapf(merrors.ErrUnsupportedType, "column %d: type code %v has no Go representation", idx, tc)
	}
}
