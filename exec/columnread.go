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
	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
)

// rawColumnReader returns a closure reading columnIndex's raw Go-typed
// value for a row, boxed as any. Shared by order.go (sort keys) and
// projection.go (projection fields, group keys), all of which
// need a value out of a column without going through the full
// entity.EntityMaterializer.
func rawColumnReader(table *rowstore.Table, columnIndex int, tc typecode.TypeCode) (func(row uint32) (any, bool), error) {
	switch tc {
	case typecode.Int, typecode.Char:
		col, ok := rowstore.ColumnAt[int32](table, columnIndex)
		if !ok {
			return nil, errors.Wrapf(merrors.ErrUnsupportedType, "column %d", columnIndex)
		}
		return func(row uint32) (any, bool) { v, p := col.Read(row); return v, p }, nil
	case typecode.Long:
		col, ok := rowstore.ColumnAt[int64](table, columnIndex)
		if !ok {
			return nil, errors.Wrapf(merrors.ErrUnsupportedType, "column %d", columnIndex)
		}
		return func(row uint32) (any, bool) { v, p := col.Read(row); return v, p }, nil
	case typecode.Bool:
		col, ok := rowstore.ColumnAt[bool](table, columnIndex)
		if !ok {
			return nil, errors.Wrapf(merrors.ErrUnsupportedType, "column %d", columnIndex)
		}
		return func(row uint32) (any, bool) { v, p := col.Read(row); return v, p }, nil
	case typecode.Byte:
		col, ok := rowstore.ColumnAt[byte](table, columnIndex)
		if !ok {
			return nil, errors.Wrapf(merrors.ErrUnsupportedType, "column %d", columnIndex)
		}
		return func(row uint32) (any, bool) { v, p := col.Read(row); return v, p }, nil
	case typecode.Short:
		col, ok := rowstore.ColumnAt[int16](table, columnIndex)
		if !ok {
			return nil, errors.Wrapf(merrors.ErrUnsupportedType, "column %d", columnIndex)
		}
		return func(row uint32) (any, bool) { v, p := col.Read(row); return v, p }, nil
	case typecode.Float:
		col, ok := rowstore.ColumnAt[float32](table, columnIndex)
		if !ok {
			return nil, errors.Wrapf(merrors.ErrUnsupportedType, "column %d", columnIndex)
		}
		return func(row uint32) (any, bool) { v, p := col.Read(row); return v, p }, nil
	case typecode.Double:
		col, ok := rowstore.ColumnAt[float64](table, columnIndex)
		if !ok {
			return nil, errors.Wrapf(merrors.ErrUnsupportedType, "column %d", columnIndex)
		}
		return func(row uint32) (any, bool) { v, p := col.Read(row); return v, p }, nil
	case typecode.String:
		col, ok := rowstore.StringColumnAt(table, columnIndex)
		if !ok {
			return nil, errors.Wrapf(merrors.ErrUnsupportedType, "column %d", columnIndex)
		}
		return func(row uint32) (any, bool) { v, p := col.Read(row); return v, p }, nil
	default:
		return nil, errors.Wrapf(merrors.ErrUnsupportedType, "type code %v has no column representation", tc)
	}
}
