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
	"testing"

	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/stretchr/testify/require"
)

func TestRawColumnReaderReadsLongColumn(t *testing.T) {
	tbl := rowstore.NewTable("raw-column-fixture", 16, 2, nil)
	longCol, err := tbl.AddColumn("Amount", typecode.Long, false)
	require.NoError(t, err)
	ref, err := tbl.Allocate()
	require.NoError(t, err)
	row := ref.Row()
	v := tbl.BeginWrite(row)
	col, _ := rowstore.ColumnAt[int64](tbl, longCol)
	require.NoError(t, col.Set(row, int64(42)))
	tbl.EndWrite(row, v)
	tbl.PublishAll(row)

	read, err := rawColumnReader(tbl, longCol, typecode.Long)
	require.NoError(t, err)
	got, present := read(row)
	require.True(t, present)
	require.Equal(t, int64(42), got)
}

func TestRawColumnReaderRejectsTypeCodeMismatch(t *testing.T) {
	tbl := rowstore.NewTable("raw-column-fixture", 16, 2, nil)
	longCol, err := tbl.AddColumn("Amount", typecode.Long, false)
	require.NoError(t, err)

	_, err = rawColumnReader(tbl, longCol, typecode.Int)
	require.Error(t, err, "Amount is a Long column, not an Int column")
}
