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

package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompositeHashIndexMatchesExactTuple(t *testing.T) {
	tbl := newFakeTable()
	c := NewCompositeHashIndex(tbl)

	c.AddTuple(tbl.refFor(1), "tenant-a", "active")
	c.AddTuple(tbl.refFor(2), "tenant-a", "closed")
	c.AddTuple(tbl.refFor(3), "tenant-b", "active")

	require.Equal(t, []uint32{1}, c.LookupTuple("tenant-a", "active").IDs())
	require.True(t, c.LookupTuple("tenant-a", "missing").Empty())

	c.RemoveTuple(tbl.refFor(1), "tenant-a", "active")
	require.True(t, c.LookupTuple("tenant-a", "active").Empty())
}

func TestCompositeHashIndexFieldsWithSeparatorDoNotCollide(t *testing.T) {
	tbl := newFakeTable()
	c := NewCompositeHashIndex(tbl)

	// "a|b" joined naively would collide with ("a", "b") under a plain
	// separator; compositeKey's length-prefix encoding must keep them apart.
	c.AddTuple(tbl.refFor(1), "a|b")
	c.AddTuple(tbl.refFor(2), "a", "b")

	require.Equal(t, []uint32{1}, c.LookupTuple("a|b").IDs())
	require.Equal(t, []uint32{2}, c.LookupTuple("a", "b").IDs())
}

func TestCompositeRangeIndexLookupRangeWithinPrefix(t *testing.T) {
	tbl := newFakeTable()
	c := NewCompositeRangeIndex(tbl, testDegree)

	c.AddTuple(tbl.refFor(1), "010", "tenant-a")
	c.AddTuple(tbl.refFor(2), "020", "tenant-a")
	c.AddTuple(tbl.refFor(3), "030", "tenant-a")
	c.AddTuple(tbl.refFor(4), "020", "tenant-b") // same trailing value, different tenant

	sel := c.LookupRange("010", "020", "tenant-a")
	require.ElementsMatch(t, []uint32{1, 2}, sel.IDs())
}

func TestCompositeRangeIndexRemoveDropsPosting(t *testing.T) {
	tbl := newFakeTable()
	c := NewCompositeRangeIndex(tbl, testDegree)
	c.AddTuple(tbl.refFor(1), "005", "tenant-a")
	c.RemoveTuple(tbl.refFor(1), "005", "tenant-a")
	require.True(t, c.LookupRange("000", "999", "tenant-a").Empty())
}
