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

import "github.com/Thejuampi/memris-sub003/rowstore"

// fakeTable is a minimal liveChecker for index tests: every row starts live
// at generation 1, and tombstone/bump let a test simulate a delete or an
// update that reused the row at a new generation.
type fakeTable struct {
	generation map[uint32]uint32
	tombstoned map[uint32]bool
}

func newFakeTable() *fakeTable {
	return &fakeTable{generation: make(map[uint32]uint32), tombstoned: make(map[uint32]bool)}
}

func (f *fakeTable) genOf(row uint32) uint32 {
	if g, ok := f.generation[row]; ok {
		return g
	}
	return 1
}

func (f *fakeTable) GenerationOf(row uint32) uint32 { return f.genOf(row) }
func (f *fakeTable) IsTombstoned(row uint32) bool   { return f.tombstoned[row] }

func (f *fakeTable) refFor(row uint32) rowstore.RowRef {
	return rowstore.NewRowRef(f.genOf(row), row)
}

func (f *fakeTable) tombstone(row uint32) { f.tombstoned[row] = true }

func (f *fakeTable) bumpGeneration(row uint32) {
	f.generation[row] = f.genOf(row) + 1
	f.tombstoned[row] = false
}
