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
	"testing"

	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID     int64
	Name   string
	Status string
}

// fakeIDIndex is a minimal rowstore.IDIndex for saver tests: a plain map,
// no generation checks, since the saver tests below only ever query live
// rows.
type fakeIDIndex struct {
	byID map[any]rowstore.RowRef
}

func newFakeIDIndex() *fakeIDIndex { return &fakeIDIndex{byID: make(map[any]rowstore.RowRef)} }

func (f *fakeIDIndex) AddID(key any, ref rowstore.RowRef) { f.byID[key] = ref }
func (f *fakeIDIndex) RemoveID(key any)                   { delete(f.byID, key) }
func (f *fakeIDIndex) LookupID(key any) (rowstore.RowRef, bool) {
	ref, ok := f.byID[key]
	return ref, ok
}

// fakeStatusIndex is a minimal secondary index for exercising
// RegisterIndexMaintainer without pulling in the index package.
type fakeStatusIndex struct {
	byStatus map[any]map[uint32]bool
}

func newFakeStatusIndex() *fakeStatusIndex {
	return &fakeStatusIndex{byStatus: make(map[any]map[uint32]bool)}
}

func (f *fakeStatusIndex) add(key any, ref rowstore.RowRef) {
	if f.byStatus[key] == nil {
		f.byStatus[key] = make(map[uint32]bool)
	}
	f.byStatus[key][ref.Row()] = true
}

func (f *fakeStatusIndex) remove(key any, ref rowstore.RowRef) {
	delete(f.byStatus[key], ref.Row())
}

func widgetMetadata(t *testing.T) (*EntityMetadata, *rowstore.Table) {
	t.Helper()
	tbl := rowstore.NewTable("widgets", 64, 4, nil)
	fields := []FieldSpec{
		{Name: "ID", TypeCode: typecode.Long, IsID: true},
		{Name: "Name", TypeCode: typecode.String},
		{Name: "Status", TypeCode: typecode.String},
	}
	meta, err := BuildMetadata("Widget", reflect.TypeOf(widget{}), fields, IDIdentity, nil, nil, nil)
	require.NoError(t, err)
	for _, f := range meta.Fields {
		_, err := tbl.AddColumn(f.Name, f.TypeCode, f.Nullable)
		require.NoError(t, err)
	}
	return meta, tbl
}

func TestEntitySaverGeneratesIdentityIDOnInsert(t *testing.T) {
	meta, tbl := widgetMetadata(t)
	idIdx := newFakeIDIndex()
	tbl.SetIDIndex(idIdx)
	saver, err := NewEntitySaver(meta, tbl, nil)
	require.NoError(t, err)

	w := &widget{Name: "gadget", Status: "active"}
	require.NoError(t, saver.Save(w))
	require.NotZero(t, w.ID, "Save must write a generated identity id back onto the struct")

	ref, ok := idIdx.LookupID(w.ID)
	require.True(t, ok)
	require.True(t, tbl.IsLive(ref))
}

func TestEntitySaverUpdateReusesExistingRow(t *testing.T) {
	meta, tbl := widgetMetadata(t)
	idIdx := newFakeIDIndex()
	tbl.SetIDIndex(idIdx)
	saver, err := NewEntitySaver(meta, tbl, nil)
	require.NoError(t, err)

	w := &widget{Name: "gadget", Status: "active"}
	require.NoError(t, saver.Save(w))
	firstRef, _ := idIdx.LookupID(w.ID)

	w.Status = "closed"
	require.NoError(t, saver.Save(w))
	secondRef, _ := idIdx.LookupID(w.ID)

	require.Equal(t, firstRef, secondRef, "a save with an already-assigned id must update in place, not allocate a new row")
}

func TestEntitySaverMaintainsSecondaryIndexAcrossUpdate(t *testing.T) {
	meta, tbl := widgetMetadata(t)
	idIdx := newFakeIDIndex()
	tbl.SetIDIndex(idIdx)
	saver, err := NewEntitySaver(meta, tbl, nil)
	require.NoError(t, err)

	statusIdx := newFakeStatusIndex()
	saver.RegisterIndexMaintainer("Status", statusIdx.add, statusIdx.remove)

	w := &widget{Name: "gadget", Status: "active"}
	require.NoError(t, saver.Save(w))
	row := mustRow(t, idIdx, w.ID)
	require.True(t, statusIdx.byStatus["active"][row])

	w.Status = "closed"
	require.NoError(t, saver.Save(w))
	require.False(t, statusIdx.byStatus["active"][row], "the stale status posting must be removed on update")
	require.True(t, statusIdx.byStatus["closed"][row])
}

func TestEntitySaverDeleteTombstonesAndClearsIndexes(t *testing.T) {
	meta, tbl := widgetMetadata(t)
	idIdx := newFakeIDIndex()
	tbl.SetIDIndex(idIdx)
	saver, err := NewEntitySaver(meta, tbl, nil)
	require.NoError(t, err)

	statusIdx := newFakeStatusIndex()
	saver.RegisterIndexMaintainer("Status", statusIdx.add, statusIdx.remove)

	w := &widget{Name: "gadget", Status: "active"}
	require.NoError(t, saver.Save(w))
	ref := mustRef(t, idIdx, w.ID)

	require.NoError(t, saver.Delete(ref))
	require.False(t, tbl.IsLive(ref))
	_, ok := idIdx.LookupID(w.ID)
	require.False(t, ok, "Delete must remove the row's id from the primary-key index")
	require.False(t, statusIdx.byStatus["active"][ref.Row()])
}

func TestEntitySaverSaveAllAggregatesErrorsWithoutStoppingEarly(t *testing.T) {
	meta, tbl := widgetMetadata(t)
	idIdx := newFakeIDIndex()
	tbl.SetIDIndex(idIdx)
	saver, err := NewEntitySaver(meta, tbl, nil)
	require.NoError(t, err)

	good := &widget{Name: "ok", Status: "active"}
	bad := "not a pointer to widget"
	err = saver.SaveAll([]any{good, bad})
	require.Error(t, err, "SaveAll must surface the bad entry's error")
	require.NotZero(t, good.ID, "a failing entry must not prevent earlier/later valid entries from being saved")
}

func mustRef(t *testing.T, idx *fakeIDIndex, id int64) rowstore.RowRef {
	t.Helper()
	ref, ok := idx.LookupID(id)
	require.True(t, ok)
	return ref
}

func mustRow(t *testing.T, idx *fakeIDIndex, id int64) uint32 {
	t.Helper()
	return mustRef(t, idx, id).Row()
}
