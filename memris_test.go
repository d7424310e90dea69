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

package memris

import (
	"reflect"
	"testing"

	"github.com/Thejuampi/memris-sub003/index"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID     int64
	Name   string
	Status string
}

func newWidgetStore(t *testing.T) *Store {
	t.Helper()
	s := New(DefaultConfig())
	require.NoError(t, s.RegisterEntity(EntityRegistration{
		Name:   "Widget",
		GoType: reflect.TypeOf(widget{}),
		Fields: []FieldSpec{
			{Name: "ID", TypeCode: typecode.Long, IsID: true},
			{Name: "Name", TypeCode: typecode.String},
			{Name: "Status", TypeCode: typecode.String},
		},
		IDStrategy: IDIdentity,
		Indexes: []IndexDeclaration{
			{Name: "byStatus", Fields: []string{"Status"}, Kind: byte(index.KindHash)},
		},
	}))
	require.NoError(t, s.Wire())
	return s
}

func TestStoreSaveAndFindByIndexedField(t *testing.T) {
	s := newWidgetStore(t)

	const saveQuery = 0
	const findByStatusQuery = 1
	require.NoError(t, s.RegisterQuery("Widget", saveQuery, MethodDescriptor{Opcode: OpSave}))
	require.NoError(t, s.RegisterQuery("Widget", findByStatusQuery, MethodDescriptor{
		Opcode:     OpFind,
		ReturnKind: ReturnList,
		Conditions: []Condition{{Path: "Status", Op: OpEquals}},
	}))

	gizmo := &widget{Name: "Gizmo", Status: "active"}
	gadget := &widget{Name: "Gadget", Status: "retired"}
	widget2 := &widget{Name: "Doohickey", Status: "active"}
	for _, w := range []*widget{gizmo, gadget, widget2} {
		_, err := s.Execute(saveQuery, []any{w})
		require.NoError(t, err)
	}
	require.NotZero(t, gizmo.ID, "identity strategy must assign a primary key on save")

	result, err := s.Execute(findByStatusQuery, []any{"active"})
	require.NoError(t, err)
	list, ok := result.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)

	names := make([]string, 0, 2)
	for _, r := range list {
		names = append(names, r.(*widget).Name)
	}
	require.ElementsMatch(t, []string{"Gizmo", "Doohickey"}, names)
}

func TestStoreCountAndDelete(t *testing.T) {
	s := newWidgetStore(t)

	const saveQuery = 0
	const countByStatusQuery = 1
	const deleteByStatusQuery = 2
	require.NoError(t, s.RegisterQuery("Widget", saveQuery, MethodDescriptor{Opcode: OpSave}))
	require.NoError(t, s.RegisterQuery("Widget", countByStatusQuery, MethodDescriptor{
		Opcode:     OpCount,
		ReturnKind: ReturnCount,
		Conditions: []Condition{{Path: "Status", Op: OpEquals}},
	}))
	require.NoError(t, s.RegisterQuery("Widget", deleteByStatusQuery, MethodDescriptor{
		Opcode:     OpDelete,
		ReturnKind: ReturnCount,
		Conditions: []Condition{{Path: "Status", Op: OpEquals}},
	}))

	_, err := s.Execute(saveQuery, []any{&widget{Name: "Sprocket", Status: "retired"}})
	require.NoError(t, err)
	_, err = s.Execute(saveQuery, []any{&widget{Name: "Cog", Status: "retired"}})
	require.NoError(t, err)

	count, err := s.Execute(countByStatusQuery, []any{"retired"})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	deleted, err := s.Execute(deleteByStatusQuery, []any{"retired"})
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	count, err = s.Execute(countByStatusQuery, []any{"retired"})
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestStoreExecuteRejectsUnregisteredQueryID(t *testing.T) {
	s := New(DefaultConfig())
	_, err := s.Execute(9, nil)
	require.Error(t, err)
}

func TestStoreRegisterEntityRejectsDuplicateName(t *testing.T) {
	s := newWidgetStore(t)
	err := s.RegisterEntity(EntityRegistration{
		Name:   "Widget",
		GoType: reflect.TypeOf(widget{}),
		Fields: []FieldSpec{{Name: "ID", TypeCode: typecode.Long, IsID: true}},
	})
	require.Error(t, err)
}
