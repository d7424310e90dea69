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

type department struct {
	ID   int64
	Name string
}

type employee struct {
	ID         int64
	Name       string
	Nickname   *string
	DeptID     int64
	Department *department
}

// buildMetaAndTable runs BuildMetadata then adds one table column per field
// in the same declaration order, so FieldMetadata.ColumnPosition lines up
// with the table's own dense column index.
func buildMetaAndTable(t *testing.T, name string, goType reflect.Type, fields []FieldSpec, relations []RelationSpec) (*EntityMetadata, *rowstore.Table) {
	t.Helper()
	meta, err := BuildMetadata(name, goType, fields, IDIdentity, nil, relations, nil)
	require.NoError(t, err)
	tbl := rowstore.NewTable(name, 16, 2, nil)
	for _, f := range meta.Fields {
		_, err := tbl.AddColumn(f.Name, f.TypeCode, f.Nullable)
		require.NoError(t, err)
	}
	return meta, tbl
}

func TestMaterializeFillsFlatFieldsAndClearsAbsentNullable(t *testing.T) {
	meta, tbl := buildMetaAndTable(t, "Employee", reflect.TypeOf(employee{}), []FieldSpec{
		{Name: "ID", TypeCode: typecode.Long, IsID: true},
		{Name: "Name", TypeCode: typecode.String},
		{Name: "Nickname", TypeCode: typecode.String, Nullable: true},
	}, nil)
	mat, err := NewEntityMaterializer(meta, tbl, nil)
	require.NoError(t, err)

	nameCol, _ := tbl.ColumnIndex("Name")
	nickCol, _ := tbl.ColumnIndex("Nickname")

	ref, err := tbl.Allocate()
	require.NoError(t, err)
	row := ref.Row()
	v := tbl.BeginWrite(row)
	nameColTyped, _ := rowstore.StringColumnAt(tbl, nameCol)
	require.NoError(t, nameColTyped.Set(row, "Dana"))
	nickColTyped, _ := rowstore.StringColumnAt(tbl, nickCol)
	nickColTyped.SetNull(row)
	tbl.EndWrite(row, v)
	tbl.PublishAll(row)

	instance, err := mat.Materialize(ref)
	require.NoError(t, err)
	emp := instance.(*employee)
	require.Equal(t, "Dana", emp.Name)
	require.Nil(t, emp.Nickname, "an absent nullable column must leave the pointer field nil")
}

func TestMaterializeResolvesManyToOneRelationEagerly(t *testing.T) {
	deptMeta, deptTbl := buildMetaAndTable(t, "Department", reflect.TypeOf(department{}), []FieldSpec{
		{Name: "ID", TypeCode: typecode.Long, IsID: true},
		{Name: "Name", TypeCode: typecode.String},
	}, nil)
	deptMat, err := NewEntityMaterializer(deptMeta, deptTbl, nil)
	require.NoError(t, err)

	deptIDCol, _ := deptTbl.ColumnIndex("ID")
	deptNameCol, _ := deptTbl.ColumnIndex("Name")

	deptRef, err := deptTbl.Allocate()
	require.NoError(t, err)
	deptRow := deptRef.Row()
	v := deptTbl.BeginWrite(deptRow)
	idTyped, _ := rowstore.ColumnAt[int64](deptTbl, deptIDCol)
	require.NoError(t, idTyped.Set(deptRow, 7))
	nameTyped, _ := rowstore.StringColumnAt(deptTbl, deptNameCol)
	require.NoError(t, nameTyped.Set(deptRow, "Engineering"))
	deptTbl.EndWrite(deptRow, v)
	deptTbl.PublishAll(deptRow)

	deptIDIdx := newFakeIDIndex()
	deptIDIdx.AddID(int64(7), deptRef)

	empMeta, empTbl := buildMetaAndTable(t, "Employee", reflect.TypeOf(employee{}), []FieldSpec{
		{Name: "ID", TypeCode: typecode.Long, IsID: true},
		{Name: "DeptID", TypeCode: typecode.Long},
	}, []RelationSpec{
		{Name: "Department", Kind: ManyToOne, Target: "Department", FKColumn: "DeptID"},
	})
	empMat, err := NewEntityMaterializer(empMeta, empTbl, nil)
	require.NoError(t, err)

	rel, ok := empMeta.RelationByName("Department")
	require.True(t, ok)
	empDeptIDCol, _ := empTbl.ColumnIndex("DeptID")
	require.NoError(t, empMat.RegisterRelation("Department", empDeptIDCol, typecode.Long, deptIDIdx, deptMat, rel.FieldIndex))

	empRef, err := empTbl.Allocate()
	require.NoError(t, err)
	empRow := empRef.Row()
	v = empTbl.BeginWrite(empRow)
	deptIDTyped, _ := rowstore.ColumnAt[int64](empTbl, empDeptIDCol)
	require.NoError(t, deptIDTyped.Set(empRow, 7))
	empTbl.EndWrite(empRow, v)
	empTbl.PublishAll(empRow)

	instance, err := empMat.Materialize(empRef)
	require.NoError(t, err)
	emp := instance.(*employee)
	require.NotNil(t, emp.Department)
	require.Equal(t, "Engineering", emp.Department.Name)
}

func TestMaterializeFailsOnStaleRowRef(t *testing.T) {
	meta, tbl := buildMetaAndTable(t, "Employee", reflect.TypeOf(employee{}), []FieldSpec{
		{Name: "ID", TypeCode: typecode.Long, IsID: true},
	}, nil)
	mat, err := NewEntityMaterializer(meta, tbl, nil)
	require.NoError(t, err)

	ref, err := tbl.Allocate()
	require.NoError(t, err)
	tbl.Tombstone(ref)

	_, err = mat.Materialize(ref)
	require.Error(t, err)
}
