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

package arena

import (
	"reflect"
	"testing"

	"github.com/Thejuampi/memris-sub003/entity"
	"github.com/Thejuampi/memris-sub003/index"
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/stretchr/testify/require"
)

type customer struct {
	ID     int64
	Name   string
	Status string
	Orders []*order
}

type order struct {
	ID         int64
	Amount     int64
	CustomerID int64
	Status     string
	Customer   *customer
}

func registerCustomerAndOrder(t *testing.T, a *Arena) {
	t.Helper()
	require.NoError(t, a.RegisterEntity(EntityRegistration{
		Name:   "Customer",
		GoType: reflect.TypeOf(customer{}),
		Fields: []entity.FieldSpec{
			{Name: "ID", TypeCode: typecode.Long, IsID: true},
			{Name: "Name", TypeCode: typecode.String},
			{Name: "Status", TypeCode: typecode.String},
		},
		IDStrategy: entity.IDIdentity,
		Indexes: []entity.IndexDeclaration{
			{Name: "byStatus", Fields: []string{"Status"}, Kind: byte(index.KindHash)},
		},
		Relations: []entity.RelationSpec{
			{Name: "Orders", Kind: entity.OneToMany, Target: "Order", FKColumn: "CustomerID"},
		},
	}))

	require.NoError(t, a.RegisterEntity(EntityRegistration{
		Name:   "Order",
		GoType: reflect.TypeOf(order{}),
		Fields: []entity.FieldSpec{
			{Name: "ID", TypeCode: typecode.Long, IsID: true},
			{Name: "Amount", TypeCode: typecode.Long},
			{Name: "CustomerID", TypeCode: typecode.Long},
			{Name: "Status", TypeCode: typecode.String},
		},
		IDStrategy: entity.IDIdentity,
		Relations: []entity.RelationSpec{
			{Name: "Customer", Kind: entity.ManyToOne, Target: "Customer", FKColumn: "CustomerID"},
		},
	}))

	require.NoError(t, a.Wire())
}

func TestArenaRegisterEntityRejectsDuplicateName(t *testing.T) {
	a := NewArena(DefaultConfig())
	registerCustomerAndOrder(t, a)
	err := a.RegisterEntity(EntityRegistration{Name: "Customer", GoType: reflect.TypeOf(customer{}), Fields: []entity.FieldSpec{
		{Name: "ID", TypeCode: typecode.Long, IsID: true},
	}})
	require.Error(t, err)
}

func TestArenaSaveFindByEqualityUsesIndex(t *testing.T) {
	a := NewArena(DefaultConfig())
	registerCustomerAndOrder(t, a)

	const saveQuery = 0
	const findByStatusQuery = 1
	require.NoError(t, a.RegisterQuery("Customer", saveQuery, query.MethodDescriptor{Opcode: query.OpSave}))
	require.NoError(t, a.RegisterQuery("Customer", findByStatusQuery, query.MethodDescriptor{
		Opcode:     query.OpFind,
		ReturnKind: query.ReturnList,
		Conditions: []query.Condition{{Path: "Status", Op: query.OpEquals}},
	}))

	alice := &customer{Name: "Alice", Status: "active"}
	bob := &customer{Name: "Bob", Status: "closed"}
	carol := &customer{Name: "Carol", Status: "active"}
	for _, c := range []*customer{alice, bob, carol} {
		_, err := a.Execute(saveQuery, []any{c})
		require.NoError(t, err)
	}

	result, err := a.Execute(findByStatusQuery, []any{"active"})
	require.NoError(t, err)
	list, ok := result.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)

	names := make([]string, 0, 2)
	for _, r := range list {
		names = append(names, r.(*customer).Name)
	}
	require.ElementsMatch(t, []string{"Alice", "Carol"}, names)
}

func TestArenaDeleteRemovesRowFromSubsequentFind(t *testing.T) {
	a := NewArena(DefaultConfig())
	registerCustomerAndOrder(t, a)

	const saveQuery = 0
	const findByStatusQuery = 1
	const deleteByStatusQuery = 2
	require.NoError(t, a.RegisterQuery("Customer", saveQuery, query.MethodDescriptor{Opcode: query.OpSave}))
	require.NoError(t, a.RegisterQuery("Customer", findByStatusQuery, query.MethodDescriptor{
		Opcode:     query.OpFind,
		ReturnKind: query.ReturnList,
		Conditions: []query.Condition{{Path: "Status", Op: query.OpEquals}},
	}))
	require.NoError(t, a.RegisterQuery("Customer", deleteByStatusQuery, query.MethodDescriptor{
		Opcode:     query.OpDelete,
		ReturnKind: query.ReturnCount,
		Conditions: []query.Condition{{Path: "Status", Op: query.OpEquals}},
	}))

	dave := &customer{Name: "Dave", Status: "active"}
	_, err := a.Execute(saveQuery, []any{dave})
	require.NoError(t, err)

	deletedCount, err := a.Execute(deleteByStatusQuery, []any{"active"})
	require.NoError(t, err)
	require.EqualValues(t, 1, deletedCount)

	result, err := a.Execute(findByStatusQuery, []any{"active"})
	require.NoError(t, err)
	require.Empty(t, result.([]any))
}

func TestArenaManyToOneRelationMaterializesEagerly(t *testing.T) {
	a := NewArena(DefaultConfig())
	registerCustomerAndOrder(t, a)

	const saveCustomer = 0
	const saveOrder = 1
	const findOrderByID = 2
	require.NoError(t, a.RegisterQuery("Customer", saveCustomer, query.MethodDescriptor{Opcode: query.OpSave}))
	require.NoError(t, a.RegisterQuery("Order", saveOrder, query.MethodDescriptor{Opcode: query.OpSave}))
	require.NoError(t, a.RegisterQuery("Order", findOrderByID, query.MethodDescriptor{
		Opcode:     query.OpFind,
		ReturnKind: query.ReturnOptional,
		Conditions: []query.Condition{{Path: "ID", Op: query.OpEquals}},
	}))

	cust := &customer{Name: "Erin", Status: "active"}
	_, err := a.Execute(saveCustomer, []any{cust})
	require.NoError(t, err)

	ord := &order{Amount: 4200, CustomerID: cust.ID}
	_, err = a.Execute(saveOrder, []any{ord})
	require.NoError(t, err)

	result, err := a.Execute(findOrderByID, []any{ord.ID})
	require.NoError(t, err)
	found := result.(*order)
	require.NotNil(t, found.Customer, "a ManyToOne relation must be resolved eagerly by Materialize")
	require.Equal(t, "Erin", found.Customer.Name)
}

func TestArenaCascadeSavesOneToManyChildren(t *testing.T) {
	a := NewArena(DefaultConfig())
	registerCustomerAndOrder(t, a)

	const saveCustomer = 0
	const findOrderByID = 1
	require.NoError(t, a.RegisterQuery("Customer", saveCustomer, query.MethodDescriptor{Opcode: query.OpSave}))
	require.NoError(t, a.RegisterQuery("Order", findOrderByID, query.MethodDescriptor{
		Opcode:     query.OpFind,
		ReturnKind: query.ReturnOptional,
		Conditions: []query.Condition{{Path: "ID", Op: query.OpEquals}},
	}))

	first := &order{Amount: 100, Status: "PAID"}
	second := &order{Amount: 250, Status: "PENDING"}
	cust := &customer{Name: "Frank", Status: "active", Orders: []*order{first, second}}

	_, err := a.Execute(saveCustomer, []any{cust})
	require.NoError(t, err)
	require.NotZero(t, first.ID, "cascadeSave must assign an identity id to each child order")
	require.NotZero(t, second.ID, "cascadeSave must assign an identity id to each child order")

	result, err := a.Execute(findOrderByID, []any{first.ID})
	require.NoError(t, err)
	found := result.(*order)
	require.Equal(t, cust.ID, found.CustomerID, "cascadeSave must set the child's FK column to the parent id")
}

func TestArenaFindByRelationPathQueriesChildCondition(t *testing.T) {
	a := NewArena(DefaultConfig())
	registerCustomerAndOrder(t, a)

	const saveCustomer = 0
	const saveOrder = 1
	const findByOrdersStatus = 2
	require.NoError(t, a.RegisterQuery("Customer", saveCustomer, query.MethodDescriptor{Opcode: query.OpSave}))
	require.NoError(t, a.RegisterQuery("Order", saveOrder, query.MethodDescriptor{Opcode: query.OpSave}))
	require.NoError(t, a.RegisterQuery("Customer", findByOrdersStatus, query.MethodDescriptor{
		Opcode:     query.OpFind,
		ReturnKind: query.ReturnList,
		Conditions: []query.Condition{{Path: "Orders.Status", Op: query.OpEquals}},
	}))

	paidCustomer := &customer{Name: "Grace", Status: "active"}
	_, err := a.Execute(saveCustomer, []any{paidCustomer})
	require.NoError(t, err)
	_, err = a.Execute(saveOrder, []any{&order{Amount: 100, CustomerID: paidCustomer.ID, Status: "PAID"}})
	require.NoError(t, err)

	pendingOnlyCustomer := &customer{Name: "Hank", Status: "active"}
	_, err = a.Execute(saveCustomer, []any{pendingOnlyCustomer})
	require.NoError(t, err)
	_, err = a.Execute(saveOrder, []any{&order{Amount: 50, CustomerID: pendingOnlyCustomer.ID, Status: "PENDING"}})
	require.NoError(t, err)

	result, err := a.Execute(findByOrdersStatus, []any{"PAID"})
	require.NoError(t, err)
	list := result.([]any)
	require.Len(t, list, 1)
	require.Equal(t, "Grace", list[0].(*customer).Name)
}

func TestArenaRegisterQueryRejectsUnknownEntity(t *testing.T) {
	a := NewArena(DefaultConfig())
	err := a.RegisterQuery("Ghost", 0, query.MethodDescriptor{Opcode: query.OpFind})
	require.Error(t, err)
}

func TestArenaExecuteRejectsUnregisteredQueryID(t *testing.T) {
	a := NewArena(DefaultConfig())
	_, err := a.Execute(7, nil)
	require.Error(t, err)
}
