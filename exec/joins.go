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

// Package exec's joins.go resolves the two collection-valued relation
// kinds. ResolveOneToMany/ResolveManyToMany resolve a parent's collection
// field eagerly, the same way entity.EntityMaterializer resolves
// ManyToOne/OneToOne — both end in a scan-or-index lookup against a FK
// column followed by per-row materialization, so they live here rather
// than in entity, which only ever resolves a single target row per
// relation. ResolveOneToManyReverse instead serves a relation-path QUERY
// condition (e.g. findByOrdersStatus): given a child-side condition, it
// finds which parents own a matching child, the opposite direction from
// materializing a parent's own collection field.
package exec

import (
	"github.com/Thejuampi/memris-sub003/entity"
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
)

// OneToManyChild wires the child side of a OneToMany relation: its table
// and materializer, the owning-row FK column, and (optionally) a hash
// index accelerating "find children by parent id" lookups. FKIndex is the
// zero IndexHandle when the FK column carries no index, in which case
// ResolveOneToMany falls back to a full child-table scan.
type OneToManyChild struct {
	Table         *rowstore.Table
	Materializer  *entity.EntityMaterializer
	FKColumnIndex int
	FKTypeCode    typecode.TypeCode
	FKIndex       query.IndexHandle
	HasFKIndex    bool
}

// ResolveOneToMany returns every live child row whose FK column equals
// parentID, materialized through child.Materializer.
func ResolveOneToMany(child OneToManyChild, parentID any) ([]any, error) {
	var rows []uint32
	if child.HasFKIndex {
		sel, err := hashLookup(child.FKIndex, child.FKTypeCode, parentID)
		if err != nil {
			return nil, errors.Wrap(err, "one-to-many FK index lookup")
		}
		rows = sel.IDs()
	} else {
		read, err := rawColumnReader(child.Table, child.FKColumnIndex, child.FKTypeCode)
		if err != nil {
			return nil, err
		}
		extent := child.Table.RowExtent()
		for row := uint32(0); row < extent; row++ {
			if child.Table.IsTombstoned(row) {
				continue
			}
			v, present := read(row)
			if present && v == parentID {
				rows = append(rows, row)
			}
		}
	}

	out := make([]any, 0, len(rows))
	for _, row := range rows {
		if child.Table.IsTombstoned(row) {
			continue
		}
		ref, ok := child.Table.RowRefFor(row)
		if !ok {
			continue
		}
		instance, err := child.Materializer.Materialize(ref)
		if err != nil {
			return nil, errors.Wrap(err, "one-to-many child materialize")
		}
		out = append(out, instance)
	}
	return out, nil
}

// JoinResolver wires the reverse direction of a OneToMany relation-path
// condition (e.g. findByOrdersStatus navigating Customer.orders.status):
// given a condition compiled against the child/target entity, it runs that
// condition against the child table and maps each matching child row back
// to its owning parent row through the FK column and the parent's own
// primary-key index.
type JoinResolver struct {
	TargetTable  *rowstore.Table
	TargetKernel *Kernel
	// FKColumnIndex/FKTypeCode locate the child's own FK column (the column
	// named by RelationMetadata.FKColumn on the CHILD entity, not the
	// parent — see entity.EntitySaver.setFK).
	FKColumnIndex int
	FKTypeCode    typecode.TypeCode
	// OwnerIDIndex is the parent entity's primary-key index, used to turn a
	// matched child row's FK value back into a parent RowRef.
	OwnerIDIndex rowstore.IDIndex
}

// ResolveOneToManyReverse runs jc's TargetCondition against jr's child
// table using args (the outer query's argument vector — TargetCondition
// was compiled with the same ArgumentSlot as the condition it replaced, so
// no separate argument range is needed), then returns the selection of
// parent rows that own at least one matching child.
func ResolveOneToManyReverse(jr JoinResolver, jc query.CompiledJoinCondition, args []any) (rowstore.Selection, error) {
	miniCQ := &query.CompiledQuery{Conditions: []query.CompiledCondition{jc.TargetCondition}}
	bound, err := bindConditions(jr.TargetTable, miniCQ)
	if err != nil {
		return rowstore.Selection{}, errors.Wrapf(err, "relation %q: binding join condition", jc.RelationName)
	}
	childSel, err := jr.TargetKernel.Select(jr.TargetTable, miniCQ, bound, args)
	if err != nil {
		return rowstore.Selection{}, errors.Wrapf(err, "relation %q: selecting matching children", jc.RelationName)
	}

	read, err := rawColumnReader(jr.TargetTable, jr.FKColumnIndex, jr.FKTypeCode)
	if err != nil {
		return rowstore.Selection{}, err
	}

	seen := make(map[any]bool)
	var parentRows []uint32
	for _, row := range childSel.IDs() {
		fkVal, present := read(row)
		if !present || seen[fkVal] {
			continue
		}
		seen[fkVal] = true
		ref, ok := jr.OwnerIDIndex.LookupID(fkVal)
		if !ok {
			continue
		}
		parentRows = append(parentRows, ref.Row())
	}
	return rowstore.NewSelectionFromIDs(parentRows), nil
}

// JoinTableLink wires a ManyToMany relation's join table: its two FK
// columns (source side owning this relation, target side pointing at the
// other entity) and an index over the source column, since a join table
// is scanned only from its source side in practice.
type JoinTableLink struct {
	Table               *rowstore.Table
	SourceColumnIndex   int
	SourceTypeCode      typecode.TypeCode
	SourceIndex         query.IndexHandle
	TargetColumnIndex   int
	TargetTypeCode      typecode.TypeCode
	TargetIDIndex       rowstore.IDIndex // target entity's primary-key index
	TargetMaterializer  *entity.EntityMaterializer
}

// ResolveManyToMany reads join's join table for every row pairing
// sourceID with a target id, then materializes each referenced target
// entity through join.TargetMaterializer.
func ResolveManyToMany(join JoinTableLink, sourceID any) ([]any, error) {
	sel, err := hashLookup(join.SourceIndex, join.SourceTypeCode, sourceID)
	if err != nil {
		return nil, errors.Wrap(err, "many-to-many join table lookup")
	}
	readTarget, err := rawColumnReader(join.Table, join.TargetColumnIndex, join.TargetTypeCode)
	if err != nil {
		return nil, err
	}

	var out []any
	for _, row := range sel.IDs() {
		if join.Table.IsTombstoned(row) {
			continue
		}
		targetID, present := readTarget(row)
		if !present {
			continue
		}
		targetRef, found := join.TargetIDIndex.LookupID(targetID)
		if !found {
			continue
		}
		instance, err := join.TargetMaterializer.Materialize(targetRef)
		if err != nil {
			return nil, errors.Wrap(err, "many-to-many target materialize")
		}
		out = append(out, instance)
	}
	return out, nil
}
