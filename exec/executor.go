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
	"github.com/Thejuampi/memris-sub003/entity"
	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/pkg/errors"
)

// Executor is the one compiled, ready-to-run unit behind a single
// repository method: a CompiledQuery bound to its table's concrete
// columns plus the saver/materializer needed to turn row ids into values
// or values into rows. The arena builds one Executor per registered
// MethodDescriptor (dense array indexed by queryId) and never recompiles
// it afterward.
type Executor struct {
	cq           *query.CompiledQuery
	table        *rowstore.Table
	kernel       *Kernel
	bound        []boundCondition
	saver        *entity.EntitySaver
	materializer *entity.EntityMaterializer
	joins        map[string]JoinResolver
}

// NewExecutor binds cq's conditions against table's concrete columns and
// pairs the result with kernel/saver/materializer. saver is only used by
// OpSave/OpDelete methods; materializer only by OpFind methods with no
// projection shape. Either may be nil when the corresponding opcode is
// never compiled for this entity. joins supplies the JoinResolver for every
// relation name cq.Joins names (a OneToMany relation-path condition); it
// may be nil when cq.Joins is empty.
func NewExecutor(table *rowstore.Table, kernel *Kernel, cq *query.CompiledQuery, saver *entity.EntitySaver, materializer *entity.EntityMaterializer, joins map[string]JoinResolver) (*Executor, error) {
	bound, err := bindConditions(table, cq)
	if err != nil {
		return nil, errors.Wrapf(err, "executor for entity %q", cq.EntityName)
	}
	return &Executor{cq: cq, table: table, kernel: kernel, bound: bound, saver: saver, materializer: materializer, joins: joins}, nil
}

// applyJoins narrows sel to the rows that also satisfy every relation-path
// condition cq.Joins names, resolving each one against its registered
// JoinResolver and intersecting the result.
func (e *Executor) applyJoins(sel rowstore.Selection, args []any) (rowstore.Selection, error) {
	for _, jc := range e.cq.Joins {
		jr, ok := e.joins[jc.RelationName]
		if !ok {
			return rowstore.Selection{}, errors.Errorf("exec: no join resolver registered for relation %q", jc.RelationName)
		}
		joinSel, err := ResolveOneToManyReverse(jr, jc, args)
		if err != nil {
			return rowstore.Selection{}, err
		}
		sel = sel.Intersect(joinSel)
	}
	return sel, nil
}

// Execute runs the compiled method against args (the per-condition
// argument vector assembled by the caller in CompiledCondition.ArgumentSlot
// order, plus, for OpSave, a single entity pointer at args[0]).
func (e *Executor) Execute(args []any) (any, error) {
	switch e.cq.Opcode {
	case query.OpSave:
		return nil, e.executeSave(args)
	case query.OpDelete:
		return e.executeDelete(args)
	case query.OpExists:
		return e.executeExists(args)
	case query.OpCount:
		return e.executeCount(args)
	case query.OpFind:
		return e.executeFind(args)
	default:
		return nil, errors.Errorf("exec: unknown opcode %v", e.cq.Opcode)
	}
}

func (e *Executor) executeSave(args []any) error {
	if len(args) == 0 {
		return errors.New("exec: save requires an entity argument")
	}
	err := e.saver.Save(args[0])
	if err != nil && merrors.Is(err, merrors.ErrCapacityExceeded) {
		e.kernel.metrics.CapacityExceeded.Inc()
	}
	return err
}

func (e *Executor) executeDelete(args []any) (any, error) {
	sel, err := e.kernel.Select(e.table, e.cq, e.bound, args)
	if err != nil {
		return nil, err
	}
	sel, err = e.applyJoins(sel, args)
	if err != nil {
		return nil, err
	}
	refs := sel.ToRowRefs(e.table)
	var deleted int64
	for _, ref := range refs {
		if err := e.saver.Delete(ref); err != nil {
			return nil, err
		}
		deleted++
	}
	return deleted, nil
}

func (e *Executor) executeExists(args []any) (any, error) {
	sel, err := e.kernel.Select(e.table, e.cq, e.bound, args)
	if err != nil {
		return nil, err
	}
	sel, err = e.applyJoins(sel, args)
	if err != nil {
		return nil, err
	}
	return !sel.Empty(), nil
}

func (e *Executor) executeCount(args []any) (any, error) {
	sel, err := e.kernel.Select(e.table, e.cq, e.bound, args)
	if err != nil {
		return nil, err
	}
	sel, err = e.applyJoins(sel, args)
	if err != nil {
		return nil, err
	}
	if e.cq.ReturnKind == query.ReturnGroupedMap {
		refs := sel.ToRowRefs(e.table)
		return GroupCount(e.table, refs, e.cq.GroupBy)
	}
	return int64(sel.Len()), nil
}

func (e *Executor) executeFind(args []any) (any, error) {
	sel, err := e.kernel.Select(e.table, e.cq, e.bound, args)
	if err != nil {
		return nil, err
	}
	sel, err = e.applyJoins(sel, args)
	if err != nil {
		return nil, err
	}
	refs := sel.ToRowRefs(e.table)
	refs, err = OrderAndLimit(e.table, refs, e.cq.OrderBy, e.cq.Limit)
	if err != nil {
		return nil, err
	}

	if e.cq.ReturnKind == query.ReturnGroupedMap {
		groups, err := GroupRows(e.table, refs, e.cq.GroupBy)
		if err != nil {
			return nil, err
		}
		out := make(map[any]any, len(groups))
		for key, groupRefs := range groups {
			vals, err := e.materializeRefs(groupRefs)
			if err != nil {
				return nil, err
			}
			out[key] = vals
		}
		return out, nil
	}

	vals, err := e.materializeRefs(refs)
	if err != nil {
		return nil, err
	}
	if e.cq.ReturnKind == query.ReturnOptional {
		if len(vals) == 0 {
			return nil, nil
		}
		return vals[0], nil
	}
	return vals, nil
}

// materializeRefs turns refs into entity instances, or, when cq carries a
// projection shape, into lightweight field-map records instead of full
// entities.
func (e *Executor) materializeRefs(refs []rowstore.RowRef) ([]any, error) {
	if len(e.cq.Projection) > 0 {
		records, err := Project(e.table, refs, e.cq.Projection)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(records))
		for i, r := range records {
			out[i] = r
		}
		return out, nil
	}
	out := make([]any, 0, len(refs))
	for _, ref := range refs {
		instance, err := e.materializer.Materialize(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}
