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

// Package exec is the execution kernel: it turns a compiled
// query plus a caller-supplied argument vector into a Selection of matching
// rows, orders/truncates them, and materializes or projects the survivors.
package exec

import (
	"github.com/Thejuampi/memris-sub003/query"
	"github.com/Thejuampi/memris-sub003/rowstore"
)

// boundCondition pairs one CompiledCondition with the typedOps resolved for
// its column, built once when an Executor is constructed.
type boundCondition struct {
	cond query.CompiledCondition
	ops  typedOps
}

func bindConditions(table *rowstore.Table, cq *query.CompiledQuery) ([]boundCondition, error) {
	bound := make([]boundCondition, len(cq.Conditions))
	for i, c := range cq.Conditions {
		ops, err := buildTypedOps(table, c.ColumnIndex, c.TypeCode, c)
		if err != nil {
			return nil, err
		}
		bound[i] = boundCondition{cond: c, ops: ops}
	}
	return bound, nil
}

// Kernel evaluates a bound CompiledQuery's conditions against a table. It
// carries no entity-specific state beyond what Executor hands it per call,
// so one Kernel instance can serve every Executor.
type Kernel struct {
	metrics *Metrics
}

// NewKernel builds a Kernel reporting to m (nil is a valid no-op Metrics).
func NewKernel(m *Metrics) *Kernel {
	if m == nil {
		m = NewNopMetrics()
	}
	return &Kernel{metrics: m}
}

// Select returns the live rows matching cq's conditions for the given
// argument vector. andIdx conditions (those not named by any OrGroup) are
// combined by picking the first indexable one as the driver in source
// order, and residual-filtering every AND condition — including the
// driver itself, which costs one redundant comparison per candidate but
// makes an index's boundary-inclusive result (e.g. RangeIndex.Between
// standing in for a strict GREATER_THAN) always safe to use as a driver.
// Each OrGroup is evaluated as a union of its members' own candidates,
// residual-verified, then intersected into the running result.
func (k *Kernel) Select(table *rowstore.Table, cq *query.CompiledQuery, bound []boundCondition, args []any) (rowstore.Selection, error) {
	grouped := make(map[int]bool)
	for _, group := range cq.OrGroups {
		for _, idx := range group {
			grouped[idx] = true
		}
	}
	var andIdx []int
	for i := range cq.Conditions {
		if !grouped[i] {
			andIdx = append(andIdx, i)
		}
	}

	result, err := k.selectAnd(table, bound, andIdx, args)
	if err != nil {
		return rowstore.Selection{}, err
	}

	for _, group := range cq.OrGroups {
		groupSel, err := k.selectOr(table, bound, group, args)
		if err != nil {
			return rowstore.Selection{}, err
		}
		result = result.Intersect(groupSel)
	}
	return result, nil
}

func (k *Kernel) selectAnd(table *rowstore.Table, bound []boundCondition, andIdx []int, args []any) (rowstore.Selection, error) {
	if len(andIdx) == 0 {
		return k.scanAllLive(table), nil
	}

	driver := -1
	for _, i := range andIdx {
		if bound[i].cond.Indexed {
			driver = i
			break
		}
	}

	var candidateIDs []uint32
	if driver >= 0 {
		k.metrics.IndexHits.Inc()
		sel, err := indexSelection(bound[driver].cond.Index, bound[driver].cond, args)
		if err != nil {
			return rowstore.Selection{}, err
		}
		candidateIDs = sel.IDs()
	} else {
		k.metrics.ScansPerformed.Inc()
		candidateIDs = bound[andIdx[0]].ops.scan(args, 0)
	}

	var out []uint32
	for _, row := range candidateIDs {
		if table.IsTombstoned(row) {
			continue
		}
		matches := true
		for _, i := range andIdx {
			k.metrics.ResidualFilters.Inc()
			if !bound[i].ops.match(args, row) {
				matches = false
				break
			}
		}
		if matches {
			out = append(out, row)
		}
	}
	return rowstore.NewSelectionFromIDs(out), nil
}

func (k *Kernel) selectOr(table *rowstore.Table, bound []boundCondition, group []int, args []any) (rowstore.Selection, error) {
	var union rowstore.Selection
	for gi, i := range group {
		var ids []uint32
		if bound[i].cond.Indexed {
			sel, err := indexSelection(bound[i].cond.Index, bound[i].cond, args)
			if err != nil {
				return rowstore.Selection{}, err
			}
			ids = sel.IDs()
		} else {
			k.metrics.ScansPerformed.Inc()
			ids = bound[i].ops.scan(args, 0)
		}
		sel := rowstore.NewSelectionFromIDs(ids)
		if gi == 0 {
			union = sel
		} else {
			union = union.Union(sel)
		}
	}

	var out []uint32
	for _, row := range union.IDs() {
		if table.IsTombstoned(row) {
			continue
		}
		for _, i := range group {
			k.metrics.ResidualFilters.Inc()
			if bound[i].ops.match(args, row) {
				out = append(out, row)
				break
			}
		}
	}
	return rowstore.NewSelectionFromIDs(out), nil
}

// scanAllLive returns every currently live row, used for a condition-free
// query (e.g. findAll/count/deleteAll).
func (k *Kernel) scanAllLive(table *rowstore.Table) rowstore.Selection {
	k.metrics.ScansPerformed.Inc()
	extent := table.RowExtent()
	out := make([]uint32, 0, extent)
	for row := uint32(0); row < extent; row++ {
		if !table.IsTombstoned(row) {
			out = append(out, row)
		}
	}
	return rowstore.NewSelectionFromSortedIDs(out)
}
