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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxRelationDepth bounds ManyToOne/OneToOne recursion so a self-
// referential graph cannot recurse
// forever; beyond this depth a relation is left unpopulated.
const maxRelationDepth = 8

// EntityMaterializer is compiled once per entity class: it fills a fresh
// instance's flat and embedded fields from column reads under a seqlock-
// consistent snapshot, then resolves ManyToOne/OneToOne relations eagerly
// up to maxRelationDepth.
type EntityMaterializer struct {
	meta   *EntityMetadata
	table  *rowstore.Table
	logger *zap.Logger

	fieldIO map[string]columnIO

	// relationTargets maps a ManyToOne/OneToOne relation name to the
	// materializer for its target entity and the columnIO that reads the
	// owning row's FK column value.
	relationTargets map[string]relationTarget

	// ctorCache memoizes the zero-value constructor closure for an
	// embedded struct's reflect.Type, so the same embedded shape is
	// resolved once across many rows; each call of the closure still
	// allocates a fresh value with reflect.New.
	ctorCache *lru.Cache[reflect.Type, func() reflect.Value]
}

type relationTarget struct {
	fkIO      columnIO
	fkIDIndex rowstore.IDIndex
	target    *EntityMaterializer
	leafIndex []int
}

// NewEntityMaterializer builds the materializer for meta against table.
func NewEntityMaterializer(meta *EntityMetadata, table *rowstore.Table, logger *zap.Logger) (*EntityMaterializer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[reflect.Type, func() reflect.Value](256)
	if err != nil {
		return nil, errors.Wrap(err, "entity materializer ctor cache")
	}
	m := &EntityMaterializer{
		meta:            meta,
		table:           table,
		logger:          logger,
		fieldIO:         make(map[string]columnIO, len(meta.Fields)),
		relationTargets: make(map[string]relationTarget),
		ctorCache:       cache,
	}
	for _, f := range meta.Fields {
		io, err := buildColumnIO(table, f.ColumnPosition, f.TypeCode)
		if err != nil {
			return nil, errors.Wrapf(err, "entity %q field %q", meta.Name, f.Name)
		}
		m.fieldIO[f.Name] = io
	}
	return m, nil
}

// RegisterRelation wires a ManyToOne/OneToOne relation's FK column (at
// fkColumnIndex in the owning row, with Go representation fkTypeCode) to
// the target entity's materializer and id index, so Materialize can
// resolve it eagerly. leafIndex is the relation field's own FieldByIndex
// path (always a direct field, never embedded, per EntityMetadata.Relations).
func (m *EntityMaterializer) RegisterRelation(relationName string, fkColumnIndex int, fkTypeCode typecode.TypeCode, fkIDIndex rowstore.IDIndex, target *EntityMaterializer, leafIndex []int) error {
	io, err := buildColumnIO(m.table, fkColumnIndex, fkTypeCode)
	if err != nil {
		return errors.Wrapf(err, "entity %q relation %q", m.meta.Name, relationName)
	}
	m.relationTargets[relationName] = relationTarget{fkIO: io, fkIDIndex: fkIDIndex, target: target, leafIndex: leafIndex}
	return nil
}

// Materialize reads ref's row under a seqlock-consistent snapshot and
// returns a freshly constructed *T (T = meta.GoType), with every flat and
// embedded field populated and every registered ManyToOne/OneToOne
// relation resolved eagerly up to maxRelationDepth.
func (m *EntityMaterializer) Materialize(ref rowstore.RowRef) (any, error) {
	return m.materializeAt(ref, 0)
}

func (m *EntityMaterializer) materializeAt(ref rowstore.RowRef, depth int) (any, error) {
	if !m.table.IsLive(ref) {
		return nil, errors.Errorf("entity %q: row %d is not live", m.meta.Name, ref.Row())
	}
	instance := reflect.New(m.meta.GoType)
	root := instance.Elem()
	row := ref.Row()

	err := m.table.ReadConsistent(row, func() {
		for _, f := range m.meta.Fields {
			plan, planErr := m.meta.Plan(f.Name)
			if planErr != nil {
				continue // every field got a plan in BuildMetadata; unreachable in practice
			}
			io := m.fieldIO[f.Name]
			v, present := io.read(row)
			if !present {
				m.clearField(root, plan)
				continue
			}
			m.setField(root, plan, v)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "entity %q row %d", m.meta.Name, row)
	}
	if !m.table.IsLive(ref) {
		return nil, errors.Errorf("entity %q: row %d went stale during materialization", m.meta.Name, ref.Row())
	}

	if depth < maxRelationDepth {
		for name, rel := range m.relationTargets {
			if err := m.resolveRelation(root, row, name, rel, depth); err != nil {
				m.logger.Warn("relation resolution failed", zap.String("entity", m.meta.Name), zap.String("relation", name), zap.Error(err))
			}
		}
	}

	return instance.Interface(), nil
}

// navigateCached walks plan's embedding steps, constructing any nil
// intermediate pointer via a cached per-Type constructor closure rather
// than calling reflect.New directly each time — the same embedded struct
// shape (e.g. Profile, Address) recurs across every row, so the closure is
// built once and reused.
func (m *EntityMaterializer) navigateCached(root reflect.Value, steps []AccessStep) reflect.Value {
	v := root
	for _, step := range steps {
		v = v.FieldByIndex(step.FieldIndex)
		if step.IsPointer {
			if v.IsNil() {
				v.Set(m.ctorFor(step.ElemType)())
			}
			v = v.Elem()
		}
	}
	return v
}

func (m *EntityMaterializer) ctorFor(t reflect.Type) func() reflect.Value {
	if fn, ok := m.ctorCache.Get(t); ok {
		return fn
	}
	fn := func() reflect.Value { return reflect.New(t) }
	m.ctorCache.Add(t, fn)
	return fn
}

// setField writes value into plan's leaf field under root, using
// navigateCached for any embedded construction.
func (m *EntityMaterializer) setField(root reflect.Value, plan *ColumnAccessPlan, value reflect.Value) {
	v := m.navigateCached(root, plan.Steps)
	leaf := v.FieldByIndex(plan.LeafIndex)
	if leaf.Kind() == reflect.Pointer {
		elem := reflect.New(leaf.Type().Elem())
		elem.Elem().Set(value.Convert(leaf.Type().Elem()))
		leaf.Set(elem)
		return
	}
	leaf.Set(value.Convert(leaf.Type()))
}

// clearField sets plan's leaf field to its zero value, skipping
// construction of any absent embedded intermediate (nothing to clear).
func (m *EntityMaterializer) clearField(root reflect.Value, plan *ColumnAccessPlan) {
	v, ok := navigate(root, plan.Steps, false)
	if !ok {
		return
	}
	leaf := v.FieldByIndex(plan.LeafIndex)
	leaf.Set(reflect.Zero(leaf.Type()))
}

// resolveRelation reads the owning row's FK column, probes the target
// entity's id index, and (if found) eagerly materializes and sets the
// target into root's relation field.
func (m *EntityMaterializer) resolveRelation(root reflect.Value, row uint32, name string, rel relationTarget, depth int) error {
	fkVal, present := rel.fkIO.read(row)
	if !present {
		return nil
	}
	targetRef, found := rel.fkIDIndex.LookupID(fkVal.Interface())
	if !found {
		return nil
	}
	targetInstance, err := rel.target.materializeAt(targetRef, depth+1)
	if err != nil {
		return errors.Wrapf(err, "relation %q", name)
	}
	field := root.FieldByIndex(rel.leafIndex)
	tv := reflect.ValueOf(targetInstance)
	if field.Kind() == reflect.Pointer {
		field.Set(tv)
	} else {
		field.Set(tv.Elem())
	}
	return nil
}
