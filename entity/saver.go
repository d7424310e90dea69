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
	"sync/atomic"

	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/rowstore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// visitKey identifies one entity instance on the current save stack, used
// to break cycles in cascade saves.
type visitKey struct {
	entity string
	id     any
}

// EntitySaver is compiled once per entity class: it knows how to write a
// Go struct's flat and embedded fields into its Table row, generate ids,
// decide insert vs. update, and cascade into declared child savers.
type EntitySaver struct {
	meta   *EntityMetadata
	table  *rowstore.Table
	logger *zap.Logger

	fieldIO map[string]columnIO // keyed by FieldMetadata.Name
	idField FieldMetadata

	identityCounter atomic.Int64

	cascades map[string]*EntitySaver // relation name -> target saver

	// indexMaintainers keeps each declared secondary index consistent with
	// its column on every insert/update/delete. add/remove are type-erased
	// closures the arena builds against the index's concrete key type,
	// mirroring the dispatch pattern exec uses for typed column access.
	indexMaintainers     []indexMaintainer
	compositeMaintainers []compositeMaintainer
}

type indexMaintainer struct {
	fieldName string
	add       func(key any, ref rowstore.RowRef)
	remove    func(key any, ref rowstore.RowRef)
}

type compositeMaintainer struct {
	fieldNames []string
	add        func(values []any, ref rowstore.RowRef)
	remove     func(values []any, ref rowstore.RowRef)
}

// RegisterIndexMaintainer wires a secondary index over fieldName so Save
// keeps it consistent: on an update the row's old value is removed from
// the index before the new value is added, and Delete removes the row's
// current value.
func (s *EntitySaver) RegisterIndexMaintainer(fieldName string, add, remove func(key any, ref rowstore.RowRef)) {
	s.indexMaintainers = append(s.indexMaintainers, indexMaintainer{fieldName: fieldName, add: add, remove: remove})
}

// RegisterCompositeIndexMaintainer wires a multi-field composite index
// (index.CompositeHashIndex/CompositeRangeIndex) over fieldNames, in tuple
// order, the same way RegisterIndexMaintainer does for a single field.
func (s *EntitySaver) RegisterCompositeIndexMaintainer(fieldNames []string, add, remove func(values []any, ref rowstore.RowRef)) {
	s.compositeMaintainers = append(s.compositeMaintainers, compositeMaintainer{fieldNames: fieldNames, add: add, remove: remove})
}

// NewEntitySaver builds the saver for meta against table, resolving one
// columnIO per declared field. The primary-key index is not a parameter:
// the saver reads it lazily via table.IDIndexOf at save time, so
// table.SetIDIndex may be called before or after this constructor.
func NewEntitySaver(meta *EntityMetadata, table *rowstore.Table, logger *zap.Logger) (*EntitySaver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EntitySaver{
		meta:     meta,
		table:    table,
		logger:   logger,
		fieldIO:  make(map[string]columnIO, len(meta.Fields)),
		cascades: make(map[string]*EntitySaver),
	}
	for _, f := range meta.Fields {
		io, err := buildColumnIO(table, f.ColumnPosition, f.TypeCode)
		if err != nil {
			return nil, errors.Wrapf(err, "entity %q field %q", meta.Name, f.Name)
		}
		s.fieldIO[f.Name] = io
		if f.IsID {
			s.idField = f
		}
	}
	return s, nil
}

// RegisterCascade wires a relation name to the EntitySaver that owns its
// target entity class, enabling Save to recurse into declared children.
func (s *EntitySaver) RegisterCascade(relationName string, target *EntitySaver) {
	s.cascades[relationName] = target
}

// Save inserts entity if its id is absent, otherwise updates the existing
// row, then recurses into declared cascades. entity must be a pointer to
// the registered struct type so generated ids can be written back.
func (s *EntitySaver) Save(entity any) error {
	return s.save(entity, make(map[visitKey]bool))
}

// SaveAll saves each entity in turn through the same path as Save, sharing
// one cascade visited set across the batch, and aggregates every failure
// with multierr instead of stopping at the first. Each row's column
// watermarks are published as that row is saved; there is no batch-wide
// publish step.
func (s *EntitySaver) SaveAll(entities []any) error {
	var errs error
	visited := make(map[visitKey]bool)
	for _, e := range entities {
		if err := s.save(e, visited); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (s *EntitySaver) save(entity any, visited map[visitKey]bool) error {
	rv := reflect.ValueOf(entity)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.Errorf("entity %q: Save requires a non-nil pointer, got %T", s.meta.Name, entity)
	}
	root := rv.Elem()

	idPlan, err := s.meta.Plan(s.idField.Name)
	if err != nil {
		return err
	}
	idVal, _ := idPlan.Get(root)

	key := visitKey{entity: s.meta.Name, id: idVal.Interface()}
	if isZero(idVal) {
		generated, err := s.generateID()
		if err != nil {
			return err
		}
		idPlan.Set(root, generated)
		idVal = generated
		key = visitKey{entity: s.meta.Name, id: idVal.Interface()}
	} else if visited[key] {
		// Cycle: this exact (class, id) is already being saved higher on
		// the stack. Skip recursion but the FK column still gets written
		// by the parent side below.
		return nil
	}
	visited[key] = true

	ref, existing := s.lookupID(idVal)
	var oldIndexed map[string]any
	var oldComposite [][]any
	if existing && len(s.indexMaintainers) > 0 {
		oldIndexed = s.readIndexedValues(ref.Row())
	}
	if existing && len(s.compositeMaintainers) > 0 {
		oldComposite = s.readCompositeValues(ref.Row())
	}
	if !existing {
		var err error
		ref, err = s.table.Allocate()
		if err != nil {
			return errors.Wrapf(err, "entity %q", s.meta.Name)
		}
	}
	row := ref.Row()

	writeVersion := s.table.BeginWrite(row)
	for _, f := range s.meta.Fields {
		plan, err := s.meta.Plan(f.Name)
		if err != nil {
			s.table.EndWrite(row, writeVersion)
			return err
		}
		v, present := plan.Get(root)
		io := s.fieldIO[f.Name]
		if present && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				present = false
			} else {
				v = v.Elem()
			}
		}
		if !present {
			if err := io.write(row, reflect.Value{}, true); err != nil {
				s.table.EndWrite(row, writeVersion)
				return errors.Wrapf(err, "entity %q field %q", s.meta.Name, f.Name)
			}
			continue
		}
		if err := io.write(row, v, false); err != nil {
			s.table.EndWrite(row, writeVersion)
			return errors.Wrapf(err, "entity %q field %q", s.meta.Name, f.Name)
		}
	}
	s.table.EndWrite(row, writeVersion)
	s.table.PublishAll(row)

	if idx := s.table.IDIndexOf(); idx != nil {
		idx.AddID(idVal.Interface(), ref)
	}
	s.maintainIndexes(ref, root, oldIndexed)
	s.maintainCompositeIndexes(ref, root, oldComposite)

	return s.cascadeSave(root, idVal, visited)
}

// readIndexedValues snapshots every secondary-indexed field's current
// column value before an update overwrites it, so maintainIndexes can
// remove the row's stale posting afterward.
func (s *EntitySaver) readIndexedValues(row uint32) map[string]any {
	if len(s.indexMaintainers) == 0 {
		return nil
	}
	vals := make(map[string]any, len(s.indexMaintainers))
	for _, m := range s.indexMaintainers {
		io, ok := s.fieldIO[m.fieldName]
		if !ok {
			continue
		}
		if v, present := io.read(row); present {
			vals[m.fieldName] = v.Interface()
		}
	}
	return vals
}

// maintainIndexes drops each maintained index's stale posting (present in
// oldValues, i.e. this was an update) and adds the row's current value.
func (s *EntitySaver) maintainIndexes(ref rowstore.RowRef, root reflect.Value, oldValues map[string]any) {
	for _, m := range s.indexMaintainers {
		if old, ok := oldValues[m.fieldName]; ok {
			m.remove(old, ref)
		}
		plan, err := s.meta.Plan(m.fieldName)
		if err != nil {
			continue
		}
		v, present := plan.Get(root)
		if !present {
			continue
		}
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		m.add(v.Interface(), ref)
	}
}

// readCompositeValues snapshots every composite-indexed field tuple's
// current column values before an update overwrites them, in the same
// declaration order maintainCompositeIndexes later reads them back in.
func (s *EntitySaver) readCompositeValues(row uint32) [][]any {
	out := make([][]any, len(s.compositeMaintainers))
	for i, m := range s.compositeMaintainers {
		out[i] = s.readFieldTuple(row, m.fieldNames)
	}
	return out
}

func (s *EntitySaver) readFieldTuple(row uint32, fieldNames []string) []any {
	vals := make([]any, len(fieldNames))
	for i, name := range fieldNames {
		io, ok := s.fieldIO[name]
		if !ok {
			continue
		}
		if v, present := io.read(row); present {
			vals[i] = v.Interface()
		}
	}
	return vals
}

// maintainCompositeIndexes mirrors maintainIndexes for multi-field
// composite indexes: drops the row's old tuple posting (present when this
// was an update) and adds its current tuple.
func (s *EntitySaver) maintainCompositeIndexes(ref rowstore.RowRef, root reflect.Value, oldValues [][]any) {
	for i, m := range s.compositeMaintainers {
		if oldValues != nil {
			m.remove(oldValues[i], ref)
		}
		values := make([]any, len(m.fieldNames))
		for j, name := range m.fieldNames {
			plan, err := s.meta.Plan(name)
			if err != nil {
				continue
			}
			v, present := plan.Get(root)
			if !present {
				continue
			}
			if v.Kind() == reflect.Pointer {
				if v.IsNil() {
					continue
				}
				v = v.Elem()
			}
			values[j] = v.Interface()
		}
		m.add(values, ref)
	}
}

// cascadeSave recurses into every registered cascade: for OneToMany/
// ManyToMany it establishes each child's FK column from the parent id before
// saving it, for ManyToOne/OneToOne it saves the referenced entity as is. It
// aggregates child errors with multierr so one failing child does not hide
// failures in its siblings.
func (s *EntitySaver) cascadeSave(root reflect.Value, parentID reflect.Value, visited map[visitKey]bool) error {
	var errs error
	for _, rel := range s.meta.Relations {
		child, ok := s.cascades[rel.Name]
		if !ok {
			continue
		}
		fieldVal, present := getField(root, rel.FieldIndex)
		if !present {
			continue
		}
		switch rel.Kind {
		case OneToMany, ManyToMany:
			if fieldVal.Kind() != reflect.Slice {
				continue
			}
			for i := 0; i < fieldVal.Len(); i++ {
				elem := fieldVal.Index(i)
				ptr := addrOf(elem)
				child.setFK(rel.FKColumn, ptr.Elem(), parentID)
				if err := child.save(ptr.Interface(), visited); err != nil {
					errs = multierr.Append(errs, errors.Wrapf(err, "cascade %q[%d]", rel.Name, i))
				}
			}
		case ManyToOne, OneToOne:
			if fieldVal.Kind() == reflect.Pointer && fieldVal.IsNil() {
				continue
			}
			ptr := addrOf(fieldVal)
			if err := child.save(ptr.Interface(), visited); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "cascade %q", rel.Name))
			}
		}
	}
	return errs
}

// setFK writes parentID into childRoot's FK field, if the child entity
// declares a field under that name (e.g. Order.CustomerID).
func (s *EntitySaver) setFK(fkColumn string, childRoot reflect.Value, parentID reflect.Value) {
	if fkColumn == "" {
		return
	}
	plan, err := s.meta.Plan(fkColumn)
	if err != nil {
		return
	}
	plan.Set(childRoot, parentID.Convert(fieldTypeOf(childRoot, plan.LeafIndex)))
}

func fieldTypeOf(root reflect.Value, leafIndex []int) reflect.Type {
	return root.FieldByIndex(leafIndex).Type()
}

func getField(root reflect.Value, index []int) (reflect.Value, bool) {
	if len(index) == 0 {
		return reflect.Value{}, false
	}
	return root.FieldByIndex(index), true
}

func addrOf(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Pointer {
		return v
	}
	if v.CanAddr() {
		return v.Addr()
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr
}

func isZero(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	return v.IsZero()
}

func (s *EntitySaver) lookupID(idVal reflect.Value) (rowstore.RowRef, bool) {
	idx := s.table.IDIndexOf()
	if idx == nil {
		return 0, false
	}
	return idx.LookupID(idVal.Interface())
}

// Delete tombstones ref's row and removes its id from the primary-key
// index, used by query methods compiled with query.OpDelete. It does not
// cascade: a declared OneToMany/ManyToMany child is left in place, matching
// the Spring-Data-JPA default of requiring an explicit cascade annotation
// for delete propagation.
func (s *EntitySaver) Delete(ref rowstore.RowRef) error {
	if !s.table.IsLive(ref) {
		return nil
	}
	if idx := s.table.IDIndexOf(); idx != nil {
		if idVal, ok := s.readIDForDelete(ref); ok {
			idx.RemoveID(idVal)
		}
	}
	for _, m := range s.indexMaintainers {
		io, ok := s.fieldIO[m.fieldName]
		if !ok {
			continue
		}
		if v, present := io.read(ref.Row()); present {
			m.remove(v.Interface(), ref)
		}
	}
	for _, m := range s.compositeMaintainers {
		m.remove(s.readFieldTuple(ref.Row(), m.fieldNames), ref)
	}
	s.table.Tombstone(ref)
	return nil
}

// readIDForDelete reads the id column's raw value directly via fieldIO,
// avoiding a full Materialize just to discover which index key to remove.
func (s *EntitySaver) readIDForDelete(ref rowstore.RowRef) (any, bool) {
	io, ok := s.fieldIO[s.idField.Name]
	if !ok {
		return nil, false
	}
	v, present := io.read(ref.Row())
	if !present {
		return nil, false
	}
	return v.Interface(), true
}

// generateID produces a fresh id per the entity's configured IDStrategy.
func (s *EntitySaver) generateID() (reflect.Value, error) {
	switch s.meta.IDStrategy {
	case IDIdentity:
		next := s.identityCounter.Add(1)
		return reflect.ValueOf(next).Convert(GoTypeFor(s.idField.TypeCode)), nil
	case IDUUID:
		return reflect.ValueOf(uuid.NewString()), nil
	case IDCustom:
		if s.meta.CustomID == nil {
			return reflect.Value{}, errors.Wrapf(merrors.ErrIDGenerationFailure, "entity %q: IDCustom strategy with no generator", s.meta.Name)
		}
		v, err := s.meta.CustomID()
		if err != nil || v == nil {
			return reflect.Value{}, errors.Wrapf(merrors.ErrIDGenerationFailure, "entity %q: custom generator failed: %v", s.meta.Name, err)
		}
		return reflect.ValueOf(v), nil
	default:
		return reflect.Value{}, errors.Wrapf(merrors.ErrIDGenerationFailure, "entity %q: unknown id strategy", s.meta.Name)
	}
}
