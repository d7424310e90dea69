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

// Package entity is the row<->entity bridge: field/entity metadata, compiled
// column access plans, and the savers/materializers that move values
// between user structs and column cells.
package entity

import (
	"reflect"
	"strings"

	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
)

// IDStrategy names how a new entity's id is produced.
type IDStrategy byte

const (
	IDIdentity IDStrategy = iota // monotonically increasing atomic counter
	IDUUID                       // random 128-bit value, stored as string
	IDCustom                     // caller-supplied generator
)

// RelationKind names a declared relationship's cardinality.
type RelationKind byte

const (
	ManyToOne RelationKind = iota
	OneToMany
	ManyToMany
	OneToOne
)

// FieldMetadata describes one storable field, as registered by the caller.
// ColumnPosition is assigned by the table builder in declaration order;
// -1 means synthetic/relationship-only.
type FieldMetadata struct {
	Name           string
	TypeCode       typecode.TypeCode
	IsID           bool
	Nullable       bool
	ColumnPosition int

	// fieldIndex is the reflect.Value.FieldByIndex path from the entity's
	// struct root to this field, resolved once at registration so no
	// per-call name lookup is ever needed (ColumnAccessPlan's leaf step).
	fieldIndex []int
}

// RelationMetadata describes one declared relationship.
type RelationMetadata struct {
	Name       string
	Kind       RelationKind
	Target     string // target entity name
	FKColumn   string // owning-side foreign key column name
	FieldIndex []int  // FieldByIndex path of the relation's own struct field
}

// IndexDeclaration names one accelerated index the caller wants built.
type IndexDeclaration struct {
	Name   string
	Fields []string
	Kind   byte // mirrors index.Kind, kept untyped here to avoid an import cycle
}

// AccessStep is one hop of a ColumnAccessPlan: navigate into a (possibly
// pointer) embedded struct field, optionally constructing it if nil/absent.
type AccessStep struct {
	FieldIndex []int
	IsPointer  bool
	ElemType   reflect.Type // non-nil when IsPointer, used to construct on absence
}

// ColumnAccessPlan is the compiled descriptor for reading/writing a
// (possibly embedded) dotted property path, resolved once at registration.
type ColumnAccessPlan struct {
	Path           string
	Steps          []AccessStep // embedding hops, root to the struct owning the leaf
	LeafIndex      []int        // FieldByIndex path of the leaf field within that struct
	ColumnPosition int
	TypeCode       typecode.TypeCode
}

// EntityMetadata is the compiled description of one registered entity
// class: its storable fields, id strategy, relationships, index
// declarations, and every resolved ColumnAccessPlan used by a query or
// saver/materializer.
type EntityMetadata struct {
	Name       string
	GoType     reflect.Type // the concrete struct type, never a pointer
	Fields     []FieldMetadata
	IDField    string
	IDTypeCode typecode.TypeCode
	IDStrategy IDStrategy
	CustomID   func() (any, error) // used only when IDStrategy == IDCustom

	Relations []RelationMetadata
	Indexes   []IndexDeclaration

	plans map[string]*ColumnAccessPlan
}

// FieldSpec is the pure descriptor the caller hands in for one field,
// mirroring EntityRegistration: no annotation processing happens
// inside the core.
type FieldSpec struct {
	Name     string
	TypeCode typecode.TypeCode
	Nullable bool
	IsID     bool
}

// RelationSpec is the caller-supplied descriptor for one relationship.
type RelationSpec struct {
	Name     string
	Kind     RelationKind
	Target   string
	FKColumn string
}

// BuildMetadata resolves field names (including dotted embedded paths) and
// relationship names against goType's struct layout, producing an
// EntityMetadata with every FieldMetadata.fieldIndex and embedded
// ColumnAccessPlan already compiled. It is the only place in the entity
// package that touches reflect.Type.FieldByName; everything downstream
// walks pre-resolved []int index paths.
func BuildMetadata(name string, goType reflect.Type, fields []FieldSpec, idStrategy IDStrategy, customID func() (any, error), relations []RelationSpec, indexes []IndexDeclaration) (*EntityMetadata, error) {
	if goType.Kind() == reflect.Pointer {
		goType = goType.Elem()
	}
	em := &EntityMetadata{
		Name:       name,
		GoType:     goType,
		IDStrategy: idStrategy,
		CustomID:   customID,
		Indexes:    indexes,
		plans:      make(map[string]*ColumnAccessPlan),
	}

	pos := 0
	for _, f := range fields {
		steps, leaf, err := resolvePath(goType, f.Name)
		if err != nil {
			return nil, errors.Wrapf(merrors.ErrInvalidPropertyPath, "entity %q field %q: %v", name, f.Name, err)
		}
		fm := FieldMetadata{
			Name:           f.Name,
			TypeCode:       f.TypeCode,
			IsID:           f.IsID,
			Nullable:       f.Nullable,
			ColumnPosition: pos,
			fieldIndex:     leaf,
		}
		pos++
		em.Fields = append(em.Fields, fm)
		em.plans[f.Name] = &ColumnAccessPlan{Path: f.Name, Steps: steps, LeafIndex: leaf, ColumnPosition: fm.ColumnPosition, TypeCode: f.TypeCode}
		if f.IsID {
			em.IDField = f.Name
			em.IDTypeCode = f.TypeCode
		}
	}

	for _, r := range relations {
		steps, leaf, err := resolvePath(goType, r.Name)
		if err != nil {
			return nil, errors.Wrapf(merrors.ErrInvalidPropertyPath, "entity %q relation %q: %v", name, r.Name, err)
		}
		_ = steps
		em.Relations = append(em.Relations, RelationMetadata{Name: r.Name, Kind: r.Kind, Target: r.Target, FKColumn: r.FKColumn, FieldIndex: leaf})
	}

	return em, nil
}

// FieldByName returns the compiled FieldMetadata for name, and ok=false if
// unregistered.
func (em *EntityMetadata) FieldByName(name string) (FieldMetadata, bool) {
	for _, f := range em.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldMetadata{}, false
}

// RelationByName returns the compiled RelationMetadata for name.
func (em *EntityMetadata) RelationByName(name string) (RelationMetadata, bool) {
	for _, r := range em.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return RelationMetadata{}, false
}

// Plan resolves a dotted property path (e.g. "profile.address.city") to its
// compiled ColumnAccessPlan. Paths are resolved lazily on first use by a
// query/saver and cached, since the full cross-product of paths a query
// might reference is not known until registration of that query — but once
// resolved, the plan is immutable and reused for the life of the Arena.
func (em *EntityMetadata) Plan(path string) (*ColumnAccessPlan, error) {
	if p, ok := em.plans[path]; ok {
		return p, nil
	}
	return nil, errors.Wrapf(merrors.ErrInvalidPropertyPath, "entity %q: no resolved plan for path %q", em.Name, path)
}

// ResolvePlan compiles and caches a ColumnAccessPlan for a dotted embedded
// path whose leaf field carries typeCode at columnPosition. Called once per
// distinct path during query/saver registration.
func (em *EntityMetadata) ResolvePlan(path string, columnPosition int, typeCode typecode.TypeCode) (*ColumnAccessPlan, error) {
	if p, ok := em.plans[path]; ok {
		return p, nil
	}
	steps, leaf, err := resolvePath(em.GoType, path)
	if err != nil {
		return nil, errors.Wrapf(merrors.ErrInvalidPropertyPath, "entity %q path %q: %v", em.Name, path, err)
	}
	p := &ColumnAccessPlan{Path: path, Steps: steps, LeafIndex: leaf, ColumnPosition: columnPosition, TypeCode: typeCode}
	em.plans[path] = p
	return p, nil
}

// resolvePath walks a dotted path (e.g. "profile.address.city") against
// root's struct fields (matched case-insensitively against exported field
// names, since registered field names follow the caller's naming, not Go
// exported-identifier case), returning the embedding steps and the leaf
// field's own index.
func resolvePath(root reflect.Type, path string) ([]AccessStep, []int, error) {
	parts := strings.Split(path, ".")
	t := root
	var steps []AccessStep
	var leaf []int
	for i, part := range parts {
		sf, ok := findField(t, part)
		if !ok {
			return nil, nil, errors.Errorf("no field %q on %s", part, t)
		}
		last := i == len(parts)-1
		if last {
			leaf = sf.Index
			return steps, leaf, nil
		}
		ft := sf.Type
		isPtr := ft.Kind() == reflect.Pointer
		if isPtr {
			ft = ft.Elem()
		}
		steps = append(steps, AccessStep{FieldIndex: sf.Index, IsPointer: isPtr, ElemType: ft})
		t = ft
	}
	return steps, leaf, errors.New("empty path")
}

// findField looks up a struct field by name, case-insensitively, since
// registered field names in EntityRegistration follow the caller's own
// naming convention rather than Go's exported-identifier casing.
func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	if sf, ok := t.FieldByName(strings.ToUpper(name[:1]) + name[1:]); ok {
		return sf, true
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if strings.EqualFold(sf.Name, name) {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}
