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

// Package query compiles pre-tokenized MethodDescriptors into
// CompiledQuery plans: property paths resolved to column indices, operators
// validated against their column's TypeCode, no string keys surviving past
// registration time.
package query

import (
	"github.com/Thejuampi/memris-sub003/entity"
	"github.com/Thejuampi/memris-sub003/index"
	"github.com/Thejuampi/memris-sub003/typecode"
)

// IndexHandle names one accelerated index available for a property path:
// its family (Kind) and the type-erased index value itself (one of
// *index.HashIndex[K], *index.RangeIndex[K], *index.PrefixIndex,
// *index.SuffixIndex, *index.CompositeHashIndex, *index.CompositeRangeIndex),
// type-asserted by the execution kernel using the column's TypeCode.
type IndexHandle struct {
	Kind  index.Kind
	Value any
}

// Catalog maps a resolved property path to the index accelerating it, built
// by the arena at registration time from each entity's IndexDeclarations.
type Catalog map[string]IndexHandle

// Operator is a tagged condition operator, dispatched with its TypeCode by
// the execution kernel.
type Operator byte

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterThanEqual
	OpLessThan
	OpLessThanEqual
	OpBetween
	OpIn
	OpStartsWith
	OpEndsWith
	OpContains
	OpIsNull
	OpIsNotNull
)

// Opcode names the top-level repository operation a MethodDescriptor
// compiles into.
type Opcode byte

const (
	OpFind Opcode = iota
	OpCount
	OpExists
	OpDelete
	OpSave
)

// ReturnKind names the shape executors must produce.
type ReturnKind byte

const (
	ReturnList ReturnKind = iota
	ReturnOptional
	ReturnSet
	ReturnCount
	ReturnBool
	ReturnGroupedMap
)

// Condition is the caller-supplied, pre-tokenized descriptor for one
// predicate in a MethodDescriptor: `{ path, op, ignoreCase }`.
type Condition struct {
	Path       string
	Op         Operator
	IgnoreCase bool
}

// OrderSpec names the single-key ordering a MethodDescriptor requests.
// Stability is only required for single-key ordering.
type OrderSpec struct {
	Path string
	Desc bool
}

// MethodDescriptor is the pre-tokenized description of one repository
// method the caller hands in. The core never parses a method
// name; it only consumes this shape.
type MethodDescriptor struct {
	Opcode          Opcode
	ReturnKind      ReturnKind
	Conditions      []Condition
	OrGroups        [][]int // each group is a set of indices into Conditions
	OrderBy         *OrderSpec
	Limit           int // 0 means unlimited
	ProjectionShape []string
	Arity           int
	GroupByPath     string // set when ReturnKind == ReturnGroupedMap
}

// CompiledCondition is a Condition with its property path resolved to a
// column index and validated operator.
type CompiledCondition struct {
	ColumnIndex  int
	TypeCode     typecode.TypeCode
	Operator     Operator
	IgnoreCase   bool
	ArgumentSlot int // index into the executor's argument vector
	Plan         *entity.ColumnAccessPlan

	// Indexed is true when an accelerated index backs this condition's
	// operator. Index is the zero value otherwise.
	Indexed bool
	Index   IndexHandle
}

// CompiledOrder is an OrderSpec with its path resolved.
type CompiledOrder struct {
	ColumnIndex int
	TypeCode    typecode.TypeCode
	Desc        bool
	Plan        *entity.ColumnAccessPlan
}

// ProjectionField is one resolved field of a record-like projection shape:
// the kernel reads it directly off the column rather than materializing
// the full entity and discarding the rest.
type ProjectionField struct {
	Name        string
	ColumnIndex int
	TypeCode    typecode.TypeCode
	Plan        *entity.ColumnAccessPlan
}

// CompiledJoinCondition is a compiled dotted relation-path condition, e.g.
// "Orders.Status" on Customer: the owning entity's relation being
// navigated, and the condition itself compiled against the target
// entity's own metadata and catalog, ready to run as a one-condition
// CompiledQuery against the target's table.
type CompiledJoinCondition struct {
	RelationName    string
	Kind            entity.RelationKind
	TargetCondition CompiledCondition
}

// RelatedEntity is the target-side metadata and catalog a relation-path
// condition needs to compile, supplied by the arena for every OneToMany/
// ManyToMany relation it has already registered.
type RelatedEntity struct {
	Meta    *entity.EntityMetadata
	Catalog Catalog
}

// Related maps a relation name to its target entity's metadata/catalog.
type Related map[string]RelatedEntity

// CompiledQuery is the immutable, registration-time output of compiling one
// MethodDescriptor against an EntityMetadata. Executors hold a
// reference to one of these plus the Table/Index map/saver/materializer.
type CompiledQuery struct {
	Opcode      Opcode
	ReturnKind  ReturnKind
	Conditions  []CompiledCondition
	OrGroups    [][]int
	Joins       []CompiledJoinCondition
	OrderBy     *CompiledOrder
	Limit       int
	GroupBy     *CompiledCondition
	Projection  []ProjectionField
	Arity       int
	EntityName  string
}
