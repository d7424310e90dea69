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

// Package memris is the public facade: an in-process, column-oriented
// object store driven by pre-resolved entity registrations and
// pre-tokenized query methods rather than runtime annotation scanning. It
// contains no logic of its own beyond delegating to arena, entity, and
// query.
package memris

import (
	"github.com/Thejuampi/memris-sub003/arena"
	"github.com/Thejuampi/memris-sub003/entity"
	"github.com/Thejuampi/memris-sub003/query"
)

// Re-exported so callers never need to import the internal arena/entity/
// query packages directly to drive the facade.
type (
	Config              = arena.Config
	EntityRegistration  = arena.EntityRegistration
	FieldSpec           = entity.FieldSpec
	RelationSpec        = entity.RelationSpec
	IndexDeclaration    = entity.IndexDeclaration
	IDStrategy          = entity.IDStrategy
	RelationKind        = entity.RelationKind
	MethodDescriptor    = query.MethodDescriptor
	Condition           = query.Condition
	OrderSpec           = query.OrderSpec
	Operator            = query.Operator
	Opcode              = query.Opcode
	ReturnKind          = query.ReturnKind
)

const (
	IDIdentity = entity.IDIdentity
	IDUUID     = entity.IDUUID
	IDCustom   = entity.IDCustom
)

const (
	ManyToOne  = entity.ManyToOne
	OneToMany  = entity.OneToMany
	ManyToMany = entity.ManyToMany
	OneToOne   = entity.OneToOne
)

const (
	OpEquals           = query.OpEquals
	OpNotEquals        = query.OpNotEquals
	OpGreaterThan      = query.OpGreaterThan
	OpGreaterThanEqual = query.OpGreaterThanEqual
	OpLessThan         = query.OpLessThan
	OpLessThanEqual    = query.OpLessThanEqual
	OpBetween          = query.OpBetween
	OpIn               = query.OpIn
	OpStartsWith       = query.OpStartsWith
	OpEndsWith         = query.OpEndsWith
	OpContains         = query.OpContains
	OpIsNull           = query.OpIsNull
	OpIsNotNull        = query.OpIsNotNull
)

const (
	OpFind   = query.OpFind
	OpCount  = query.OpCount
	OpExists = query.OpExists
	OpDelete = query.OpDelete
	OpSave   = query.OpSave
)

const (
	ReturnList       = query.ReturnList
	ReturnOptional   = query.ReturnOptional
	ReturnSet        = query.ReturnSet
	ReturnCount      = query.ReturnCount
	ReturnBool       = query.ReturnBool
	ReturnGroupedMap = query.ReturnGroupedMap
)

// Store is the caller-facing handle on one running Arena: register every
// entity class, call Wire once the full entity graph is known, register
// every repository method, then Execute by queryId.
type Store struct {
	a *arena.Arena
}

// DefaultConfig returns the documented default Config.
func DefaultConfig() Config {
	return arena.DefaultConfig()
}

// New builds a Store backed by a fresh Arena configured by cfg.
func New(cfg Config) *Store {
	return &Store{a: arena.NewArena(cfg)}
}

// RegisterEntity registers one entity class's table, primary-key index,
// declared secondary indexes, saver, and materializer.
func (s *Store) RegisterEntity(reg EntityRegistration) error {
	return s.a.RegisterEntity(reg)
}

// Wire resolves cross-entity relationships once every entity class in the
// graph has been registered: eager ManyToOne/OneToOne resolution, cascade
// save for every relation kind, and join resolvers for OneToMany
// relation-path queries.
func (s *Store) Wire() error {
	return s.a.Wire()
}

// RegisterQuery compiles md for entityName and stores the resulting
// executor at the dense index queryID.
func (s *Store) RegisterQuery(entityName string, queryID int, md MethodDescriptor) error {
	return s.a.RegisterQuery(entityName, queryID, md)
}

// Execute runs the method registered at queryID against args.
func (s *Store) Execute(queryID int, args []any) (any, error) {
	return s.a.Execute(queryID, args)
}
