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

// Package merrors is the stable error taxonomy for the core. Each kind maps
// to exactly one sentinel; new operators or types extend the set, they never
// renumber it. Callers match kinds with errors.Is; context is attached with
// github.com/pkg/errors so failures carry a stack trace to the point of origin.
package merrors

import "errors"

// Sentinel error kinds.
var (
	// ErrEntityNotRegistered: a table was requested for an unknown class.
	ErrEntityNotRegistered = errors.New("memris: entity not registered")
	// ErrUnsupportedType: a field type has no TypeCode.
	ErrUnsupportedType = errors.New("memris: unsupported field type")
	// ErrUnsupportedOperator: a compiled condition's operator is not
	// implemented for its type.
	ErrUnsupportedOperator = errors.New("memris: unsupported operator for type")
	// ErrInvalidPropertyPath: a dotted path could not be resolved during
	// registration.
	ErrInvalidPropertyPath = errors.New("memris: invalid property path")
	// ErrCapacityExceeded: the allocator cannot grow a column further.
	ErrCapacityExceeded = errors.New("memris: capacity exceeded")
	// ErrTornRead: the seqlock pessimistic fallback exhausted its retries.
	ErrTornRead = errors.New("memris: torn read, retry")
	// ErrIDGenerationFailure: a custom generator returned a nil/duplicate id.
	ErrIDGenerationFailure = errors.New("memris: id generation failure")
	// ErrDuplicateRegistration: two entities registered under the same name.
	ErrDuplicateRegistration = errors.New("memris: duplicate entity registration")
	// ErrUnsupportedRelationQuery: a condition navigates a relation path
	// whose cardinality has no compiled join strategy yet (ManyToMany).
	ErrUnsupportedRelationQuery = errors.New("memris: unsupported relation-path query")
)

// Is reports whether err wraps target anywhere in its chain. Thin alias kept
// so callers need only import this package, not errors, for the common case.
func Is(err, target error) bool { return errors.Is(err, target) }
