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

	"github.com/Thejuampi/memris-sub003/entity"
)

// EntityRegistration is the pure descriptor a caller hands in for one
// entity class. The core performs no
// annotation processing: every field here is already resolved by the
// caller's (external) reflection/annotation layer.
type EntityRegistration struct {
	Name       string
	GoType     reflect.Type
	Fields     []entity.FieldSpec
	IDStrategy entity.IDStrategy
	CustomID   func() (any, error)
	Relations  []entity.RelationSpec
	Indexes    []entity.IndexDeclaration
}
