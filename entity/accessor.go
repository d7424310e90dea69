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

import "reflect"

// navigate walks the plan's embedding steps from root, constructing any nil
// intermediate pointer when construct is true. ok is false when an
// intermediate pointer was nil and construct was false (embedded object
// absent).
func navigate(root reflect.Value, steps []AccessStep, construct bool) (reflect.Value, bool) {
	v := root
	for _, step := range steps {
		v = v.FieldByIndex(step.FieldIndex)
		if step.IsPointer {
			if v.IsNil() {
				if !construct {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(step.ElemType))
			}
			v = v.Elem()
		}
	}
	return v, true
}

// Get returns plan's leaf field value from root. ok is false if an
// embedded intermediate is absent (nil pointer).
func (p *ColumnAccessPlan) Get(root reflect.Value) (value reflect.Value, ok bool) {
	v, ok := navigate(root, p.Steps, false)
	if !ok {
		return reflect.Value{}, false
	}
	return v.FieldByIndex(p.LeafIndex), true
}

// Set writes value into plan's leaf field on root, constructing any nil
// embedded intermediate along the way.
func (p *ColumnAccessPlan) Set(root reflect.Value, value reflect.Value) {
	v, _ := navigate(root, p.Steps, true)
	v.FieldByIndex(p.LeafIndex).Set(value)
}

// SetAuto writes value into plan's leaf field, converting to the field's
// exact numeric type and, if the field is itself a pointer (the
// convention for a nullable scalar such as *int), allocating a fresh
// pointer and setting its element. Used by EntityMaterializer, whose
// columnIO.read values come back as the column's own Go representation
// (e.g. int, int64) rather than the struct field's declared type.
func (p *ColumnAccessPlan) SetAuto(root reflect.Value, value reflect.Value) {
	v, _ := navigate(root, p.Steps, true)
	leaf := v.FieldByIndex(p.LeafIndex)
	if leaf.Kind() == reflect.Pointer {
		elem := reflect.New(leaf.Type().Elem())
		elem.Elem().Set(value.Convert(leaf.Type().Elem()))
		leaf.Set(elem)
		return
	}
	leaf.Set(value.Convert(leaf.Type()))
}

// ClearAuto sets plan's leaf field to its zero value (nil for a pointer,
// the type's zero otherwise), used when a column read reports the value
// absent for a nullable field.
func (p *ColumnAccessPlan) ClearAuto(root reflect.Value) {
	v, ok := navigate(root, p.Steps, false)
	if !ok {
		return
	}
	leaf := v.FieldByIndex(p.LeafIndex)
	leaf.Set(reflect.Zero(leaf.Type()))
}
