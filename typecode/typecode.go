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

// Package typecode defines the single-byte type tags used to discriminate
// column payloads and drive typed dispatch across the storage engine.
package typecode

import "math"

// TypeCode is a single-byte tag enumerating the primitive shapes a column
// can store. It is a discriminator, not an ordered enumeration: do not
// compare TypeCodes with < or > to mean anything about the underlying
// values.
type TypeCode byte

const (
	Invalid TypeCode = iota
	Int
	Long
	Bool
	Byte
	Short
	Char
	Float
	Double
	String
)

// String renders the TypeCode for logs and error messages.
func (t TypeCode) String() string {
	switch t {
	case Int:
		return "INT"
	case Long:
		return "LONG"
	case Bool:
		return "BOOL"
	case Byte:
		return "BYTE"
	case Short:
		return "SHORT"
	case Char:
		return "CHAR"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case String:
		return "STRING"
	default:
		return "INVALID"
	}
}

// Numeric reports whether the type code denotes a numeric column, i.e. one
// whose scanBetween/scanIn support ordering via encoded integers.
func (t TypeCode) Numeric() bool {
	switch t {
	case Int, Long, Byte, Short, Char, Float, Double:
		return true
	default:
		return false
	}
}

// EncodeFloat32 maps an IEEE-754 float32 to a sortable uint32: flips the
// sign bit for non-negatives, bitwise-complements for negatives. Ordering on
// the encoded value matches IEEE ordering, including for range scans.
func EncodeFloat32(f float32) uint32 {
	bits := math.Float32bits(f)
	if bits&0x8000_0000 != 0 {
		return ^bits
	}
	return bits | 0x8000_0000
}

// DecodeFloat32 inverts EncodeFloat32.
func DecodeFloat32(enc uint32) float32 {
	if enc&0x8000_0000 != 0 {
		return math.Float32frombits(enc &^ 0x8000_0000)
	}
	return math.Float32frombits(^enc)
}

// EncodeFloat64 is the 64-bit analogue of EncodeFloat32.
func EncodeFloat64(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&0x8000_0000_0000_0000 != 0 {
		return ^bits
	}
	return bits | 0x8000_0000_0000_0000
}

// DecodeFloat64 inverts EncodeFloat64.
func DecodeFloat64(enc uint64) float64 {
	if enc&0x8000_0000_0000_0000 != 0 {
		return math.Float64frombits(enc &^ 0x8000_0000_0000_0000)
	}
	return math.Float64frombits(^enc)
}
