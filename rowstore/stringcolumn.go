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

package rowstore

import "strings"

// StringColumn wraps PagedColumn[string] with string-specific scans
// (startsWith/contains/ignoreCaseEquals). Go generics forbid attaching
// methods to one instantiation of a generic type directly, so the string
// scans live on this thin wrapper instead.
type StringColumn struct {
	*PagedColumn[string]
}

// NewStringColumn allocates a nullable-aware string column. Null is
// distinct from empty string: presence is tracked by the present bitmap,
// not inferred from the zero value.
func NewStringColumn(pageSize, maxPages int, nullable bool, tomb *atomicBitset) *StringColumn {
	return &StringColumn{PagedColumn: NewPagedColumn[string](pageSize, maxPages, nullable, tomb)}
}

// ScanStartsWith returns rows whose value has prefix, optionally folding
// case with the locale-independent fold used throughout the column.
func (c *StringColumn) ScanStartsWith(prefix string, ignoreCase bool, limit int) []uint32 {
	if ignoreCase {
		prefix = foldLower(prefix)
		return c.ScanPredicate(func(v string) bool { return strings.HasPrefix(foldLower(v), prefix) }, limit)
	}
	return c.ScanPredicate(func(v string) bool { return strings.HasPrefix(v, prefix) }, limit)
}

// ScanEndsWith returns rows whose value has suffix.
func (c *StringColumn) ScanEndsWith(suffix string, ignoreCase bool, limit int) []uint32 {
	if ignoreCase {
		suffix = foldLower(suffix)
		return c.ScanPredicate(func(v string) bool { return strings.HasSuffix(foldLower(v), suffix) }, limit)
	}
	return c.ScanPredicate(func(v string) bool { return strings.HasSuffix(v, suffix) }, limit)
}

// ScanContains returns rows whose value contains substr.
func (c *StringColumn) ScanContains(substr string, ignoreCase bool, limit int) []uint32 {
	if ignoreCase {
		substr = foldLower(substr)
		return c.ScanPredicate(func(v string) bool { return strings.Contains(foldLower(v), substr) }, limit)
	}
	return c.ScanPredicate(func(v string) bool { return strings.Contains(v, substr) }, limit)
}

// ScanIgnoreCaseEquals returns rows equal to target under the locale
// independent fold.
func (c *StringColumn) ScanIgnoreCaseEquals(target string, limit int) []uint32 {
	target = foldLower(target)
	return c.ScanPredicate(func(v string) bool { return foldLower(v) == target }, limit)
}
