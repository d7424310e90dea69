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

// Package index implements the accelerated-lookup subsystem: hash, ordered
// range, string prefix/suffix, and composite variants, kept consistent with
// the table under the same copy-on-write concurrency model.
package index

import (
	"github.com/Thejuampi/memris-sub003/rowstore"
)

// Entry is one index posting: a row id plus the generation the row had when
// the entry was added. A lookup filters out entries whose generation no
// longer matches the table's current value for that row, which is what
// makes stale postings harmless after deletes or updates.
type Entry struct {
	Row        uint32
	Generation uint32
}

// liveChecker is the narrow view of Table an index needs to drop stale
// postings at lookup time.
type liveChecker interface {
	GenerationOf(row uint32) uint32
	IsTombstoned(row uint32) bool
}

// toSelection filters entries to those still matching the table's current
// generation for their row, then builds a Selection from the survivors,
// picking array vs bitset threshold (delegated to
// rowstore.Selection, which all scans and indexes share).
func toSelection(entries []Entry, t liveChecker) rowstore.Selection {
	ids := make([]uint32, 0, len(entries))
	for _, e := range entries {
		if !t.IsTombstoned(e.Row) && t.GenerationOf(e.Row) == e.Generation {
			ids = append(ids, e.Row)
		}
	}
	return rowstore.NewSelectionFromIDs(ids)
}

// Kind names the index's accelerated operator family, used by the query
// compiler to decide whether a condition is indexable.
type Kind byte

const (
	KindHash Kind = iota
	KindRange
	KindPrefix
	KindSuffix
	KindCompositeHash
	KindCompositeRange
)
