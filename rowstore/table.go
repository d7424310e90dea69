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

import (
	"sync/atomic"

	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/Thejuampi/memris-sub003/typecode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IDIndex is the narrow view of a primary-key index that Table needs: it
// lets joins and the saver probe "does this id already have a row" without
// rowstore importing the index package. index.HashIndex satisfies it via a
// small adapter.
type IDIndex interface {
	AddID(key any, ref RowRef)
	RemoveID(key any)
	LookupID(key any) (RowRef, bool)
}

type columnEntry struct {
	name     string
	typeCode typecode.TypeCode
	nullable bool
	col      any
}

// Table owns one entity's columns, allocator, tombstones, per-row
// seqlocks, and (optionally) a reference to its primary-key index.
type Table struct {
	Name string

	pageSize int
	maxPages int

	columns   []columnEntry
	nameIndex map[string]int

	alloc      *allocator
	tomb       *atomicBitset
	generation []atomic.Uint32
	seq        *seqlockTable

	liveCount      atomic.Int64
	allocatedCount atomic.Int64

	idIndex IDIndex
	logger  *zap.Logger
}

// NewTable allocates a table with capacity pageSize*maxPages rows.
func NewTable(name string, pageSize, maxPages int, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	capacity := uint32(pageSize * maxPages)
	return &Table{
		Name:      name,
		pageSize:  pageSize,
		maxPages:  maxPages,
		nameIndex: make(map[string]int),

		alloc:      newAllocator(capacity),
		tomb:       newAtomicBitset(int(capacity)),
		generation: make([]atomic.Uint32, capacity),
		seq:        newSeqlockTable(int(capacity)),
		logger:     logger,
	}
}

// AddColumn registers a new typed column in declaration order and returns
// its dense column index (FieldMetadata.columnPosition).
func (t *Table) AddColumn(name string, tc typecode.TypeCode, nullable bool) (int, error) {
	var col any
	switch tc {
	case typecode.Int:
		col = NewPagedColumn[int32](t.pageSize, t.maxPages, nullable, t.tomb)
	case typecode.Long:
		col = NewPagedColumn[int64](t.pageSize, t.maxPages, nullable, t.tomb)
	case typecode.Bool:
		col = NewPagedColumn[bool](t.pageSize, t.maxPages, nullable, t.tomb)
	case typecode.Byte:
		col = NewPagedColumn[byte](t.pageSize, t.maxPages, nullable, t.tomb)
	case typecode.Short:
		col = NewPagedColumn[int16](t.pageSize, t.maxPages, nullable, t.tomb)
	case typecode.Char:
		col = NewPagedColumn[rune](t.pageSize, t.maxPages, nullable, t.tomb)
	case typecode.Float:
		col = NewPagedColumn[float32](t.pageSize, t.maxPages, nullable, t.tomb)
	case typecode.Double:
		col = NewPagedColumn[float64](t.pageSize, t.maxPages, nullable, t.tomb)
	case typecode.String:
		col = NewStringColumn(t.pageSize, t.maxPages, nullable, t.tomb)
	default:
		return 0, errors.Wrapf(merrors.ErrUnsupportedType, "column %q has type code %v", name, tc)
	}
	idx := len(t.columns)
	t.columns = append(t.columns, columnEntry{name: name, typeCode: tc, nullable: nullable, col: col})
	t.nameIndex[name] = idx
	return idx, nil
}

// ColumnIndex resolves a column name to its dense position, used only
// during registration.
func (t *Table) ColumnIndex(name string) (int, bool) {
	idx, ok := t.nameIndex[name]
	return idx, ok
}

// ColumnAt returns the typed column at idx, asserting its Go representation
// matches T. This is a single type assertion, not reflection.
func ColumnAt[T any](t *Table, idx int) (*PagedColumn[T], bool) {
	col, ok := t.columns[idx].col.(*PagedColumn[T])
	return col, ok
}

// StringColumnAt returns the string column at idx.
func StringColumnAt(t *Table, idx int) (*StringColumn, bool) {
	col, ok := t.columns[idx].col.(*StringColumn)
	return col, ok
}

// ColumnCount returns the number of declared columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// TypeCodeAt returns the TypeCode of the column at idx.
func (t *Table) TypeCodeAt(idx int) typecode.TypeCode { return t.columns[idx].typeCode }

// SetIDIndex attaches the primary-key index; called once by the entity
// layer after both the table and its id index have been built.
func (t *Table) SetIDIndex(idx IDIndex) { t.idIndex = idx }

// IDIndexOf returns the attached primary-key index, or nil.
func (t *Table) IDIndexOf() IDIndex { return t.idIndex }

// Allocate reserves a row slot (reused or fresh), bumping its generation and
// clearing its tombstone, without writing any column values. Callers
// (EntitySaver) follow with BeginWrite/column writes/EndWrite/PublishAll.
func (t *Table) Allocate() (RowRef, error) {
	row, ok := t.alloc.allocate()
	if !ok {
		return 0, errors.Wrapf(merrors.ErrCapacityExceeded, "table %q: no free slot among %d rows", t.Name, len(t.generation))
	}
	gen := t.generation[row].Add(1)
	t.tomb.clear(row)
	t.liveCount.Add(1)
	t.allocatedCount.Add(1)
	return NewRowRef(gen, row), nil
}

// BeginWrite acquires the row's seqlock for a multi-column write.
func (t *Table) BeginWrite(row uint32) uint64 { return t.seq.beginWrite(row) }

// EndWrite releases the row's seqlock.
func (t *Table) EndWrite(row uint32, writeVersion uint64) { t.seq.endWrite(row, writeVersion) }

// PublishAll advances every column's watermark to at least row+1. Call
// after EndWrite, before updating secondary indexes.
func (t *Table) PublishAll(row uint32) {
	for _, c := range t.columns {
		switch col := c.col.(type) {
		case *PagedColumn[int32]:
			col.Publish(row + 1)
		case *PagedColumn[int64]:
			col.Publish(row + 1)
		case *PagedColumn[bool]:
			col.Publish(row + 1)
		case *PagedColumn[byte]:
			col.Publish(row + 1)
		case *PagedColumn[int16]:
			col.Publish(row + 1)
		case *PagedColumn[rune]:
			col.Publish(row + 1)
		case *PagedColumn[float32]:
			col.Publish(row + 1)
		case *PagedColumn[float64]:
			col.Publish(row + 1)
		case *StringColumn:
			col.Publish(row + 1)
		}
	}
}

// Tombstone marks ref's row deleted. Idempotent: a double-delete only ever
// decrements liveCount once, because only the thread that wins the 0->1 CAS
// on the tombstone bit proceeds to decrement and free-list the row.
func (t *Table) Tombstone(ref RowRef) {
	row := ref.Row()
	if t.generation[row].Load() != ref.Generation() {
		return // stale ref: already reused, nothing to do
	}
	if !t.tomb.set(row) {
		return // already tombstoned by someone else
	}
	t.liveCount.Add(-1)
	t.alloc.push(row)
}

// IsLive reports whether ref still refers to a live row.
func (t *Table) IsLive(ref RowRef) bool {
	row := ref.Row()
	return t.generation[row].Load() == ref.Generation() && !t.tomb.get(row)
}

// GenerationOf returns the current generation stamped on row, regardless of
// liveness, for minting fresh RowRefs from a row id discovered by a scan.
func (t *Table) GenerationOf(row uint32) uint32 { return t.generation[row].Load() }

// IsTombstoned reports the raw tombstone bit for row, independent of
// generation; used by scans that already iterate row ids.
func (t *Table) IsTombstoned(row uint32) bool { return t.tomb.get(row) }

// LiveCount returns the number of currently live (non-tombstoned) rows.
func (t *Table) LiveCount() int64 { return t.liveCount.Load() }

// AllocatedCount returns the number of rows ever allocated (including ones
// since tombstoned and possibly reused).
func (t *Table) AllocatedCount() int64 { return t.allocatedCount.Load() }

// ReadConsistent executes fn with a proof that every column read inside it
// observed a single consistent instant for row. Used by materialization;
// simple single-column scans rely on the watermark instead.
func (t *Table) ReadConsistent(row uint32, fn func()) error {
	return t.seq.readConsistent(row, fn)
}

// RowExtent returns the exclusive upper bound of row ids ever handed out by
// Allocate, the bound a full-table scan must iterate up to when no column's
// own published watermark applies (e.g. a zero-condition findAll/count).
func (t *Table) RowExtent() uint32 { return t.alloc.nextRow.Load() }

// RowRefFor mints a RowRef for row using its current generation, skipping
// (ok=false) if the row is tombstoned. Used to convert scan/index row ids
// into RowRefs at the point of use.
func (t *Table) RowRefFor(row uint32) (RowRef, bool) {
	if t.tomb.get(row) {
		return 0, false
	}
	return NewRowRef(t.generation[row].Load(), row), true
}

// Logger returns the table's diagnostic logger.
func (t *Table) Logger() *zap.Logger { return t.logger }
