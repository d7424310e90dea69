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
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Thejuampi/memris-sub003/merrors"
	"github.com/cenkalti/backoff/v4"
)

// seqlockTable is a per-row even/odd sequence counter array. Even means
// stable; odd means a writer holds the row. It lets a reader confirm that a
// multi-column read observed one consistent instant without ever blocking a
// writer.
type seqlockTable struct {
	counters []atomic.Uint64
}

func newSeqlockTable(capacity int) *seqlockTable {
	return &seqlockTable{counters: make([]atomic.Uint64, capacity)}
}

// beginWrite CAS-spins the row's counter from even to odd and returns the
// new (odd) value, which endWrite must be called with.
func (s *seqlockTable) beginWrite(row uint32) uint64 {
	c := &s.counters[row]
	for {
		v := c.Load()
		if v&1 == 1 {
			runtime.Gosched()
			continue
		}
		if c.CompareAndSwap(v, v+1) {
			return v + 1
		}
	}
}

// endWrite stores the next even value, making the row visible again.
func (s *seqlockTable) endWrite(row uint32, writeVersion uint64) {
	s.counters[row].Store(writeVersion + 1)
}

// seqlockRetryBudget bounds the optimistic retry loop before readConsistent
// falls back to the pessimistic wait-for-even variant.
const seqlockRetryBudget = 64

// readConsistent executes fn only when it can prove the row was stable
// (even counter, unchanged across fn) for its duration. After
// seqlockRetryBudget optimistic attempts it escalates to a bounded
// spin -> yield -> park backoff waiting for an even counter, and returns
// ErrTornRead if that escalation exhausts its own budget.
func (s *seqlockTable) readConsistent(row uint32, fn func()) error {
	c := &s.counters[row]
	for attempt := 0; attempt < seqlockRetryBudget; attempt++ {
		v1 := c.Load()
		if v1&1 == 1 {
			if attempt > 4 {
				runtime.Gosched()
			}
			continue
		}
		fn()
		v2 := c.Load()
		if v1 == v2 {
			return nil
		}
	}
	return s.readPessimistic(row, fn)
}

// readPessimistic waits for an even counter using an escalating
// spin/yield/park backoff before giving up and reporting ErrTornRead.
func (s *seqlockTable) readPessimistic(row uint32, fn func()) error {
	c := &s.counters[row]
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Microsecond
	b.MaxInterval = 5 * time.Millisecond
	b.MaxElapsedTime = 50 * time.Millisecond
	for {
		v1 := c.Load()
		if v1&1 == 0 {
			fn()
			if c.Load() == v1 {
				return nil
			}
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return merrors.ErrTornRead
		}
		time.Sleep(wait)
	}
}
