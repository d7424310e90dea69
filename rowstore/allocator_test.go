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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"
)

func TestAllocatorFreshRowsAreDenseAndUnique(t *testing.T) {
	a := newAllocator(8)
	seen := make(map[uint32]bool)
	for i := 0; i < 8; i++ {
		row, ok := a.allocate()
		require.True(t, ok)
		require.False(t, seen[row])
		seen[row] = true
	}
	_, ok := a.allocate()
	require.False(t, ok, "allocator must refuse once capacity is exhausted")
}

func TestAllocatorReusesPushedRows(t *testing.T) {
	a := newAllocator(4)
	row, ok := a.allocate()
	require.True(t, ok)
	a.push(row)
	reused, ok := a.allocate()
	require.True(t, ok)
	require.Equal(t, row, reused, "allocate must prefer a freed slot over growing nextRow")
}

// TestAllocatorConcurrentPushPopNeverDuplicates drives many goroutines
// through allocate/push pairs and checks that no row is ever handed out to
// two live holders simultaneously, exercising the Treiber-stack CAS loop
// under real contention.
func TestAllocatorConcurrentPushPopNeverDuplicates(t *testing.T) {
	const capacity = 256
	const workers = 16
	const rounds = 500

	a := newAllocator(capacity)
	var held sync.Map // row -> true while checked out

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < rounds; i++ {
				row, ok := a.allocate()
				if !ok {
					continue
				}
				if _, dup := held.LoadOrStore(row, true); dup {
					t.Errorf("row %d allocated to two holders at once", row)
				}
				held.Delete(row)
				a.push(row)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

// TestAllocatorRapidSequenceNeverOverAllocates runs randomized
// allocate/push sequences and checks the allocator's two invariants: a live
// row is never issued twice, and the number of rows ever live at once never
// exceeds capacity.
func TestAllocatorRapidSequenceNeverOverAllocates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := uint32(rapid.IntRange(1, 64).Draw(rt, "capacity"))
		a := newAllocator(capacity)
		live := make(map[uint32]bool)

		steps := rapid.IntRange(1, 200).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if len(live) > 0 && rapid.Bool().Draw(rt, "releaseInsteadOfAllocate") {
				var victim uint32
				for row := range live {
					victim = row
					break
				}
				delete(live, victim)
				a.push(victim)
				continue
			}
			row, ok := a.allocate()
			if !ok {
				if uint32(len(live)) != capacity {
					rt.Fatalf("allocate refused before capacity reached: live=%d capacity=%d", len(live), capacity)
				}
				continue
			}
			if live[row] {
				rt.Fatalf("row %d handed out while still live", row)
			}
			live[row] = true
			if uint32(len(live)) > capacity {
				rt.Fatalf("live set exceeded capacity: %d > %d", len(live), capacity)
			}
		}
	})
}
