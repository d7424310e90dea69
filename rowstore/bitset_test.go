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
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAtomicBitsetSetClearGet(t *testing.T) {
	b := newAtomicBitset(128)
	require.False(t, b.get(70))
	require.True(t, b.set(70), "the first set of a clear bit must report the 0->1 transition")
	require.True(t, b.get(70))
	require.False(t, b.set(70), "setting an already-set bit must report no transition")

	b.clear(70)
	require.False(t, b.get(70))
}

func TestAtomicBitsetBitsAreIndependentAcrossWords(t *testing.T) {
	b := newAtomicBitset(256)
	b.set(0)
	b.set(63)
	b.set(64)
	b.set(200)
	require.True(t, b.get(0))
	require.True(t, b.get(63))
	require.True(t, b.get(64))
	require.True(t, b.get(200))
	require.False(t, b.get(65))
}

// TestAtomicBitsetConcurrentSetOnSameBitReportsExactlyOneTransition drives
// many goroutines at the same bit and checks that set's 0->1 report is a
// true exactly-once signal, the property the table's idempotent Tombstone
// relies on.
func TestAtomicBitsetConcurrentSetOnSameBitReportsExactlyOneTransition(t *testing.T) {
	b := newAtomicBitset(64)
	var transitions int32
	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			if b.set(5) {
				transitions++
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), transitions)
}
