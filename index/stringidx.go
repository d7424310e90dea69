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

package index

import (
	"github.com/Thejuampi/memris-sub003/rowstore"
)

// PrefixIndex accelerates startsWith lookups by indexing strings under their
// own value in a RangeIndex[string]; a startsWith(p) query becomes the range
// [p, prefixUpperBound(p)), the same trick erigon's history cursors use for bounded
// ascending scans over a composite key. It is opt-in (EnablePrefixIndex),
// since every string column pays its insert cost.
type PrefixIndex struct {
	*RangeIndex[string]
}

// NewPrefixIndex builds a prefix index over rows of t.
func NewPrefixIndex(t liveChecker, degree int) *PrefixIndex {
	return &PrefixIndex{RangeIndex: NewRangeIndex[string](t, degree)}
}

// StartsWith returns the live rows whose indexed string has prefix p.
func (p *PrefixIndex) StartsWith(prefix string) rowstore.Selection {
	if prefix == "" {
		return p.Between("", "", true, false)
	}
	hi, unbounded := prefixUpperBound(prefix)
	if unbounded {
		return p.Between(prefix, "", true, false)
	}
	return p.BetweenExclusiveHi(prefix, hi, true)
}

// prefixUpperBound returns the smallest string that is not prefixed by p and
// sorts immediately after every string that is, by incrementing p's final
// byte (with carry), giving an exclusive upper bound for the prefix scan.
// unbounded is true when p is all 0xff bytes, in which case no finite upper
// bound exists and the scan must run unbounded above.
func prefixUpperBound(p string) (bound string, unbounded bool) {
	b := []byte(p)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0xff {
			b[i]++
			return string(b[:i+1]), false
		}
	}
	return "", true
}

// SuffixIndex accelerates endsWith lookups by indexing the reverse of each
// string, turning endsWith(s) into a startsWith on the reversed needle.
// Opt-in (EnableSuffixIndex).
type SuffixIndex struct {
	*PrefixIndex
}

// NewSuffixIndex builds a suffix index over rows of t. Callers must insert
// the REVERSED string value (ReverseString below) as the key, and query
// with the plain suffix via EndsWith, which reverses it itself.
func NewSuffixIndex(t liveChecker, degree int) *SuffixIndex {
	return &SuffixIndex{PrefixIndex: NewPrefixIndex(t, degree)}
}

// EndsWith returns the live rows whose indexed string has suffix s.
func (s *SuffixIndex) EndsWith(suffix string) rowstore.Selection {
	return s.StartsWith(ReverseString(suffix))
}

// ReverseString reverses s by rune, used to build and query SuffixIndex
// keys consistently.
func ReverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
