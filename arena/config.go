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

// Package arena is the factory the caller drives to register entities and
// repository methods and obtain runnable executors, tying rowstore, index,
// entity, and exec together behind one set of configuration knobs.
package arena

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// btreeDegree is the branching factor handed to every RangeIndex/
// PrefixIndex/SuffixIndex's underlying google/btree. It is not one of the
// caller-facing knobs, chosen the same way erigon picks degree
// for its in-memory B-trees: large enough to keep the tree shallow for
// typical table sizes without paying an outsized comparison cost per node.
const btreeDegree = 32

// Config is the set of caller-recognized options. A zero or negative
// DefaultPageSize/DefaultMaxPages is replaced by its default when the Arena
// is built; DefaultConfig returns the fully defaulted value.
type Config struct {
	DefaultPageSize int
	DefaultMaxPages int

	EnablePrefixIndex bool
	EnableSuffixIndex bool

	// IDColumnNameOverride aliases the primary-key field name recognized
	// by derived-method parsing in the (external) lexer layer; the core
	// itself always resolves the id field named by EntityRegistration, so
	// this is accepted and recorded but otherwise inert here.
	IDColumnNameOverride string

	// CodegenEnabled is accepted for interface parity with other language
	// ports but has no effect: Go has no runtime bytecode-generation
	// facility for executors the way a JVM target would, so Arena always
	// runs the interpreted CompiledQuery/Executor path.
	CodegenEnabled bool

	// Logger receives structured diagnostics (a warning when eager relation
	// resolution fails during materialization). Defaults to zap.NewNop().
	Logger *zap.Logger

	// MetricsRegisterer receives the ExecutionKernel's prometheus counters
	// per registered entity. Defaults to a fresh, unregistered registry
	// (metrics collected but never exposed) so instrumentation is always
	// safe to leave on.
	MetricsRegisterer prometheus.Registerer
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 1024,
		DefaultMaxPages: 1024,
	}
}

func (c Config) resolve() Config {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 1024
	}
	if c.DefaultMaxPages <= 0 {
		c.DefaultMaxPages = 1024
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.MetricsRegisterer == nil {
		c.MetricsRegisterer = prometheus.NewRegistry()
	}
	return c
}
