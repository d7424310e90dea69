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

package exec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts kernel-level events per repository instance: scans
// performed (no index could serve a condition), index hits (a driver was
// indexable), residual filters applied, and capacity-exceeded save
// failures surfaced from rowstore. Labeled by entity so a caller with many
// repositories gets one time series per entity rather than one global
// counter.
type Metrics struct {
	ScansPerformed   prometheus.Counter
	IndexHits        prometheus.Counter
	ResidualFilters  prometheus.Counter
	CapacityExceeded prometheus.Counter
}

// NewMetrics registers one Metrics set for entityName under reg.
func NewMetrics(reg prometheus.Registerer, entityName string) *Metrics {
	reg = prometheus.WrapRegistererWith(prometheus.Labels{"entity": entityName}, reg)
	return &Metrics{
		ScansPerformed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "memris_kernel_scans_performed_total",
			Help: "Full-table typed scans performed because no index served a condition.",
		}),
		IndexHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "memris_kernel_index_hits_total",
			Help: "Queries whose driver condition was served by an accelerated index.",
		}),
		ResidualFilters: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "memris_kernel_residual_filters_total",
			Help: "Row-at-a-time residual condition checks applied to a driver's candidates.",
		}),
		CapacityExceeded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "memris_kernel_capacity_exceeded_total",
			Help: "Save operations that failed because a column ran out of page capacity.",
		}),
	}
}

// NewNopMetrics builds a Metrics backed by an unregistered registry, for
// callers (tests, or Arena configurations with metrics disabled) that don't
// want to wire a real Prometheus registerer.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), "unregistered")
}
