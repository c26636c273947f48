// metrics.go: pluggable operation-metrics sink
//
// MetricsCollector lets a caller wire the cache's operation counts and
// latencies into whatever metrics backend they already use. The interface
// only covers what the statistics plane actually drives (get/put/remove/
// evict/load outcomes and their latencies), not internal implementation
// diagnostics.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

// MetricsCollector receives fine-grained operation telemetry (latencies,
// hit/miss outcomes) in addition to the aggregate counters exposed by
// Stats(). Implementations must be safe for concurrent use and should be
// effectively allocation-free; they are called on every cache operation
// when configured.
type MetricsCollector interface {
	// RecordGet is called after every Get/GetIfPresent with the operation
	// latency in nanoseconds and whether it was a hit.
	RecordGet(latencyNs int64, hit bool)

	// RecordPut is called after every Put with the operation latency.
	RecordPut(latencyNs int64)

	// RecordRemove is called after every Remove with the operation latency.
	RecordRemove(latencyNs int64)

	// RecordEviction is called once per entry evicted by the admission
	// policy (as opposed to expiration or explicit removal).
	RecordEviction()

	// RecordExpiration is called once per entry removed by the expiration
	// engine (lazy or scan).
	RecordExpiration()

	// RecordLoad is called after a loader invocation completes, with
	// whether it succeeded. GetOrLoad passes the load's duration; a
	// background refresh reload passes 0.
	RecordLoad(latencyNs int64, success bool)
}

// NoOpMetricsCollector discards everything; it is the default so call
// sites never need a nil check.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordGet(latencyNs int64, hit bool)      {}
func (NoOpMetricsCollector) RecordPut(latencyNs int64)                {}
func (NoOpMetricsCollector) RecordRemove(latencyNs int64)             {}
func (NoOpMetricsCollector) RecordEviction()                          {}
func (NoOpMetricsCollector) RecordExpiration()                        {}
func (NoOpMetricsCollector) RecordLoad(latencyNs int64, success bool) {}
