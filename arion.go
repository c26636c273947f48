// arion.go: package-wide constants and defaults
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0

package arion

const (
	// Version of the arion cache library.
	Version = "v0.1.0-dev"

	// DefaultMaximumSize is the entry-count bound set by DefaultConfig. New
	// rejects a Config that sets neither MaximumSize nor MaximumWeight
	// rather than falling back to it.
	DefaultMaximumSize = 10_000

	// DefaultWindowRatio is the default fraction of total capacity given
	// to the admission window.
	DefaultWindowRatio = 0.01

	// DefaultProtectedRatio is the default fraction of the main space
	// (capacity - window) given to the protected segment.
	DefaultProtectedRatio = 0.80

	// DefaultCounterBits is the width of each frequency-sketch counter.
	DefaultCounterBits = 4

	// defaultStripeCount is the ConcurrencyLevel used when a Config leaves
	// it unset: the number of access-ring-buffer stripes, table shards and
	// loader shards. It is a fixed value, not derived from GOMAXPROCS.
	defaultStripeCount = 16

	// defaultRingCapacity is the per-stripe ring buffer capacity.
	defaultRingCapacity = 256

	// defaultScanTicksPerSweep divides the cache's capacity to give the
	// number of entries one maintenance tick may inspect in the single
	// shard it scans for expired entries (see sweepBudget).
	defaultScanTicksPerSweep = 10
)
