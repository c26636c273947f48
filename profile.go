// profile.go: named configuration bundles
//
// Each profile only fills in fields the caller left at their zero value:
// applying a profile never overrides an explicit Config field, so callers
// can use a profile as a starting point and still override individual
// knobs.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import "time"

// Profile names a pre-tuned configuration bundle for a common workload
// shape.
type Profile string

const (
	ProfileDefault         Profile = "default"
	ProfileReadHeavy       Profile = "read-heavy"
	ProfileWriteHeavy      Profile = "write-heavy"
	ProfileSession         Profile = "session"
	ProfileAPI             Profile = "api"
	ProfileCompute         Profile = "compute"
	ProfileMemoryEfficient Profile = "memory-efficient"
	ProfileHighPerformance Profile = "high-performance"
)

// applyProfile fills zero-valued fields of c according to c.Profile. It
// never overwrites a field the caller already set explicitly.
func applyProfile[K comparable, V any](c Config[K, V]) Config[K, V] {
	var d Config[K, V]
	switch c.Profile {
	case ProfileReadHeavy:
		// Read-dominated workloads benefit from a larger protected segment
		// so hot keys survive long scan bursts.
		d = Config[K, V]{ProtectedRatio: 0.90, WindowRatio: 0.01, RecordStats: true}
	case ProfileWriteHeavy:
		// Write-heavy traffic churns the admission window fast; give it
		// more room so one-off writes don't evict protected hot keys.
		d = Config[K, V]{WindowRatio: 0.10, ProtectedRatio: 0.70, RecordStats: true}
	case ProfileSession:
		d = Config[K, V]{
			ExpireAfterAccess: 30 * time.Minute,
			WindowRatio:       0.05,
			ProtectedRatio:    0.80,
			RecordStats:       true,
		}
	case ProfileAPI:
		d = Config[K, V]{
			ExpireAfterWrite:  5 * time.Minute,
			RefreshAfterWrite: 4 * time.Minute,
			WindowRatio:       0.02,
			ProtectedRatio:    0.80,
			RecordStats:       true,
		}
	case ProfileCompute:
		// Expensive-to-recompute results: favor protection over window
		// turnover and never expire on idle alone.
		d = Config[K, V]{WindowRatio: 0.01, ProtectedRatio: 0.95, RecordStats: true}
	case ProfileMemoryEfficient:
		d = Config[K, V]{
			WindowRatio:      0.01,
			ProtectedRatio:   0.80,
			ConcurrencyLevel: 4,
		}
	case ProfileHighPerformance:
		d = Config[K, V]{
			WindowRatio:      0.01,
			ProtectedRatio:   0.80,
			ConcurrencyLevel: 64,
			RecordStats:      false,
		}
	default: // ProfileDefault and anything unrecognized
		d = Config[K, V]{WindowRatio: DefaultWindowRatio, ProtectedRatio: DefaultProtectedRatio}
	}

	if c.WindowRatio == 0 {
		c.WindowRatio = d.WindowRatio
	}
	if c.ProtectedRatio == 0 {
		c.ProtectedRatio = d.ProtectedRatio
	}
	if c.ExpireAfterAccess == 0 {
		c.ExpireAfterAccess = d.ExpireAfterAccess
	}
	if c.ExpireAfterWrite == 0 {
		c.ExpireAfterWrite = d.ExpireAfterWrite
	}
	if c.RefreshAfterWrite == 0 {
		c.RefreshAfterWrite = d.RefreshAfterWrite
	}
	if c.ConcurrencyLevel == 0 {
		c.ConcurrencyLevel = d.ConcurrencyLevel
	}
	if !c.RecordStats {
		c.RecordStats = d.RecordStats
	}
	return c
}
