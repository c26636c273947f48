// drain.go: write-ahead drain coordinator
//
// Policy and sketch updates happen off the hot path: reads and writes only
// append an access record to a ring buffer, and a single coordinator drains
// those records and applies them later. The coordinator's status field
// cycles idle -> scheduled -> draining -> idle via CompareAndSwap, so at
// most one goroutine is ever inside a drain at a time.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import (
	"sync/atomic"
)

const (
	drainIdle int32 = iota
	drainScheduled
	drainDraining
)

// drainSoftThreshold is the per-stripe pending-record count that triggers
// an opportunistic drain from the calling goroutine's own access path.
const drainSoftThreshold = defaultRingCapacity / 2

// drainBatchSize is the number of records pulled from a stripe per
// drainInto call. A drain keeps reading a stripe batch after batch until
// a batch comes back short, so it is not a bound on one pass.
const drainBatchSize = 64

// drainApply is invoked once per consumed access record during a drain.
// It must never be called while any cache-internal lock is held that a
// reader/writer also needs, since apply touches the policy (which takes
// its own mutex) and the sketch (which only the drain increments).
type drainApply func(rec accessRecord)

// drainCoordinator owns the idle/scheduled/draining status field and makes
// sure only one goroutine is ever inside a drain at a time.
type drainCoordinator struct {
	status atomic.Int32
	rings  *ringBuffers
	apply  drainApply
	logger Logger
}

func newDrainCoordinator(rings *ringBuffers, apply drainApply, logger Logger) *drainCoordinator {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &drainCoordinator{rings: rings, apply: apply, logger: logger}
}

// maybeSchedule triggers an inline drain if any stripe has crossed its
// soft threshold. Safe to call on every hot-path operation; it is a no-op
// unless a drain is actually warranted or already running.
func (d *drainCoordinator) maybeSchedule() {
	if d.rings.anyExceeds(drainSoftThreshold) {
		d.tryDrain()
	}
}

// tryDrain attempts to become the sole drainer via CAS and, if successful,
// drains every stripe to exhaustion (each stripe is read in batches of
// drainBatchSize until a batch comes back short, and passes over all
// stripes repeat until a pass consumes nothing). Any other caller that
// loses the CAS race returns immediately; only one drainer runs at a time.
func (d *drainCoordinator) tryDrain() {
	if !d.status.CompareAndSwap(drainIdle, drainScheduled) {
		return
	}
	d.status.Store(drainDraining)
	defer d.status.Store(drainIdle)
	d.runLocked()
}

// forceDrain is used by maintenance ticks and by Shutdown, which want a
// best-effort flush regardless of soft-threshold state.
func (d *drainCoordinator) forceDrain() {
	d.tryDrain()
}

func (d *drainCoordinator) runLocked() {
	defer func() {
		// A panic inside policy application must still release the status
		// field (handled by the caller's deferred Store(drainIdle)) and
		// surface to a logger; the next trigger restarts the drain.
		if r := recover(); r != nil {
			d.logger.Error("arion: drain panic recovered", "panic", r)
		}
	}()

	buf := make([]accessRecord, drainBatchSize)
	for {
		consumedAny := false
		for _, s := range d.rings.stripes {
			for {
				n := s.drainInto(buf)
				if n == 0 {
					break
				}
				consumedAny = true
				for i := 0; i < n; i++ {
					d.apply(buf[i])
				}
				if n < len(buf) {
					break
				}
			}
		}
		if !consumedAny {
			return
		}
	}
}
