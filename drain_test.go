// drain_test.go: write-ahead drain coordinator tests
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0

package arion

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestDrainCoordinator_TryDrainAppliesAllPendingRecords(t *testing.T) {
	rb := newRingBuffers(2, 16)
	var applied atomic.Int64
	d := newDrainCoordinator(rb, func(rec accessRecord) { applied.Add(1) }, NoOpLogger{})

	for i := 0; i < 20; i++ {
		rb.stripes[i%2].tryPush(accessRecord{keyHash: uint64(i)})
	}

	d.tryDrain()

	if got := applied.Load(); got != 20 {
		t.Fatalf("expected all 20 pushed records to be applied, got %d", got)
	}
	for _, s := range rb.stripes {
		if s.approxLen() != 0 {
			t.Fatalf("expected every stripe drained to empty, got approxLen %d", s.approxLen())
		}
	}
}

// TestDrainCoordinator_OnlyOneDrainerAtATime checks that concurrent
// tryDrain callers never apply the same record twice, and that the status
// field always returns to idle.
func TestDrainCoordinator_OnlyOneDrainerAtATime(t *testing.T) {
	rb := newRingBuffers(4, 32)
	var applied atomic.Int64
	d := newDrainCoordinator(rb, func(rec accessRecord) { applied.Add(1) }, NoOpLogger{})

	// Spread the records evenly (25 per stripe of capacity 32) so none are
	// dropped on overflow; record() from one goroutine would favour a
	// single stripe.
	for i := 0; i < 100; i++ {
		rb.stripes[i%4].tryPush(accessRecord{keyHash: uint64(i)})
	}

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			d.tryDrain()
		}()
	}
	wg.Wait()

	if got := applied.Load(); got != 100 {
		t.Fatalf("expected exactly 100 applications total (no double-apply), got %d", got)
	}
	if d.status.Load() != drainIdle {
		t.Fatalf("expected the coordinator to settle back to idle, got status %d", d.status.Load())
	}
}

func TestDrainCoordinator_PanicInApplyReleasesStatus(t *testing.T) {
	rb := newRingBuffers(1, 8)
	d := newDrainCoordinator(rb, func(rec accessRecord) { panic("boom") }, NoOpLogger{})
	rb.stripes[0].tryPush(accessRecord{keyHash: 1})

	d.tryDrain() // must not panic out of this call

	if d.status.Load() != drainIdle {
		t.Fatalf("expected status to return to idle after a recovered panic, got %d", d.status.Load())
	}
}

func TestDrainCoordinator_MaybeScheduleIsNoOpBelowThreshold(t *testing.T) {
	rb := newRingBuffers(1, defaultRingCapacity)
	var applied atomic.Int64
	d := newDrainCoordinator(rb, func(rec accessRecord) { applied.Add(1) }, NoOpLogger{})

	rb.stripes[0].tryPush(accessRecord{keyHash: 1})
	d.maybeSchedule()

	if applied.Load() != 0 {
		t.Fatalf("expected maybeSchedule to stay idle below the soft threshold, got %d applications", applied.Load())
	}
}
