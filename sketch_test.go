// sketch_test.go: frequency sketch tests
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0

package arion

import "testing"

func TestFrequencySketch_IncrementSaturatesAt15(t *testing.T) {
	s := newFrequencySketch(64)
	hash := uint64(0xabc123)

	// First increment only sets the doorkeeper bit; the estimate must stay 0.
	s.increment(hash)
	if got := s.estimate(hash); got != 0 {
		t.Fatalf("expected 0 after first increment (doorkeeper), got %d", got)
	}

	for i := 0; i < 40; i++ {
		s.increment(hash)
	}
	if got := s.estimate(hash); got != 15 {
		t.Fatalf("expected saturation at 15, got %d", got)
	}
}

func TestFrequencySketch_DistinctKeysDontInterfereMuch(t *testing.T) {
	s := newFrequencySketch(256)
	for i := 0; i < 10; i++ {
		s.increment(50) // doorkeeper
		s.increment(50)
	}
	if got := s.estimate(50); got == 0 {
		t.Fatalf("expected nonzero estimate for hot key, got %d", got)
	}
	if got := s.estimate(999999); got != 0 {
		t.Fatalf("expected 0 estimate for untouched key, got %d", got)
	}
}

func TestFrequencySketch_AgingHalvesCounters(t *testing.T) {
	s := newFrequencySketch(8) // small sketch -> small resetThreshold
	hash := uint64(7)

	s.increment(hash) // doorkeeper only
	for i := 0; i < 8; i++ {
		s.increment(hash)
	}
	before := s.estimate(hash)
	if before == 0 {
		t.Fatalf("expected a nonzero estimate before aging, got 0")
	}

	s.reset()
	after := s.estimate(hash)
	if after > before/2+1 {
		t.Fatalf("expected aging to roughly halve the estimate: before=%d after=%d", before, after)
	}
}

func TestFrequencySketch_DoorkeeperSuppressesFirstIncrement(t *testing.T) {
	s := newFrequencySketch(64)
	hash := uint64(42)

	if first := s.setDoorkeeper(hash); first {
		t.Fatalf("expected setDoorkeeper to report unset on first call")
	}
	if second := s.setDoorkeeper(hash); !second {
		t.Fatalf("expected setDoorkeeper to report already-set on second call")
	}
}
