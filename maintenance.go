// maintenance.go: background maintenance loop
//
// A single ticker goroutine drives periodic upkeep that the hot path
// shouldn't have to pay for: forcing a drain so a quiet cache still applies
// buffered access records, and running one budgeted slice of the expiration
// sweep each tick instead of walking the whole table at once.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import (
	"sync"
	"time"
)

const maintenanceInterval = 1 * time.Second

// maintenance runs the periodic background work: forcing a drain so
// promotions/demotions don't starve on a quiet cache, and sweeping a
// budgeted slice of the table for expired entries.
type maintenance[K comparable, V any] struct {
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup

	drain  *drainCoordinator
	onTick func(now int64)
}

func newMaintenance[K comparable, V any](drain *drainCoordinator, onTick func(now int64)) *maintenance[K, V] {
	return &maintenance[K, V]{
		stopCh: make(chan struct{}),
		drain:  drain,
		onTick: onTick,
	}
}

func (m *maintenance[K, V]) start(now func() int64) {
	m.ticker = time.NewTicker(maintenanceInterval)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.ticker.C:
				m.drain.forceDrain()
				m.onTick(now())
			case <-m.stopCh:
				return
			}
		}
	}()
}

// stop halts the background goroutine and waits for it to exit. Safe to
// call at most once.
func (m *maintenance[K, V]) stop() {
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stopCh)
	m.wg.Wait()
}
