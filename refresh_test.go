// refresh_test.go: refresh-after-write engine tests
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0

package arion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newRefreshTestEntry(key string, hash uint64, refreshAt int64) *internalEntry[string, string] {
	e := &internalEntry[string, string]{key: key, value: "stale", keyHash: hash, refreshAtNanos: refreshAt}
	e.lastAccessNanos.Store(0)
	return e
}

// TestRefresher_TriggersExactlyOnceAcrossConcurrentReaders checks that
// multiple readers crossing the refresh deadline concurrently dispatch
// exactly one background reload.
func TestRefresher_TriggersExactlyOnceAcrossConcurrentReaders(t *testing.T) {
	e := newRefreshTestEntry("k", 1, 50)

	var loads atomic.Int64
	var installed atomic.Bool
	var installWG sync.WaitGroup
	installWG.Add(1)

	r := newRefresher[string, string](10, func(ctx context.Context, key string) (string, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "fresh", nil
	}, newLoaderGroup[string, string](4), NoOpLogger{},
		func(key string, hash uint64, value string, loadedAt int64) {
			installed.Store(true)
			installWG.Done()
		},
		func(key string, err error) {
			t.Errorf("unexpected refresh failure: %v", err)
		},
	)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			r.maybeTrigger(e, "k", 100)
		}()
	}
	wg.Wait()
	installWG.Wait()

	if got := loads.Load(); got != 1 {
		t.Fatalf("expected exactly 1 reload dispatched, got %d", got)
	}
	if !installed.Load() {
		t.Fatalf("expected the reload result to be installed")
	}
}

func TestRefresher_DoesNothingBeforeDeadline(t *testing.T) {
	e := newRefreshTestEntry("k", 1, 1000)
	var loads atomic.Int64
	r := newRefresher[string, string](10, func(ctx context.Context, key string) (string, error) {
		loads.Add(1)
		return "fresh", nil
	}, newLoaderGroup[string, string](4), NoOpLogger{}, func(string, uint64, string, int64) {}, func(string, error) {})

	r.maybeTrigger(e, "k", 500) // now < refreshAtNanos
	time.Sleep(10 * time.Millisecond)
	if got := loads.Load(); got != 0 {
		t.Fatalf("expected no reload before the deadline, got %d", got)
	}
}

func TestRefresher_DisabledWithZeroDurationOrNilLoader(t *testing.T) {
	r := newRefresher[string, string](0, func(ctx context.Context, key string) (string, error) {
		return "fresh", nil
	}, newLoaderGroup[string, string](4), NoOpLogger{}, func(string, uint64, string, int64) {}, func(string, error) {})
	if r.enabled() {
		t.Fatalf("a refresher with refreshAfterNanos=0 must be disabled")
	}

	r2 := newRefresher[string, string](10, nil, newLoaderGroup[string, string](4), NoOpLogger{}, func(string, uint64, string, int64) {}, func(string, error) {})
	if r2.enabled() {
		t.Fatalf("a refresher with a nil loader must be disabled")
	}
}

// TestRefresher_FailureInvokesOnFailureHook guards against the refresh
// engine silently losing on_load_error / load-failure stats when the
// background reload's loader returns an error.
func TestRefresher_FailureInvokesOnFailureHook(t *testing.T) {
	e := newRefreshTestEntry("k", 1, 50)
	wantErr := errors.New("upstream unavailable")

	var failureCalled atomic.Bool
	var failureWG sync.WaitGroup
	failureWG.Add(1)

	r := newRefresher[string, string](10, func(ctx context.Context, key string) (string, error) {
		return "", wantErr
	}, newLoaderGroup[string, string](4), NoOpLogger{},
		func(string, uint64, string, int64) {
			t.Errorf("install must not be called when the loader fails")
		},
		func(key string, err error) {
			failureCalled.Store(true)
			if !IsLoaderError(err) {
				t.Errorf("expected a loader-tagged error, got %v", err)
			}
			failureWG.Done()
		},
	)

	r.maybeTrigger(e, "k", 100)
	failureWG.Wait()

	if !failureCalled.Load() {
		t.Fatalf("expected onFailure to be invoked after the loader returned an error")
	}
	if e.refreshing.Load() {
		t.Fatalf("expected the refreshing guard to be released after a failed reload")
	}
}
