// refresh.go: refresh-after-write engine
//
// Implements stale-while-revalidate: a read past the refresh deadline still
// returns the current (stale) value immediately, and dispatches exactly
// one background reload via the same single-flight loaderGroup the
// synchronous miss path uses, guarded by the entry's own refreshing flag
// so a second reader past the deadline does not dispatch a second reload.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import "context"

// refresher dispatches background reloads for entries that have crossed
// their refresh-after-write deadline.
type refresher[K comparable, V any] struct {
	refreshAfterNanos int64 // 0 disables refresh-after-write
	loader            Loader[K, V]
	group             *loaderGroup[K, V]
	logger            Logger

	// install is called with the freshly loaded value once a reload
	// completes successfully; it is cache.go's hook to build a new
	// internalEntry and swap it into the table/policy.
	install func(key K, keyHash uint64, value V, loadedAt int64)

	// onFailure is called when the reload's loader returns an error; it is
	// cache.go's hook to emit an on_load_error listener event and bump the
	// load-failure stat.
	onFailure func(key K, err error)
}

func newRefresher[K comparable, V any](refreshAfterNanos int64, loader Loader[K, V], group *loaderGroup[K, V], logger Logger, install func(K, uint64, V, int64), onFailure func(K, error)) *refresher[K, V] {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &refresher[K, V]{
		refreshAfterNanos: refreshAfterNanos,
		loader:            loader,
		group:             group,
		logger:            logger,
		install:           install,
		onFailure:         onFailure,
	}
}

func (r *refresher[K, V]) enabled() bool {
	return r.refreshAfterNanos > 0 && r.loader != nil
}

// maybeTrigger inspects e and, if it needs a refresh, dispatches exactly
// one background reload. now is monotonic nanoseconds.
func (r *refresher[K, V]) maybeTrigger(e *internalEntry[K, V], key K, now int64) {
	if !r.enabled() || !e.needsRefresh(now) {
		return
	}
	if !e.refreshing.CompareAndSwap(false, true) {
		return // another reader already dispatched this entry's reload
	}

	go func() {
		defer e.refreshing.Store(false)
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("arion: refresh loader panic recovered", "panic", rec)
			}
		}()

		ctx := context.Background()
		value, err, _ := r.group.do(e.keyHash, key, func() (V, error) {
			return r.loader(ctx, key)
		})
		if err != nil {
			r.logger.Warn("arion: refresh-after-write reload failed", "error", err)
			e.refreshing.Store(false)
			if r.onFailure != nil {
				r.onFailure(key, NewErrLoaderFailed(key, err))
			}
			return
		}
		r.install(key, e.keyHash, value, now)
	}()
}
