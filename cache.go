// cache.go: the top-level generic cache
//
// Wires together every component module into the public Cache[K, V] type.
// The constructor validates config, applies defaults, builds collaborators,
// and starts a background goroutine. Put/Get/Remove all follow the same
// sequence (hash the key, touch the shard, record stats, notify
// collaborators), applied generically over (K, V) and routed through the
// segmented policy for admission and eviction decisions.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import (
	"context"
	"sync/atomic"
	"time"
)

// Cache is a bounded, concurrent, generic in-memory cache with W-TinyLFU
// admission, optional expiration, optional refresh-ahead, and single-flight
// loading.
type Cache[K comparable, V any] struct {
	cfg Config[K, V]

	table     *table[K, V]
	policy    *policy[K, V]
	rings     *ringBuffers
	drainC    *drainCoordinator
	expirer   *expirer[K, V]
	refresher *refresher[K, V]
	loaders   *loaderGroup[K, V]
	listeners *listenerRegistry[K, V]
	stats     *statsPlane
	maint     *maintenance[K, V]

	hasher Hasher[K]
	clock  TimeSource
	logger Logger
	metric MetricsCollector

	size   atomic.Int64
	weight atomic.Int64

	scanCursor atomic.Int64
	closed     atomic.Bool

	// wallOffsetNanos translates this cache's monotonic clock into
	// wall-clock time for Entry snapshots only; every internal comparison
	// stays in monotonic nanoseconds.
	wallOffsetNanos int64
}

// New constructs a Cache from cfg. Config is validated first; any
// zero-valued tunable is then filled in from cfg.Profile (if set) and the
// package defaults.
func New[K comparable, V any](cfg Config[K, V]) (*Cache[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rc := cfg.resolved()

	c := &Cache[K, V]{
		cfg:    rc,
		hasher: rc.Hasher,
		clock:  rc.TimeSource,
		logger: rc.Logger,
		metric: rc.MetricsCollector,
	}

	c.table = newTable[K, V](rc.ConcurrencyLevel, rc.InitialCapacity, rc.Hasher)
	c.rings = newRingBuffers(rc.ConcurrencyLevel, defaultRingCapacity)
	c.loaders = newLoaderGroup[K, V](rc.ConcurrencyLevel)
	c.listeners = newListenerRegistry[K, V](rc.Logger)
	for _, l := range rc.Listeners {
		c.listeners.add(l)
	}
	c.stats = newStatsPlane(rc.RecordStats)
	c.expirer = newExpirer[K, V](int64(rc.ExpireAfterAccess))
	c.refresher = newRefresher[K, V](int64(rc.RefreshAfterWrite), rc.Loader, c.loaders, rc.Logger, c.installRefreshed, c.onRefreshFailed)

	seed := uint64(time.Now().UnixNano()) ^ 0x9e3779b97f4a7c15
	c.policy = newPolicy[K, V](rc.capacityUnits(), rc.WindowRatio, rc.ProtectedRatio, rc.weighted(), seed)

	c.drainC = newDrainCoordinator(c.rings, c.applyAccessRecord, rc.Logger)
	c.maint = newMaintenance[K, V](c.drainC, c.onMaintenanceTick)
	c.maint.start(c.clock.Now)

	c.wallOffsetNanos = time.Now().UnixNano() - c.clock.Now()

	return c, nil
}

// Get returns the value for key, recording a hit or miss. On a miss, if
// Config.Loader is set, Get loads the value through the same single-flight
// path as GetOrLoad(ctx, key, nil), passing ctx to the loader, and reports
// false if that load fails. Without a configured loader Get behaves like
// GetIfPresent and ignores ctx.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool) {
	if c.cfg.Loader == nil {
		return c.GetIfPresent(key)
	}
	v, err := c.GetOrLoad(ctx, key, nil)
	return v, err == nil
}

// GetIfPresent returns the value for key without ever invoking a loader.
func (c *Cache[K, V]) GetIfPresent(key K) (V, bool) {
	start := c.clock.Now()
	hash := c.hasher.Hash(key)
	now := start

	e, ok := c.table.get(key, hash)
	if !ok || c.expirer.isExpired(e, now) {
		if ok {
			c.expireEntry(e, now)
		}
		c.stats.recordMiss(stripeAffinity())
		c.metric.RecordGet(c.clock.Now()-start, false)
		var zero V
		return zero, false
	}

	e.touch(now)
	c.rings.record(accessRecord{keyHash: hash, kind: accessRead, timestamp: now, entry: e})
	c.drainC.maybeSchedule()
	c.refresher.maybeTrigger(e, key, now)

	c.stats.recordHit(stripeAffinity())
	c.metric.RecordGet(c.clock.Now()-start, true)
	return e.value, true
}

// Put inserts or replaces the value for key.
func (c *Cache[K, V]) Put(key K, value V) {
	start := c.clock.Now()
	c.storeEntry(key, value, start, false)
	c.metric.RecordPut(c.clock.Now() - start)
}

// Remove deletes key, returning its value if it was present.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	start := c.clock.Now()
	hash := c.hasher.Hash(key)

	e, ok := c.table.get(key, hash)
	if !ok {
		var zero V
		c.metric.RecordRemove(c.clock.Now() - start)
		return zero, false
	}
	if !c.table.deleteExact(key, hash, e) {
		// Lost a race with a concurrent Put/Remove/expire on this key.
		var zero V
		c.metric.RecordRemove(c.clock.Now() - start)
		return zero, false
	}
	c.policy.remove(e)
	c.adjustCounts(-1, -e.weight)
	c.listeners.onRemove(key, e.value)
	c.metric.RecordRemove(c.clock.Now() - start)
	return e.value, true
}

// ContainsKey reports whether key is present and unexpired, without
// affecting recency or frequency.
func (c *Cache[K, V]) ContainsKey(key K) bool {
	hash := c.hasher.Hash(key)
	e, ok := c.table.get(key, hash)
	if !ok {
		return false
	}
	return !c.expirer.isExpired(e, c.clock.Now())
}

// Size returns the current number of entries (or, in weight-bounded mode,
// an approximate count of distinct admitted entries).
func (c *Cache[K, V]) Size() int {
	return int(c.size.Load())
}

// Weight returns the sum of admitted entries' weights (1 per entry unless
// MaximumWeight/Weigher is configured).
func (c *Cache[K, V]) Weight() int64 {
	return c.weight.Load()
}

// Clear empties the cache.
func (c *Cache[K, V]) Clear() {
	c.table.clear()
	c.policy.clear()
	c.size.Store(0)
	c.weight.Store(0)
	c.listeners.onClear()
}

// GetAsync runs Get on a separate goroutine. With a configured
// Config.Loader the Future resolves to GetOrLoad's value or error;
// otherwise it resolves to the result of GetIfPresent, with a not-found
// error on a miss.
func (c *Cache[K, V]) GetAsync(ctx context.Context, key K) Future[V] {
	f := newPendingFuture[V]()
	go func() {
		if c.cfg.Loader != nil {
			v, err := c.GetOrLoad(ctx, key, nil)
			f.resolve(v, err)
			return
		}
		v, ok := c.GetIfPresent(key)
		var err error
		if !ok {
			err = NewErrKeyNotFound(key)
		}
		f.resolve(v, err)
	}()
	return f
}

// PutAsync runs Put on a separate goroutine, resolving once it completes.
func (c *Cache[K, V]) PutAsync(key K, value V) Future[struct{}] {
	f := newPendingFuture[struct{}]()
	go func() {
		c.Put(key, value)
		f.resolve(struct{}{}, nil)
	}()
	return f
}

// RemoveAsync runs Remove on a separate goroutine.
func (c *Cache[K, V]) RemoveAsync(key K) Future[V] {
	f := newPendingFuture[V]()
	go func() {
		v, ok := c.Remove(key)
		var err error
		if !ok {
			err = NewErrKeyNotFound(key)
		}
		f.resolve(v, err)
	}()
	return f
}

// GetOrLoad returns the value for key, invoking loader on a miss. Concurrent
// callers requesting the same missing key collapse into a single loader
// invocation.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, loader Loader[K, V]) (V, error) {
	if loader == nil {
		loader = c.cfg.Loader
	}
	if loader == nil {
		var zero V
		return zero, NewErrInvalidLoader(key)
	}

	if v, ok := c.GetIfPresent(key); ok {
		return v, nil
	}

	hash := c.hasher.Hash(key)
	loadStart := c.clock.Now()
	value, err, shared := c.loaders.do(hash, key, func() (V, error) {
		return loader(ctx, key)
	})

	// Exactly one of the coalesced callers executed the loader; only that
	// caller installs the value and fires load stats/events, so a
	// thundering herd still looks like a single load to observers.
	if !shared {
		dur := c.clock.Now() - loadStart
		c.stats.recordLoad(stripeAffinity(), dur, err == nil)
		c.metric.RecordLoad(dur, err == nil)
		if err != nil {
			c.listeners.onLoadError(key, err)
		} else {
			c.storeEntry(key, value, c.clock.Now(), true)
			c.listeners.onLoad(key, value)
		}
	}

	if err != nil {
		var zero V
		return zero, NewErrLoaderFailed(key, err)
	}
	return value, nil
}

// GetOrLoadAsync runs GetOrLoad on a separate goroutine.
func (c *Cache[K, V]) GetOrLoadAsync(ctx context.Context, key K, loader Loader[K, V]) Future[V] {
	f := newPendingFuture[V]()
	go func() {
		v, err := c.GetOrLoad(ctx, key, loader)
		f.resolve(v, err)
	}()
	return f
}

// Keys returns a snapshot of every unexpired key.
func (c *Cache[K, V]) Keys() []K {
	now := c.clock.Now()
	out := make([]K, 0, c.Size())
	c.table.forEach(func(e *internalEntry[K, V]) {
		if !c.expirer.isExpired(e, now) {
			out = append(out, e.key)
		}
	})
	return out
}

// Values returns a snapshot of every unexpired value.
func (c *Cache[K, V]) Values() []V {
	now := c.clock.Now()
	out := make([]V, 0, c.Size())
	c.table.forEach(func(e *internalEntry[K, V]) {
		if !c.expirer.isExpired(e, now) {
			out = append(out, e.value)
		}
	})
	return out
}

// Entries returns a snapshot of every unexpired entry, with wall-clock
// timestamps.
func (c *Cache[K, V]) Entries() []Entry[K, V] {
	now := c.clock.Now()
	out := make([]Entry[K, V], 0, c.Size())
	c.table.forEach(func(e *internalEntry[K, V]) {
		if !c.expirer.isExpired(e, now) {
			out = append(out, e.snapshot(c.wallOffsetNanos))
		}
	})
	return out
}

// Stats returns a snapshot of the aggregate operation counters. Populated
// only when Config.RecordStats was set.
func (c *Cache[K, V]) Stats() Stats {
	return c.stats.snapshot()
}

// Config returns the fully-resolved configuration this cache was built
// with.
func (c *Cache[K, V]) Config() Config[K, V] {
	return c.cfg
}

// AddListener registers l for future lifecycle notifications.
func (c *Cache[K, V]) AddListener(l Listener[K, V]) ListenerHandle {
	return c.listeners.add(l)
}

// RemoveListener unregisters the listener identified by h.
func (c *Cache[K, V]) RemoveListener(h ListenerHandle) {
	c.listeners.remove(h)
}

// Shutdown stops the background maintenance goroutine, flushes any
// pending access records, and runs one final expiration pass over the
// whole table. Safe to call more than once.
func (c *Cache[K, V]) Shutdown() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.maint.stop()
	c.drainC.forceDrain()

	now := c.clock.Now()
	for idx := range c.table.shards {
		expired, _ := scanShard[K, V](c.table, idx, now, c.expirer, int(^uint(0)>>1))
		for _, e := range expired {
			c.expireEntry(e, now)
		}
	}
}

// Close is an alias for Shutdown satisfying io.Closer.
func (c *Cache[K, V]) Close() error {
	c.Shutdown()
	return nil
}

// storeEntry is the shared Put/load-install path: build a fresh entry,
// swap it into the table, admit it into the policy, and propagate
// whatever the admission evicted. markLoaded stamps LoadedAt for entries
// that arrived via a Loader rather than a direct Put.
func (c *Cache[K, V]) storeEntry(key K, value V, now int64, markLoaded bool) {
	hash := c.hasher.Hash(key)
	e := c.buildEntry(key, value, hash, now)
	if markLoaded {
		e.loadedAtNanos = now
	}

	old, existed := c.table.swap(key, hash, e)
	if existed {
		c.policy.remove(old)
		c.adjustCounts(-1, -old.weight)
		c.listeners.onEvict(key, old.value, EvictReasonReplaced)
	}

	evicted := c.policy.admit(e, now)
	c.adjustCounts(1, e.weight)
	c.handleEvicted(evicted)

	c.rings.record(accessRecord{keyHash: hash, kind: accessWrite, timestamp: now})
	c.drainC.maybeSchedule()

	c.listeners.onPut(key, value)
}

func (c *Cache[K, V]) installRefreshed(key K, hash uint64, value V, now int64) {
	e := c.buildEntry(key, value, hash, now)
	e.loadedAtNanos = now

	old, existed := c.table.swap(key, hash, e)
	if existed {
		c.policy.remove(old)
		c.adjustCounts(-1, -old.weight)
		c.listeners.onEvict(key, old.value, EvictReasonReplaced)
	}

	evicted := c.policy.admit(e, now)
	c.adjustCounts(1, e.weight)
	c.handleEvicted(evicted)

	c.stats.recordLoad(stripeAffinity(), 0, true)
	c.metric.RecordLoad(0, true)
	c.listeners.onLoad(key, value)
}

// onRefreshFailed is the refresher's failure hook: a stale entry remains
// visible, but the failure is still observable through stats and the
// on_load_error listener event.
func (c *Cache[K, V]) onRefreshFailed(key K, err error) {
	c.stats.recordLoad(stripeAffinity(), 0, false)
	c.metric.RecordLoad(0, false)
	c.listeners.onLoadError(key, err)
}

func (c *Cache[K, V]) buildEntry(key K, value V, hash uint64, now int64) *internalEntry[K, V] {
	w := int64(1)
	if c.cfg.Weigher != nil {
		w = c.cfg.Weigher(key, value)
	}
	e := &internalEntry[K, V]{
		key:            key,
		value:          value,
		weight:         w,
		keyHash:        hash,
		createdAtNanos: now,
		slot:           noSlot,
	}
	e.lastAccessNanos.Store(now)
	e.reg.Store(uint32(regionNone))
	if c.cfg.ExpireAfterWrite > 0 {
		e.expireAtNanos = now + int64(c.cfg.ExpireAfterWrite)
	}
	if c.cfg.RefreshAfterWrite > 0 {
		e.refreshAtNanos = now + int64(c.cfg.RefreshAfterWrite)
	}
	return e
}

func (c *Cache[K, V]) handleEvicted(evicted []evictedItem[K, V]) {
	for _, ev := range evicted {
		c.table.deleteExact(ev.entry.key, ev.entry.keyHash, ev.entry)
		c.adjustCounts(-1, -ev.entry.weight)
		c.stats.recordEviction(stripeAffinity())
		c.metric.RecordEviction()
		c.listeners.onEvict(ev.entry.key, ev.entry.value, ev.reason)
	}
}

func (c *Cache[K, V]) expireEntry(e *internalEntry[K, V], now int64) {
	if !c.table.deleteExact(e.key, e.keyHash, e) {
		return
	}
	c.policy.remove(e)
	c.adjustCounts(-1, -e.weight)
	c.stats.recordExpiration(stripeAffinity())
	c.metric.RecordExpiration()
	c.listeners.onExpire(e.key, e.value)
}

func (c *Cache[K, V]) adjustCounts(deltaCount int, deltaWeight int64) {
	c.size.Add(int64(deltaCount))
	c.weight.Add(deltaWeight)
}

// applyAccessRecord is the drain coordinator's apply callback: it reapplies
// whatever a buffered access implies for the policy and sketch.
func (c *Cache[K, V]) applyAccessRecord(rec accessRecord) {
	switch rec.kind {
	case accessRead:
		if e, ok := rec.entry.(*internalEntry[K, V]); ok {
			c.policy.recordHit(e)
		}
		c.policy.sketch.increment(rec.keyHash)
	case accessWrite:
		c.policy.sketch.increment(rec.keyHash)
	case accessEvict:
		// Reserved: eviction records are not currently enqueued, since
		// policy.admit already returns evicted items synchronously.
	}
}

// onMaintenanceTick runs the budgeted expiration sweep for one shard per
// tick, cycling through every shard over time.
func (c *Cache[K, V]) onMaintenanceTick(now int64) {
	if len(c.table.shards) == 0 {
		return
	}
	idx := int(uint64(c.scanCursor.Add(1)-1) % uint64(len(c.table.shards)))
	budget := sweepBudget(c.cfg.capacityUnits())
	expired, _ := scanShard[K, V](c.table, idx, now, c.expirer, budget)
	for _, e := range expired {
		c.expireEntry(e, now)
	}
}
