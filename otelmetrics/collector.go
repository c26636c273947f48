// Package otelmetrics provides an OpenTelemetry implementation of
// arion.MetricsCollector.
//
// It is a separate module so the arion core never pulls in the OTEL SDK;
// applications that don't want metrics pay nothing for this package.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package otelmetrics

import (
	"context"
	"errors"

	"github.com/arionlabs/arion"
	"go.opentelemetry.io/otel/metric"
)

// Collector implements arion.MetricsCollector using OpenTelemetry
// instruments: histograms for operation latency (so a backend can compute
// p50/p95/p99) and counters for hits, misses, evictions, expirations, and
// loads.
type Collector struct {
	getLatency    metric.Int64Histogram
	putLatency    metric.Int64Histogram
	removeLatency metric.Int64Histogram
	loadLatency   metric.Int64Histogram

	hits         metric.Int64Counter
	misses       metric.Int64Counter
	evictions    metric.Int64Counter
	expirations  metric.Int64Counter
	loads        metric.Int64Counter
	loadFailures metric.Int64Counter
}

// Options configures Collector construction.
type Options struct {
	// MeterName names the OpenTelemetry meter. Default: "github.com/arionlabs/arion".
	MeterName string
}

// Option is a functional option for New.
type Option func(*Options)

// WithMeterName overrides the default meter name, useful when running
// several cache instances side by side.
func WithMeterName(name string) Option {
	return func(o *Options) { o.MeterName = name }
}

// New creates a Collector backed by provider. provider must not be nil.
func New(provider metric.MeterProvider, opts ...Option) (*Collector, error) {
	if provider == nil {
		return nil, errors.New("otelmetrics: meter provider cannot be nil")
	}

	options := Options{MeterName: "github.com/arionlabs/arion"}
	for _, opt := range opts {
		opt(&options)
	}
	meter := provider.Meter(options.MeterName)

	c := &Collector{}
	var err error

	if c.getLatency, err = meter.Int64Histogram("arion_get_latency_ns",
		metric.WithDescription("Latency of Get/GetIfPresent operations"), metric.WithUnit("ns")); err != nil {
		return nil, err
	}
	if c.putLatency, err = meter.Int64Histogram("arion_put_latency_ns",
		metric.WithDescription("Latency of Put operations"), metric.WithUnit("ns")); err != nil {
		return nil, err
	}
	if c.removeLatency, err = meter.Int64Histogram("arion_remove_latency_ns",
		metric.WithDescription("Latency of Remove operations"), metric.WithUnit("ns")); err != nil {
		return nil, err
	}
	if c.loadLatency, err = meter.Int64Histogram("arion_load_latency_ns",
		metric.WithDescription("Latency of loader invocations"), metric.WithUnit("ns")); err != nil {
		return nil, err
	}
	if c.hits, err = meter.Int64Counter("arion_hits_total",
		metric.WithDescription("Total number of cache hits")); err != nil {
		return nil, err
	}
	if c.misses, err = meter.Int64Counter("arion_misses_total",
		metric.WithDescription("Total number of cache misses")); err != nil {
		return nil, err
	}
	if c.evictions, err = meter.Int64Counter("arion_evictions_total",
		metric.WithDescription("Total number of policy evictions")); err != nil {
		return nil, err
	}
	if c.expirations, err = meter.Int64Counter("arion_expirations_total",
		metric.WithDescription("Total number of TTL-based expirations")); err != nil {
		return nil, err
	}
	if c.loads, err = meter.Int64Counter("arion_loads_total",
		metric.WithDescription("Total number of loader invocations")); err != nil {
		return nil, err
	}
	if c.loadFailures, err = meter.Int64Counter("arion_load_failures_total",
		metric.WithDescription("Total number of failed loader invocations")); err != nil {
		return nil, err
	}

	return c, nil
}

// RecordGet implements arion.MetricsCollector.
func (c *Collector) RecordGet(latencyNs int64, hit bool) {
	ctx := context.Background()
	c.getLatency.Record(ctx, latencyNs)
	if hit {
		c.hits.Add(ctx, 1)
	} else {
		c.misses.Add(ctx, 1)
	}
}

// RecordPut implements arion.MetricsCollector.
func (c *Collector) RecordPut(latencyNs int64) {
	c.putLatency.Record(context.Background(), latencyNs)
}

// RecordRemove implements arion.MetricsCollector.
func (c *Collector) RecordRemove(latencyNs int64) {
	c.removeLatency.Record(context.Background(), latencyNs)
}

// RecordEviction implements arion.MetricsCollector.
func (c *Collector) RecordEviction() {
	c.evictions.Add(context.Background(), 1)
}

// RecordExpiration implements arion.MetricsCollector.
func (c *Collector) RecordExpiration() {
	c.expirations.Add(context.Background(), 1)
}

// RecordLoad implements arion.MetricsCollector.
func (c *Collector) RecordLoad(latencyNs int64, success bool) {
	ctx := context.Background()
	c.loadLatency.Record(ctx, latencyNs)
	c.loads.Add(ctx, 1)
	if !success {
		c.loadFailures.Add(ctx, 1)
	}
}

var _ arion.MetricsCollector = (*Collector)(nil)
