// Package otelmetrics wires arion's MetricsCollector interface into
// OpenTelemetry.
//
// # Usage
//
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	collector, err := otelmetrics.New(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cache, _ := arion.New(arion.Config[string, User]{
//	    MaximumSize:      10_000,
//	    MetricsCollector: collector,
//	})
//
// This is a separate module from the arion core so that applications which
// don't need OpenTelemetry never pull in its SDK dependency; arion's own
// MetricsCollector interface and NoOpMetricsCollector default are enough
// for a core cache with no collector configured.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package otelmetrics
