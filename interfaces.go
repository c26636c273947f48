// interfaces.go: ambient collaborator interfaces (logging, time)
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0

package arion

import (
	timecache "github.com/agilira/go-timecache"
)

// Logger defines a minimal structured-logging interface. Implementations
// should be allocation-free on the common path; arion never logs on a
// cache hit.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger discards everything. Used as the default so call sites never
// need a nil check.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}
func (NoOpLogger) Info(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Warn(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// TimeSource provides the current time as a monotonic nanosecond counter.
// All internal TTL, refresh, and aging comparisons use this value; it is
// never interpreted as wall-clock time. Implementations must be fast and
// allocation-free since Get, Put and Remove read it on every call.
type TimeSource interface {
	Now() int64
}

// systemTimeSource is the default TimeSource, backed by go-timecache's
// cached clock to avoid a syscall on every cache operation.
type systemTimeSource struct{}

func (systemTimeSource) Now() int64 {
	return timecache.CachedTimeNano()
}
