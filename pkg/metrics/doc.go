// Package metrics defines the Prometheus instruments exposed on /metrics.
//
// The subsystem is optional: registration failures are reported to the
// caller, which logs and continues without instrumentation.
package metrics
