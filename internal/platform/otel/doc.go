// Package otel wires OpenTelemetry metrics and spans for analysis tasks.
// Instruments use the global providers; without an SDK installed they are no-ops.
package otel
