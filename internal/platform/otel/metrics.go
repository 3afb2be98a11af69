package otel

import (
	"context"

	"github.com/phrazzld/newslens/internal/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "newslens"

// Metrics holds all task metric instruments.
type Metrics struct {
	TasksStarted      metric.Int64Counter
	TasksCompleted    metric.Int64Counter
	TasksFailed       metric.Int64Counter
	CacheHits         metric.Int64Counter
	InFlightJoins     metric.Int64Counter
	SynthesisWarnings metric.Int64Counter
	TaskDuration      metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates all metric instruments on the given meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TasksStarted, err = meter.Int64Counter("newslens.tasks.started",
		metric.WithDescription("Number of analysis tasks started"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("newslens.tasks.completed",
		metric.WithDescription("Number of analysis tasks completed"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("newslens.tasks.failed",
		metric.WithDescription("Number of analysis tasks failed"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("newslens.cache.hits",
		metric.WithDescription("Requests answered from a completed result"))
	if err != nil {
		return nil, err
	}

	m.InFlightJoins, err = meter.Int64Counter("newslens.cache.inflight_joins",
		metric.WithDescription("Requests attached to an already running task"))
	if err != nil {
		return nil, err
	}

	m.SynthesisWarnings, err = meter.Int64Counter("newslens.tasks.synthesis_warnings",
		metric.WithDescription("Completed tasks that carry a non-fatal warning"))
	if err != nil {
		return nil, err
	}

	m.TaskDuration, err = meter.Float64Histogram("newslens.task.duration_seconds",
		metric.WithDescription("Task duration from creation to terminal state in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCacheHit counts a request served from a completed task.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	m.CacheHits.Add(ctx, 1)
}

// RecordInFlightJoin counts a request that attached to a running task.
func (m *Metrics) RecordInFlightJoin(ctx context.Context) {
	m.InFlightJoins.Add(ctx, 1)
}

// HandleEvent implements events.EventHandler by counting task transitions.
func (m *Metrics) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	switch event.To {
	case "running":
		m.TasksStarted.Add(ctx, 1)
	case "completed":
		m.TasksCompleted.Add(ctx, 1)
		m.TaskDuration.Record(ctx, event.Elapsed.Seconds(),
			metric.WithAttributes(attribute.String("outcome", "completed")))
		if len(event.Warnings) > 0 {
			m.SynthesisWarnings.Add(ctx, 1)
		}
	case "failed":
		m.TasksFailed.Add(ctx, 1,
			metric.WithAttributes(attribute.String("error.kind", event.ErrorKind)))
		m.TaskDuration.Record(ctx, event.Elapsed.Seconds(),
			metric.WithAttributes(attribute.String("outcome", "failed")))
	}
	return nil
}

var _ events.EventHandler = (*Metrics)(nil)
