package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "newslens"

// StartTaskSpan starts the root span for one analysis task.
func StartTaskSpan(ctx context.Context, taskID, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task.analysis",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("task.key", key),
		),
	)
}

// StartStageSpan starts a span for one pipeline stage, named pipeline.<stage>.
func StartStageSpan(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline."+stage,
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String("pipeline.stage", stage)}, attrs...)...),
	)
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
