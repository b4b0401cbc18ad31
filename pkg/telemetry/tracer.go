package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the default tracer name for the application
	TracerName = "github.com/verustcode/ctreport"
)

// Tracer returns the global tracer for the application
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span with the given name and returns the context and span.
// The caller is responsible for calling span.End() when the operation is complete.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from the context.
// If no span is found, a no-op span is returned.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// SetSpanError records an error on the span and sets its status to error
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanOK sets the span status to OK
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// EndSpan records err (if any) and ends the span. Intended for defer.
func EndSpan(span trace.Span, err *error) {
	if err != nil && *err != nil {
		SetSpanError(span, *err)
	} else {
		SetSpanOK(span)
	}
	span.End()
}

// Common attribute keys for consistent naming
var (
	AttrRunID     = attribute.Key("run.id")
	AttrStorePath = attribute.Key("store.path")
	AttrNodeName  = attribute.Key("node.name")
	AttrHostName  = attribute.Key("host.name")
	AttrHostMode  = attribute.Key("host.mode")
	AttrCVEID     = attribute.Key("cve.id")
	AttrRenderer  = attribute.Key("render.mode")
	AttrOutput    = attribute.Key("output.path")
)

// WithRunAttributes returns span start options identifying a report run
func WithRunAttributes(runID, storePath string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrRunID.String(runID),
		AttrStorePath.String(storePath),
	)
}
