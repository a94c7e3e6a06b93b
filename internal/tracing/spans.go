package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPPath       = "http.path"
	AttrHTTPStatusCode = "http.status_code"
	AttrRequestID      = "request.id"
	AttrErrorKind      = "error.kind"
)

// Event names.
const (
	EventUnauthorized = "auth.unauthorized"
)

// StartRequestSpan opens a client span named "http.request <METHOD> <path>".
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, method, path, requestID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, fmt.Sprintf("http.request %s %s", method, path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrHTTPMethod, method),
			attribute.String(AttrHTTPPath, path),
			attribute.String(AttrRequestID, requestID),
		),
	)
}

// EndRequestSpan records the outcome and ends span. status is 0 when no
// response arrived.
func EndRequestSpan(span trace.Span, status int, errKind string, err error) {
	if status != 0 {
		span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))
	}
	if err != nil {
		if errKind != "" {
			span.SetAttributes(attribute.String(AttrErrorKind, errKind))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
