package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// StoredTrace is the W3C trace context kept next to an outbox row, so the relay
// publishes the event inside the trace of the request that booked it.
type StoredTrace struct {
	Traceparent string
	Tracestate  string
}

// CaptureTrace snapshots the trace context of ctx.
func CaptureTrace(ctx context.Context) StoredTrace {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return StoredTrace{Traceparent: carrier["traceparent"], Tracestate: carrier["tracestate"]}
}

func (t StoredTrace) IsZero() bool {
	return t.Traceparent == "" && t.Tracestate == ""
}

// Resume returns ctx carrying the stored trace as its remote parent.
func (t StoredTrace) Resume(ctx context.Context) context.Context {
	if t.IsZero() {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		"traceparent": t.Traceparent,
		"tracestate":  t.Tracestate,
	})
}
