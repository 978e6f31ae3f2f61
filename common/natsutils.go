package common

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StatefulHandler adapts a function taking a context and some shared state
// into a micro.Handler, recording request count and latency for each call.
type StatefulHandler[S any] struct {
	ctx     context.Context
	state   S
	handler func(context.Context, micro.Request, S)
}

func (h StatefulHandler[S]) Handle(req micro.Request) {
	attrs := metric.WithAttributes(attribute.String("subject", req.Subject()))
	if NumRequests != nil {
		NumRequests.Add(h.ctx, 1, attrs)
	}

	start := time.Now()
	h.handler(h.ctx, req, h.state)
	record(h.ctx, start, attrs)
}

func NewHandler[S any](ctx context.Context, state S, handler func(context.Context, micro.Request, S)) StatefulHandler[S] {
	return StatefulHandler[S]{ctx: ctx, state: state, handler: handler}
}

// Instrument records the same request metrics for a plain NATS handler.
func Instrument[S any](handler Handler[S]) Handler[S] {
	return func(ctx context.Context, s *Service[S], msg *nats.Msg) {
		attrs := metric.WithAttributes(attribute.String("subject", msg.Subject))
		if NumRequests != nil {
			NumRequests.Add(ctx, 1, attrs)
		}

		start := time.Now()
		handler(ctx, s, msg)
		record(ctx, start, attrs)
	}
}

func record(ctx context.Context, start time.Time, attrs metric.MeasurementOption) {
	if ResponseTime != nil {
		ResponseTime.Record(ctx, time.Since(start).Milliseconds(), attrs)
	}
}
