package observability

import (
	"context"
	"time"

	"github.com/PetoAdam/homenavi/forecast-service/internal/forecast"
	"github.com/PetoAdam/homenavi/forecast-service/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type instrumentedQuerier struct {
	next   forecast.Querier
	tracer oteltrace.Tracer
}

// InstrumentQuerier wraps q with a span and a latency observation per request.
func InstrumentQuerier(q forecast.Querier, tracer oteltrace.Tracer) forecast.Querier {
	return &instrumentedQuerier{next: q, tracer: tracer}
}

func (q *instrumentedQuerier) Timeline(ctx context.Context, placeName string) (models.Timeline, error) {
	ctx, span := q.tracer.Start(ctx, "visualcrossing.timeline")
	defer span.End()
	span.SetAttributes(attribute.String("forecast.place", placeName))

	start := time.Now()
	tl, err := q.next.Timeline(ctx, placeName)
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	upstreamDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return tl, err
}
