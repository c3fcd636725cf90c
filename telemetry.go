package fleettwin

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/fleettwin/fleettwin")
var meter = otel.Meter("github.com/fleettwin/fleettwin")

var (
	// readingCounter counts processed readings, partitioned by the resolution
	// state the handler arrived at and whether processing succeeded.
	readingCounter metric.Int64Counter

	// novelClassCounter counts device classes derived at runtime from semantic
	// descriptors. A growing rate signals drift between the fleet and the seed
	// schema.
	novelClassCounter metric.Int64Counter

	// matchDuration measures how long similarity resolution takes, partitioned
	// by whether the best candidate cleared the threshold.
	matchDuration metric.Float64Histogram
)

func init() {
	// We're initiating the metric instruments on the otel meter. Encounter an
	// error during an instrument's initialisation, triggering a panic. This
	// scenario should not occur, if it does, it is likely related to the
	// attributes applied on the instrument.
	var err error
	readingCounter, err = meter.Int64Counter(
		"handler_readings_processed_counter",
		metric.WithDescription("how many readings the consistency handler has processed"),
	)
	if err != nil {
		s := fmt.Sprintf("handler: failed to init 'handler_readings_processed_counter' instrument: %v", err)
		panic(s)
	}
	novelClassCounter, err = meter.Int64Counter(
		"handler_novel_classes_counter",
		metric.WithDescription("how many device classes were derived at runtime from descriptors"),
	)
	if err != nil {
		s := fmt.Sprintf("handler: failed to init 'handler_novel_classes_counter' instrument: %v", err)
		panic(s)
	}
	matchDuration, err = meter.Float64Histogram(
		"similarity_match_duration_seconds",
		metric.WithDescription("how long resolving a capability set against the class table takes"),
		metric.WithUnit("s"),
	)
	if err != nil {
		s := fmt.Sprintf("similarity: failed to init 'similarity_match_duration_seconds' instrument: %v", err)
		panic(s)
	}
}

func recordReading(ctx context.Context, state ResolutionState, err error) {
	readingCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resolution.state", state.String()),
		attribute.Bool("resolution.ok", err == nil),
	))
}

func recordMatch(ctx context.Context, d time.Duration, matched bool) {
	matchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.Bool("match.found", matched),
	))
}
