package neo4jexec

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/fleettwin/fleettwin/neo4jexec")
var meter = otel.Meter("github.com/fleettwin/fleettwin/neo4jexec")

var (
	// appliedPlanCounter counts statement plans applied to the graph,
	// partitioned by outcome. The failure rate drives the resubmission alarm.
	appliedPlanCounter metric.Int64Counter
)

func init() {
	// We're initiating the metric instruments on the otel meter. Encounter an
	// error during an instrument's initialisation, triggering a panic. This
	// scenario should not occur, if it does, it is likely related to the
	// attributes applied on the instrument.
	var err error
	appliedPlanCounter, err = meter.Int64Counter(
		"executor_applied_plans_counter",
		metric.WithDescription("how many statement plans the executor has applied to the graph"),
	)
	if err != nil {
		s := fmt.Sprintf("executor: failed to init 'executor_applied_plans_counter' instrument: %v", err)
		panic(s)
	}
}
