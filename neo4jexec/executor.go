// Package neo4jexec applies synthesized statement plans to a Neo4j graph.
//
// It is the production implementation of the fleettwin.Applier seam. The
// executor is deliberately thin: it owns no twin semantics, it only upholds
// the plan contract (schema statements first, data statements atomically) on
// behalf of the handler.
package neo4jexec

import (
	"context"
	"fmt"

	"github.com/danielorbach/go-component"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fleettwin/fleettwin"
)

// An Executor applies statement plans to one Neo4j database.
//
// Schema statements run individually outside any explicit transaction, as
// Neo4j requires; they are idempotent so a partially applied schema prefix is
// harmless on retry. Data statements run inside a single write transaction
// that is rolled back as a unit on any failure, which is what lets the
// handler treat a failed Apply as if the reading never happened.
type Executor struct {
	driver   neo4j.DriverWithContext // Connection to the neo4j server/cluster.
	database string                  // Target database name that identifies the specific underlying neo4j graph.
}

// NewExecutor returns an Executor targeting the given database. The database
// should have been prepared with [BootstrapDatabase].
func NewExecutor(driver neo4j.DriverWithContext, database string) *Executor {
	return &Executor{driver: driver, database: database}
}

// Apply executes the plan against the graph. See [Executor] for the
// transactional contract.
func (e *Executor) Apply(ctx context.Context, plan []fleettwin.Statement) (err error) {
	ctx, span := tracer.Start(ctx, "Apply", trace.WithAttributes(
		attribute.String("neo4j.database", e.database),
		attribute.Int("plan.statements", len(plan)),
	))
	defer span.End()
	logger := component.Logger(ctx).With("neo4j.database", e.database)
	defer func() {
		appliedPlanCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("plan.ok", err == nil),
		))
	}()

	var schema, writes []fleettwin.Statement
	for _, s := range plan {
		if s.Kind == fleettwin.SchemaStatement {
			schema = append(schema, s)
		} else {
			writes = append(writes, s)
		}
	}

	// We open a new session for every plan to ensure transactional isolation
	// and to prevent any state carryover between different executions. This
	// practice enhances robustness because any session-specific errors or
	// resources are contained and do not affect subsequent operations.
	s := e.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() {
		if err := s.Close(ctx); err != nil {
			logger.Error("Failed to close session", "error", err, "mode", "write")
		}
	}()

	// Neo4j refuses schema and data changes in one transaction, so schema
	// statements run first as auto-commit statements.
	for _, stmt := range schema {
		if _, err := s.Run(ctx, stmt.Text, nil); err != nil {
			return fmt.Errorf("schema statement: %w", err)
		}
	}

	if len(writes) == 0 {
		return nil
	}

	// We use write transactions because the neo4j SDK can provide transaction
	// management features such as retries, error handling, and deadlock
	// resolution.
	_, err = s.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for _, stmt := range writes {
			if _, err := tx.Run(ctx, stmt.Text, nil); err != nil {
				return nil, fmt.Errorf("statement %q: %w", stmt.Text, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j execute: %w", err)
	}
	return nil
}
