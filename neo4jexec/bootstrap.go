package neo4jexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fleettwin/fleettwin"
)

// BootstrapDatabase creates the database and the constraints the twin relies
// on: entity uuids are unique per class label, and context names are unique
// globally. Novel classes derived after bootstrap carry their own constraint
// statements in their first plan.
//
// To execute queries against the created database, open a session with the
// database name as the default database. For example:
//
//	s := d.NewSession(ctx, neo4j.SessionConfig{DatabaseName: name})
//	defer func() { _ = s.Close(ctx) }()
//	... use s ...
//
// This function is idempotent.
func BootstrapDatabase(ctx context.Context, d neo4j.DriverWithContext, name string, classes []fleettwin.DeviceClass) error {
	if err := createDatabase(ctx, d, name); err != nil {
		return fmt.Errorf("create database: %w", err)
	}

	s := d.NewSession(ctx, neo4j.SessionConfig{DatabaseName: name})
	defer func() { _ = s.Close(ctx) }()

	labels := []string{"Context", "Affordance"}
	for _, c := range classes {
		labels = append(labels, "`"+strings.ReplaceAll(c.EntityType, "`", "")+"`")
	}
	keys := map[string]string{"Context": "name", "Affordance": "name"}

	for _, l := range labels {
		key, ok := keys[l]
		if !ok {
			key = "uuid"
		}
		_, err := s.Run(ctx, `
			CREATE CONSTRAINT IF NOT EXISTS
			FOR (n:`+l+`)
			REQUIRE n.`+key+` IS UNIQUE
		`, nil)
		if err != nil {
			return fmt.Errorf("uniqueness constraint: label %v: %w", l, err)
		}
	}
	return s.Close(ctx)
}

func createDatabase(ctx context.Context, d neo4j.DriverWithContext, name string) error {
	if name == "" {
		panic("neo4jexec: database name must not be empty")
	}
	if name == "neo4j" {
		panic("neo4jexec: database name must not be neo4j: reserved for system database")
	}
	if strings.HasPrefix(name, "system") || strings.HasPrefix(name, "_") {
		panic("neo4jexec: Names that begin with an underscore and with the prefix system are reserved for internal use")
	}

	s := d.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = s.Close(ctx) }()

	// create a new database if it does not exist
	_, err := s.Run(ctx, `
			CREATE DATABASE $name IF NOT EXISTS
		`, map[string]interface{}{
		"name": name,
	})
	return err
}
