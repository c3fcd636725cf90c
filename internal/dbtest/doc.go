/*
Package dbtest spins up a Neo4j container for executor tests. It wraps the
testcontainers-go neo4j module with the boilerplate common to our tests:
short-mode skipping, parallelism, connectivity retries, and teardown.

If a test needs a specific customisation of the database, use the
testcontainers-go modules directly instead of growing this package.

Developing locally with Docker, you may want to manually inspect the database
after a test failure. To do this, set the Inspect flag to true:

	go test -dbtest.inspect

This package is intended to be used in tests only. It is not suitable for
production use.
*/
package dbtest
