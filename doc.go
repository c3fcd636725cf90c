// Package fleettwin maintains a graph-structured digital twin of a fleet of
// IoT devices; the twin is kept consistent by digesting telemetry readings as
// they arrive from the fleet and mutating an external knowledge graph to match.
//
// The heart of the package is the consistency [Handler]: given one inbound
// [Reading], it decides whether the reporting device is already known, whether
// its declared class is known, and - when the class has never been seen
// before - where the device belongs in the graph schema, using a similarity
// metric over semantic device descriptions. The handler then synthesises the
// ordered graph statements required to reflect the reading and hands them to
// an [Applier] for transactional execution.
//
// Graph execution lives behind the Applier interface so the decision algorithm
// stays independent of any particular graph engine; the neo4jexec subpackage
// provides the Neo4j implementation.
package fleettwin
