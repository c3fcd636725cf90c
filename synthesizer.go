package fleettwin

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// A StatementKind separates statements that define graph schema from
// statements that write graph data. The graph engine cannot mix the two in one
// transaction, so the executor partitions a plan by kind.
type StatementKind int

const (
	// SchemaStatement defines schema (constraints, indexes). Idempotent.
	SchemaStatement StatementKind = iota
	// WriteStatement inserts or updates graph data.
	WriteStatement
)

// A Statement is one synthesized graph statement. Statements are plain Cypher
// text; they carry no parameters because the plan must be inspectable and
// replayable as-is.
type Statement struct {
	Kind StatementKind
	Text string
}

func (s Statement) String() string {
	return s.Text
}

// Synthesize turns a resolution decision and the reading that produced it into
// an ordered plan of graph statements.
//
// The plan obeys two ordering rules the graph engine depends on:
//
//   - Schema before data. When the decision introduced a novel class, its
//     schema definitions come before any statement inserting data under it.
//
//   - Entities before relations. A statement relating two nodes appears after
//     the statements that establish both endpoints.
//
// Attributes whose values have no graph encoding are dropped from the plan
// individually; each drop is reported as an [UnknownValueTypeError] in the
// second return value while the rest of the reading proceeds. The statement
// slice and the error slice are therefore both meaningful at once.
func Synthesize(d Decision, r Reading) ([]Statement, []error) {
	var plan []Statement
	var errs []error

	if d.NewClass {
		plan = append(plan, classSchema(d.Class)...)
	}

	entity := entityPattern(d.Class, r.DeviceUUID)
	at := encodeTimestamp(r.Timestamp)

	if d.State == KnownDevice {
		plan = append(plan, Statement{Kind: WriteStatement, Text: fmt.Sprintf(
			"MATCH %s SET d.last_seen = %s", entity, at,
		)})
	} else {
		plan = append(plan, Statement{Kind: WriteStatement, Text: fmt.Sprintf(
			"MERGE %s ON CREATE SET d.class = %s, d.first_seen = %s SET d.last_seen = %s",
			entity, quote(d.Class.Name), at, at,
		)})
		if d.Class.Context != "" {
			// The context node first, then the containment relation.
			plan = append(plan, Statement{Kind: WriteStatement, Text: fmt.Sprintf(
				"MERGE (c:Context {name: %s})", quote(d.Class.Context),
			)})
			plan = append(plan, Statement{Kind: WriteStatement, Text: fmt.Sprintf(
				"MATCH %s MATCH (c:Context {name: %s}) MERGE (d)-[:LOCATED_IN]->(c)",
				entity, quote(d.Class.Context),
			)})
		}
		for _, rel := range d.Class.Relations {
			plan = append(plan, Statement{Kind: WriteStatement, Text: fmt.Sprintf(
				"MERGE (a:Affordance {name: %s, kind: %s})", quote(rel.Name), quote(string(rel.Kind)),
			)})
			plan = append(plan, Statement{Kind: WriteStatement, Text: fmt.Sprintf(
				"MATCH %s MATCH (a:Affordance {name: %s, kind: %s}) MERGE (d)-[:OFFERS]->(a)",
				entity, quote(rel.Name), quote(string(rel.Kind)),
			)})
		}
	}

	// Measurements append in sorted attribute order so the plan for a given
	// reading is deterministic.
	names := make([]string, 0, len(r.Measurements))
	for name := range r.Measurements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := r.Measurements[name]
		typ, declared := d.Class.Attributes[name]
		if !declared {
			typ, declared = d.NewAttributes[name]
		}
		if !declared {
			errs = append(errs, &UnknownValueTypeError{Attribute: name, Value: v})
			continue
		}
		lit, err := encodeValue(v, typ)
		if err != nil {
			var unknown *UnknownValueTypeError
			if errors.As(err, &unknown) && unknown.Attribute == "" {
				unknown.Attribute = name
			}
			errs = append(errs, err)
			continue
		}
		plan = append(plan, Statement{Kind: WriteStatement, Text: fmt.Sprintf(
			"MATCH %s CREATE (d)-[:MEASURED]->(:Measurement {name: %s, value: %s, at: %s})",
			entity, quote(name), lit, at,
		)})
	}

	return plan, errs
}

// classSchema emits the idempotent schema definitions for a class: a
// uniqueness constraint on the entity key, and one on context names when the
// class declares a containment context.
func classSchema(c DeviceClass) []Statement {
	out := []Statement{{Kind: SchemaStatement, Text: fmt.Sprintf(
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.uuid IS UNIQUE", label(c.EntityType),
	)}}
	if c.Context != "" {
		out = append(out, Statement{
			Kind: SchemaStatement,
			Text: "CREATE CONSTRAINT IF NOT EXISTS FOR (n:Context) REQUIRE n.name IS UNIQUE",
		})
	}
	return out
}

func entityPattern(c DeviceClass, uuid string) string {
	return fmt.Sprintf("(d:%s {uuid: %s})", label(c.EntityType), quote(uuid))
}

// label backtick-quotes a node label so class names with unusual characters
// remain valid Cypher. Backticks themselves are stripped; they cannot be
// escaped inside a quoted label.
func label(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "") + "`"
}

func quote(s string) string {
	return strconv.Quote(s)
}

func encodeTimestamp(epoch int64) string {
	return fmt.Sprintf("datetime({epochSeconds: %d})", epoch)
}

// encodeValue renders a measurement value as a Cypher literal of the declared
// type. A value that cannot be rendered as its declared type yields an
// [UnknownValueTypeError] naming it, so the caller can drop the attribute and
// keep the rest of the plan.
func encodeValue(v any, t ValueType) (string, error) {
	switch t {
	case TypeDouble:
		switch n := v.(type) {
		case float64:
			return fmt.Sprintf("%.2f", n), nil
		case float32:
			return fmt.Sprintf("%.2f", n), nil
		case int:
			return fmt.Sprintf("%.2f", float64(n)), nil
		case int64:
			return fmt.Sprintf("%.2f", float64(n)), nil
		}
	case TypeLong:
		switch n := v.(type) {
		case int:
			return strconv.FormatInt(int64(n), 10), nil
		case int32:
			return strconv.FormatInt(int64(n), 10), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		case float64:
			// JSON decodes every number to float64; keep integral ones.
			if n == float64(int64(n)) {
				return strconv.FormatInt(int64(n), 10), nil
			}
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return quote(s), nil
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), nil
		}
	case TypeTimestamp:
		switch n := v.(type) {
		case int64:
			return encodeTimestamp(n), nil
		case float64:
			return encodeTimestamp(int64(n)), nil
		}
	}
	if vs, ok := v.([]any); ok {
		elems := make([]string, len(vs))
		for i, e := range vs {
			lit, err := encodeValue(e, t)
			if err != nil {
				return "", err
			}
			elems[i] = lit
		}
		return "[" + strings.Join(elems, ", ") + "]", nil
	}
	return "", &UnknownValueTypeError{Value: v}
}
