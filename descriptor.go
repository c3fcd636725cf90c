package fleettwin

import "sort"

// A ValueType names the wire encoding of an attribute value in the graph.
// The set of supported types follows the graph engine's literal types.
type ValueType string

const (
	TypeDouble    ValueType = "double"
	TypeLong      ValueType = "long"
	TypeString    ValueType = "string"
	TypeBoolean   ValueType = "boolean"
	TypeTimestamp ValueType = "datetime"
)

// InferValueType maps a decoded JSON measurement value to the ValueType it
// would be declared as. It is used when a reading carries an attribute the
// device's class has not declared yet, so the class schema can grow to
// accommodate it.
//
// The second return value is false for values with no graph encoding (nested
// objects, nils); such attributes surface later as [UnknownValueTypeError]s.
func InferValueType(v any) (ValueType, bool) {
	switch v.(type) {
	case float64, float32:
		return TypeDouble, true
	case int, int32, int64:
		return TypeLong, true
	case string:
		return TypeString, true
	case bool:
		return TypeBoolean, true
	case []any:
		// Lists are encoded element-wise; their declared type is the element
		// type of the first element.
		if vs := v.([]any); len(vs) > 0 {
			return InferValueType(vs[0])
		}
		return "", false
	default:
		return "", false
	}
}

// An AffordanceKind distinguishes the three kinds of affordances a semantic
// descriptor may declare about a device class.
type AffordanceKind string

const (
	KindProperty AffordanceKind = "property"
	KindAction   AffordanceKind = "action"
	KindEvent    AffordanceKind = "event"
)

// An Affordance is one interaction a device class offers: a readable property,
// an invocable action, or an emitted event, together with its declared type.
//
// Affordances are the atoms of similarity scoring: two affordances are the
// same capability exactly when all three fields are equal.
type Affordance struct {
	Name string
	Kind AffordanceKind
	Type ValueType
}

// A CapabilitySet is the set of affordances extracted from a semantic
// descriptor. The zero value (nil) is the empty set.
type CapabilitySet map[Affordance]struct{}

// Sorted returns the affordances of the set in a deterministic order (by name,
// then kind, then type), independent of map iteration order.
func (s CapabilitySet) Sorted() []Affordance {
	out := make([]Affordance, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// A SemanticDescriptor is a structured description of a device class's
// affordances and their data types (in the spirit of W3C WoT Thing
// Descriptions and IETF SDF). Devices of unanticipated classes attach one to
// their first reading so the handler can infer where the class belongs in the
// graph schema.
type SemanticDescriptor struct {
	// Name titles the described class. It becomes the class name when a novel
	// class is derived from this descriptor.
	Name string `json:"name"`
	// Properties maps property affordance names to their declared value types.
	Properties map[string]ValueType `json:"properties,omitempty"`
	// Actions lists the action affordances the device can be asked to perform.
	Actions []string `json:"actions,omitempty"`
	// Events lists the event affordances the device emits spontaneously.
	Events []string `json:"events,omitempty"`
}

// Capabilities extracts the descriptor's capability set: one property
// affordance per declared property, and one action/event affordance per
// declared action and event. A nil descriptor yields the empty set.
func (d *SemanticDescriptor) Capabilities() CapabilitySet {
	if d == nil {
		return nil
	}
	caps := make(CapabilitySet, len(d.Properties)+len(d.Actions)+len(d.Events))
	for name, typ := range d.Properties {
		caps[Affordance{Name: name, Kind: KindProperty, Type: typ}] = struct{}{}
	}
	for _, name := range d.Actions {
		caps[Affordance{Name: name, Kind: KindAction}] = struct{}{}
	}
	for _, name := range d.Events {
		caps[Affordance{Name: name, Kind: KindEvent}] = struct{}{}
	}
	return caps
}
