package fleettwin

import (
	"fmt"
	"sort"
	"sync"
)

// A DeviceClass describes one kind of device the twin knows about: the graph
// label its entities carry, the containment context they relate to, the typed
// attributes it reports, and the capability set derived from its semantic
// descriptor.
//
// Classes come from two places: the static seed schema loaded at startup, and
// runtime derivation when a reading's descriptor fails to match any existing
// class above threshold.
type DeviceClass struct {
	// Name uniquely identifies the class in the class table.
	Name string
	// EntityType is the graph label for entities of this class.
	EntityType string
	// Context names the containment context (e.g. a production line) entities
	// of this class relate to. May be empty for free-standing devices.
	Context string
	// Attributes maps reported attribute names to their declared value types.
	Attributes map[string]ValueType
	// Relations lists the action/event affordances of the class; each becomes
	// a relation from the entity to an affordance node in the graph.
	Relations []Affordance
	// Capabilities is the capability set extracted from the class's semantic
	// descriptor; it drives similarity scoring against novel descriptors.
	Capabilities CapabilitySet
}

// DeriveClass constructs a DeviceClass from a semantic descriptor: one typed
// attribute per property affordance and one relation per action/event
// affordance, exactly mirroring the descriptor's capability set.
//
// The given name takes precedence over the descriptor's own; pass "" to use
// the descriptor's name. DeriveClass fails when neither names the class.
func DeriveClass(name string, d *SemanticDescriptor) (DeviceClass, error) {
	if name == "" && d != nil {
		name = d.Name
	}
	if name == "" {
		return DeviceClass{}, &MalformedMessageError{Field: "descriptor", Reason: "novel class needs a declared class or a named descriptor"}
	}
	c := DeviceClass{
		Name:         name,
		EntityType:   name,
		Attributes:   make(map[string]ValueType),
		Capabilities: d.Capabilities(),
	}
	for a := range c.Capabilities {
		switch a.Kind {
		case KindProperty:
			c.Attributes[a.Name] = a.Type
		case KindAction, KindEvent:
			c.Relations = append(c.Relations, a)
		}
	}
	sort.Slice(c.Relations, func(i, j int) bool { return c.Relations[i].Name < c.Relations[j].Name })
	return c, nil
}

// A ClassTable holds the device classes known to the twin. It is seeded once
// at startup and grows at runtime as novel classes are derived; classes are
// never removed.
//
// The table upholds the dedup invariant: no two classes share an identical
// capability set. Define enforces this atomically, so concurrent resolutions
// of the same descriptor converge on a single class.
//
// A ClassTable is safe for concurrent use.
type ClassTable struct {
	mu     sync.Mutex
	byName map[string]DeviceClass
	byCaps map[CapabilityHash]string // fingerprint -> class name, for dedup
}

// NewClassTable returns a ClassTable seeded with the given classes.
//
// It fails if the seed violates a table invariant: duplicate class names, or
// two classes with identical capability sets.
func NewClassTable(seed []DeviceClass) (*ClassTable, error) {
	t := &ClassTable{
		byName: make(map[string]DeviceClass, len(seed)),
		byCaps: make(map[CapabilityHash]string, len(seed)),
	}
	for _, c := range seed {
		if _, dup := t.byName[c.Name]; dup {
			return nil, fmt.Errorf("seed schema: duplicate class %q", c.Name)
		}
		fp := Fingerprint(c.Capabilities)
		if prev, dup := t.byCaps[fp]; dup {
			return nil, fmt.Errorf("seed schema: classes %q and %q share a capability set", prev, c.Name)
		}
		t.byName[c.Name] = c
		t.byCaps[fp] = c.Name
	}
	return t, nil
}

// Lookup returns the class with the given name, if known.
func (t *ClassTable) Lookup(name string) (DeviceClass, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.byName[name]
	return c, ok
}

// All returns the known classes sorted by name. The slice is a copy; callers
// may keep it without holding up the table.
func (t *ClassTable) All() []DeviceClass {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DeviceClass, 0, len(t.byName))
	for _, c := range t.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of known classes.
func (t *ClassTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byName)
}

// Define adds the given class to the table, deduplicating on its capability
// set: if a class with an identical capability set already exists, that class
// is returned instead and nothing is added. The second return value reports
// whether the given class was actually added.
//
// The check-then-create is atomic, which makes Define the serialisation point
// for concurrent novel-class resolutions carrying the same descriptor.
func (t *ClassTable) Define(c DeviceClass) (DeviceClass, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fp := Fingerprint(c.Capabilities)
	if name, dup := t.byCaps[fp]; dup {
		return t.byName[name], false
	}
	if prev, dup := t.byName[c.Name]; dup {
		// Same name, different capabilities. The existing class wins; schemas
		// only grow through Extend, never through redefinition.
		return prev, false
	}
	t.byName[c.Name] = c
	t.byCaps[fp] = c.Name
	return c, true
}

// Extend grows the named class's attribute schema with the given attributes.
// Existing attributes are never modified or removed, preserving the validity
// of entities already inserted under the class; an attempt to redeclare an
// attribute with a different type is an error.
func (t *ClassTable) Extend(name string, attrs map[string]ValueType) error {
	if len(attrs) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.byName[name]
	if !ok {
		return fmt.Errorf("extend: unknown class %q", name)
	}
	grown := make(map[string]ValueType, len(c.Attributes)+len(attrs))
	for k, v := range c.Attributes {
		grown[k] = v
	}
	for k, v := range attrs {
		if prev, ok := grown[k]; ok && prev != v {
			return fmt.Errorf("extend: class %q attribute %q is %v, not %v", name, k, prev, v)
		}
		grown[k] = v
	}
	c.Attributes = grown
	t.byName[name] = c
	return nil
}
