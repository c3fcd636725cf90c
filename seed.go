package fleettwin

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// The seed schema file declares the device classes known before any telemetry
// arrives. It is authored out-of-band and loaded once at startup; the class
// table treats it as read-only except for runtime-appended novel classes.
//
// Example:
//
//	threshold: 0.5
//	classes:
//	  - name: TemperatureSensor
//	    entity_type: TemperatureSensor
//	    context: line-1
//	    properties:
//	      temperature: double
//	    actions: [calibrate]
//	    events: [overheat]
type seedFile struct {
	Threshold *float64    `yaml:"threshold"`
	Classes   []seedClass `yaml:"classes"`
}

type seedClass struct {
	Name       string               `yaml:"name"`
	EntityType string               `yaml:"entity_type"`
	Context    string               `yaml:"context"`
	Properties map[string]ValueType `yaml:"properties"`
	Actions    []string             `yaml:"actions"`
	Events     []string             `yaml:"events"`
}

// A SeedSchema is the decoded form of the static seed schema file: the initial
// device classes plus the configured similarity threshold.
type SeedSchema struct {
	// Threshold is the similarity threshold to resolve novel descriptors
	// against, in the Matcher's encoding: DefaultThreshold when the file
	// omits it, MatchAny when the file configures a literal zero.
	Threshold float64
	// Classes are the statically declared device classes, in file order.
	Classes []DeviceClass
}

// LoadSeedSchema reads and parses the seed schema file at the given path.
func LoadSeedSchema(path string) (SeedSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return SeedSchema{}, fmt.Errorf("open seed schema: %w", err)
	}
	defer f.Close()
	s, err := ParseSeedSchema(f)
	if err != nil {
		return SeedSchema{}, fmt.Errorf("parse seed schema %s: %w", path, err)
	}
	return s, nil
}

// ParseSeedSchema parses a YAML seed schema from the given reader.
//
// Each class entry is converted to a [DeviceClass] whose capability set is
// built from its declared properties, actions, and events - the same
// derivation rule applied to runtime descriptors, so seed and novel classes
// score comparably.
func ParseSeedSchema(r io.Reader) (SeedSchema, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return SeedSchema{}, fmt.Errorf("decode yaml: %w", err)
	}

	s := SeedSchema{Threshold: DefaultThreshold}
	if file.Threshold != nil {
		if *file.Threshold < 0 || *file.Threshold > 1 {
			return SeedSchema{}, fmt.Errorf("threshold %v outside [0,1]", *file.Threshold)
		}
		s.Threshold = *file.Threshold
		if s.Threshold == 0 {
			// A configured zero is distinct from an omitted threshold; carry
			// it in the Matcher's encoding so it survives the round-trip.
			s.Threshold = MatchAny
		}
	}

	for _, sc := range file.Classes {
		if sc.Name == "" {
			return SeedSchema{}, fmt.Errorf("class entry without a name")
		}
		d := &SemanticDescriptor{
			Name:       sc.Name,
			Properties: sc.Properties,
			Actions:    sc.Actions,
			Events:     sc.Events,
		}
		c, err := DeriveClass(sc.Name, d)
		if err != nil {
			return SeedSchema{}, fmt.Errorf("class %q: %w", sc.Name, err)
		}
		if sc.EntityType != "" {
			c.EntityType = sc.EntityType
		}
		c.Context = sc.Context
		s.Classes = append(s.Classes, c)
	}
	return s, nil
}
