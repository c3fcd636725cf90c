package fleettwin

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSeedSchema(t *testing.T) {
	const file = `
threshold: 0.6
classes:
  - name: TemperatureSensor
    context: line-1
    properties:
      temperature: double
    actions: [calibrate]
    events: [overheat]
  - name: Gateway
    entity_type: EdgeGateway
    properties:
      uplink: boolean
`
	s, err := ParseSeedSchema(strings.NewReader(file))
	if err != nil {
		t.Fatal("ParseSeedSchema():", err)
	}

	if s.Threshold != 0.6 {
		t.Errorf("Threshold = %v, want 0.6", s.Threshold)
	}
	if len(s.Classes) != 2 {
		t.Fatalf("len(Classes) = %d, want 2", len(s.Classes))
	}

	sensor := s.Classes[0]
	if sensor.Context != "line-1" {
		t.Errorf("Context = %q, want line-1", sensor.Context)
	}
	wantAttrs := map[string]ValueType{"temperature": TypeDouble}
	if diff := cmp.Diff(wantAttrs, sensor.Attributes); diff != "" {
		t.Errorf("Attributes mismatch (-want +got):\n%s", diff)
	}
	wantCaps := CapabilitySet{
		{Name: "temperature", Kind: KindProperty, Type: TypeDouble}: {},
		{Name: "calibrate", Kind: KindAction}:                       {},
		{Name: "overheat", Kind: KindEvent}:                         {},
	}
	if diff := cmp.Diff(wantCaps, sensor.Capabilities); diff != "" {
		t.Errorf("Capabilities mismatch (-want +got):\n%s", diff)
	}

	// entity_type overrides the default of reusing the class name.
	if got := s.Classes[1].EntityType; got != "EdgeGateway" {
		t.Errorf("EntityType = %q, want EdgeGateway", got)
	}
}

func TestParseSeedSchema_defaults(t *testing.T) {
	s, err := ParseSeedSchema(strings.NewReader("classes: []\n"))
	if err != nil {
		t.Fatal("ParseSeedSchema():", err)
	}
	if s.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %v, want the default %v", s.Threshold, DefaultThreshold)
	}
}

// A configured zero threshold is not the same as an omitted one; it must
// round-trip into a Matcher that accepts any best candidate.
func TestParseSeedSchema_zeroThreshold(t *testing.T) {
	s, err := ParseSeedSchema(strings.NewReader("threshold: 0\nclasses: []\n"))
	if err != nil {
		t.Fatal("ParseSeedSchema():", err)
	}
	if s.Threshold != MatchAny {
		t.Errorf("Threshold = %v, want MatchAny", s.Threshold)
	}

	m := Matcher{Threshold: s.Threshold}
	classes := []DeviceClass{{Name: "Beacon"}}
	caps := CapabilitySet{{Name: "ping", Kind: KindEvent}: {}}
	if _, score, ok := m.BestMatch(context.Background(), caps, classes); !ok || score != 0 {
		t.Errorf("BestMatch() = %v, %v; want a zero-score match under a configured zero threshold", score, ok)
	}
}

func TestParseSeedSchema_rejects(t *testing.T) {
	tests := []struct {
		Name string
		File string
	}{
		{
			Name: "NamelessClass",
			File: "classes:\n  - properties:\n      x: double\n",
		},
		{
			Name: "ThresholdOutOfRange",
			File: "threshold: 1.5\nclasses: []\n",
		},
		{
			// KnownFields is on; typos in the schema file must not pass
			// silently.
			Name: "UnknownField",
			File: "classes:\n  - name: X\n    porperties:\n      x: double\n",
		},
		{
			Name: "NotYAML",
			File: "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			if _, err := ParseSeedSchema(strings.NewReader(tt.File)); err == nil {
				t.Error("ParseSeedSchema() accepted an invalid file")
			}
		})
	}
}
