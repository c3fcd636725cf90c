package fleettwin

import (
	"context"
	"testing"
)

func TestSimilarity(t *testing.T) {
	temperature := Affordance{Name: "temperature", Kind: KindProperty, Type: TypeDouble}
	humidity := Affordance{Name: "humidity", Kind: KindProperty, Type: TypeDouble}
	calibrate := Affordance{Name: "calibrate", Kind: KindAction}
	overheat := Affordance{Name: "overheat", Kind: KindEvent}

	set := func(affordances ...Affordance) CapabilitySet {
		s := make(CapabilitySet, len(affordances))
		for _, a := range affordances {
			s[a] = struct{}{}
		}
		return s
	}

	tests := []struct {
		Name        string
		Left, Right CapabilitySet
		Want        float64
	}{
		{
			Name:  "identical",
			Left:  set(temperature, calibrate),
			Right: set(temperature, calibrate),
			Want:  1,
		},
		{
			Name:  "disjoint",
			Left:  set(temperature),
			Right: set(humidity),
			Want:  0,
		},
		{
			Name:  "half-overlap",
			Left:  set(temperature, calibrate, overheat),
			Right: set(temperature, calibrate, humidity),
			Want:  0.5,
		},
		{
			Name:  "subset",
			Left:  set(temperature),
			Right: set(temperature, calibrate),
			Want:  0.5,
		},
		{
			// Same name, different kind. These are distinct capabilities.
			Name:  "kind-matters",
			Left:  set(Affordance{Name: "reset", Kind: KindAction}),
			Right: set(Affordance{Name: "reset", Kind: KindEvent}),
			Want:  0,
		},
		{
			// An empty descriptor describes nothing; it must not score a
			// perfect match against an empty class.
			Name:  "both-empty",
			Left:  set(),
			Right: set(),
			Want:  0,
		},
		{
			Name:  "one-empty",
			Left:  set(temperature),
			Right: set(),
			Want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			if got := Similarity(tt.Left, tt.Right); got != tt.Want {
				t.Errorf("Similarity() = %v, want %v", got, tt.Want)
			}
			// Jaccard is symmetric; both argument orders must agree.
			if got := Similarity(tt.Right, tt.Left); got != tt.Want {
				t.Errorf("Similarity() reversed = %v, want %v", got, tt.Want)
			}
		})
	}
}

func TestMatcherBestMatch(t *testing.T) {
	class := func(name string, affordances ...Affordance) DeviceClass {
		s := make(CapabilitySet, len(affordances))
		for _, a := range affordances {
			s[a] = struct{}{}
		}
		return DeviceClass{Name: name, EntityType: name, Capabilities: s}
	}

	temperature := Affordance{Name: "temperature", Kind: KindProperty, Type: TypeDouble}
	humidity := Affordance{Name: "humidity", Kind: KindProperty, Type: TypeDouble}
	pressure := Affordance{Name: "pressure", Kind: KindProperty, Type: TypeDouble}

	classes := []DeviceClass{
		class("HumiditySensor", humidity),
		class("TemperatureSensor", temperature),
		class("WeatherStation", temperature, humidity, pressure),
	}

	m := Matcher{}
	ctx := context.Background()

	t.Run("ExactMatch", func(t *testing.T) {
		caps := classes[2].Capabilities
		best, score, ok := m.BestMatch(ctx, caps, classes)
		if !ok || best.Name != "WeatherStation" || score != 1 {
			t.Errorf("BestMatch() = %v, %v, %v; want WeatherStation, 1, true", best.Name, score, ok)
		}
	})

	t.Run("BelowThreshold", func(t *testing.T) {
		caps := CapabilitySet{
			{Name: "voltage", Kind: KindProperty, Type: TypeDouble}:   {},
			{Name: "current", Kind: KindProperty, Type: TypeDouble}:   {},
			{Name: "frequency", Kind: KindProperty, Type: TypeDouble}: {},
		}
		if _, _, ok := m.BestMatch(ctx, caps, classes); ok {
			t.Error("BestMatch() matched an unrelated capability set")
		}
	})

	t.Run("TieBreaksOnName", func(t *testing.T) {
		// The descriptor scores 0.5 against both single-capability classes.
		// The lexicographically smallest name must win, deterministically.
		caps := CapabilitySet{temperature: {}, humidity: {}}
		tied := []DeviceClass{classes[1], classes[0]} // deliberately unsorted
		for range 10 {
			best, score, ok := m.BestMatch(ctx, caps, tied)
			if !ok || best.Name != "HumiditySensor" {
				t.Fatalf("BestMatch() = %v, %v, %v; want HumiditySensor, 0.5, true", best.Name, score, ok)
			}
		}
	})

	t.Run("CustomThreshold", func(t *testing.T) {
		strict := Matcher{Threshold: 0.9}
		caps := CapabilitySet{temperature: {}, humidity: {}}
		if _, score, ok := strict.BestMatch(ctx, caps, classes); ok {
			t.Errorf("BestMatch() matched at %v under threshold 0.9", score)
		}
	})

	t.Run("MatchAny", func(t *testing.T) {
		// MatchAny is a literal zero threshold, distinct from the zero value
		// of Threshold which selects the default.
		lax := Matcher{Threshold: MatchAny}
		caps := CapabilitySet{
			{Name: "voltage", Kind: KindProperty, Type: TypeDouble}: {},
		}
		best, score, ok := lax.BestMatch(ctx, caps, classes)
		if !ok || score != 0 {
			t.Errorf("BestMatch() = %v, %v, %v; want a zero-score match", best.Name, score, ok)
		}
		if best.Name != "HumiditySensor" {
			t.Errorf("best = %q, want the lexicographically smallest candidate", best.Name)
		}
		// No candidates, no match, whatever the threshold.
		if _, _, ok := lax.BestMatch(ctx, caps, nil); ok {
			t.Error("BestMatch() matched against an empty class list")
		}
	})
}
