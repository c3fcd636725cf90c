package fleettwin

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseReading(t *testing.T) {
	const msg = `{
		"uuid": "d1",
		"class": "TemperatureSensor",
		"timestamp": 1700000000,
		"measurements": {"temperature": 21.5, "fan": true},
		"descriptor": {
			"name": "TemperatureSensor",
			"properties": {"temperature": "double"},
			"actions": ["calibrate"]
		}
	}`

	r, err := ParseReading([]byte(msg))
	if err != nil {
		t.Fatal("ParseReading():", err)
	}

	want := Reading{
		DeviceUUID:  "d1",
		DeviceClass: "TemperatureSensor",
		Timestamp:   1700000000,
		Measurements: map[string]any{
			"temperature": 21.5,
			"fan":         true,
		},
		Descriptor: &SemanticDescriptor{
			Name:       "TemperatureSensor",
			Properties: map[string]ValueType{"temperature": TypeDouble},
			Actions:    []string{"calibrate"},
		},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("ParseReading() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReading_rejects(t *testing.T) {
	tests := []struct {
		Name  string
		Body  string
		Field string
	}{
		{
			Name:  "NotJSON",
			Body:  `{"uuid": `,
			Field: "message",
		},
		{
			Name:  "MissingUUID",
			Body:  `{"timestamp": 1700000000, "measurements": {}}`,
			Field: "uuid",
		},
		{
			Name:  "MissingTimestamp",
			Body:  `{"uuid": "d1", "measurements": {}}`,
			Field: "timestamp",
		},
		{
			Name:  "NegativeTimestamp",
			Body:  `{"uuid": "d1", "timestamp": -5, "measurements": {}}`,
			Field: "timestamp",
		},
		{
			Name:  "MissingMeasurements",
			Body:  `{"uuid": "d1", "timestamp": 1700000000}`,
			Field: "measurements",
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := ParseReading([]byte(tt.Body))
			var malformed *MalformedMessageError
			if !errors.As(err, &malformed) {
				t.Fatalf("ParseReading() = %v, want a MalformedMessageError", err)
			}
			if malformed.Field != tt.Field {
				t.Errorf("Field = %q, want %q", malformed.Field, tt.Field)
			}
		})
	}
}

// An empty measurements mapping is a valid liveness beacon.
func TestParseReading_emptyMeasurements(t *testing.T) {
	r, err := ParseReading([]byte(`{"uuid": "d1", "timestamp": 1700000000, "measurements": {}}`))
	if err != nil {
		t.Fatal("ParseReading():", err)
	}
	if len(r.Measurements) != 0 {
		t.Errorf("Measurements = %v, want empty", r.Measurements)
	}
}
