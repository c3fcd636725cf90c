package fleettwin

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// A Reading is one normalised telemetry message reported by a device in the
// fleet. Readings are the sole input to the consistency [Handler].
//
// DeviceClass is optional: devices that know their own class declare it, while
// unanticipated devices rely on the Descriptor for classification. The
// Descriptor itself is typically present only on first contact.
type Reading struct {
	// DeviceUUID uniquely identifies the reporting device across the fleet.
	// It doubles as the graph entity key once the device is registered.
	DeviceUUID string `json:"uuid"`
	// DeviceClass is the class the device declares for itself, if any.
	DeviceClass string `json:"class,omitempty"`
	// Timestamp is the epoch second at which the measurements were taken.
	Timestamp int64 `json:"timestamp"`
	// Measurements maps attribute names to reported values. The mapping is
	// required but may be empty (e.g. a liveness beacon).
	Measurements map[string]any `json:"measurements"`
	// Descriptor semantically describes the device's capabilities. Expected on
	// first contact from a device of an unknown class, ignored otherwise.
	Descriptor *SemanticDescriptor `json:"descriptor,omitempty"`
}

// The ingress decoder. jsoniter is behaviour-compatible with encoding/json and
// considerably faster on the small, hot messages the fleet produces.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseReading normalises a raw inbound message into a Reading.
//
// It rejects messages that are not valid JSON or that lack a required field
// (device uuid, timestamp) with a [MalformedMessageError]. A rejected message
// has no effect on any state; callers may drop it without cleanup.
func ParseReading(p []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(p, &r); err != nil {
		return Reading{}, &MalformedMessageError{Field: "message", Reason: err.Error()}
	}
	if err := r.Validate(); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// Validate reports whether the Reading satisfies the inbound contract. It
// returns a [MalformedMessageError] naming the first offending field, or nil.
func (r Reading) Validate() error {
	if r.DeviceUUID == "" {
		return &MalformedMessageError{Field: "uuid", Reason: "required"}
	}
	if r.Timestamp <= 0 {
		return &MalformedMessageError{Field: "timestamp", Reason: "required epoch second"}
	}
	if r.Measurements == nil {
		return &MalformedMessageError{Field: "measurements", Reason: "required (may be empty)"}
	}
	return nil
}

// A MalformedMessageError rejects an inbound message that violates the reading
// contract. The handler guarantees no registry or class-table state is mutated
// for a malformed message.
type MalformedMessageError struct {
	Field  string // the offending field of the inbound message
	Reason string // why the field was rejected
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed reading: field %q: %s", e.Field, e.Reason)
}
