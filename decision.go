package fleettwin

// A ResolutionState names the consistency handler's verdict on one reading:
// how the reporting device relates to the registry and the class table.
type ResolutionState int

const (
	// KnownDevice: the device is already registered; the reading only updates
	// its attribute values in the graph.
	KnownDevice ResolutionState = iota
	// NewDeviceKnownClass: first contact from a device declaring a class the
	// table already knows.
	NewDeviceKnownClass
	// NewDeviceMatchedClass: first contact from a device of an undeclared
	// class whose descriptor matched an existing class above threshold.
	NewDeviceMatchedClass
	// NewDeviceNovelClass: first contact from a device whose descriptor
	// matched nothing; a new class was derived from the descriptor.
	NewDeviceNovelClass
)

func (s ResolutionState) String() string {
	switch s {
	case KnownDevice:
		return "known-device"
	case NewDeviceKnownClass:
		return "new-device-known-class"
	case NewDeviceMatchedClass:
		return "new-device-matched-class"
	case NewDeviceNovelClass:
		return "new-device-novel-class"
	default:
		return "unknown"
	}
}

// A Decision is the consistency handler's resolution of one reading. It names
// the device's class, how that class was arrived at, and any schema growth the
// reading triggered; the synthesizer turns it into graph statements.
type Decision struct {
	// State is the resolution verdict.
	State ResolutionState
	// Class is the device class the reading resolved to.
	Class DeviceClass
	// Score is the similarity score that produced a match, when State is
	// NewDeviceMatchedClass; otherwise zero.
	Score float64
	// NewClass reports whether Class was created by this resolution, so the
	// synthesizer prepends its schema definition before any data statements.
	NewClass bool
	// NewAttributes holds attributes this reading introduced that the class
	// schema did not declare yet. The class schema grows to include them once
	// the graph commit succeeds.
	NewAttributes map[string]ValueType
}
