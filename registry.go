package fleettwin

import (
	"sort"
	"sync"
)

// A DeviceRecord is the registry's view of one known device: the class it was
// bound to on first contact and the bookkeeping counters updated on every
// subsequent reading.
type DeviceRecord struct {
	// UUID is the device's fleet-wide identifier.
	UUID string
	// ClassName names the device class the device was bound to on first
	// contact. A device keeps its class for life; see Reclassify for the
	// operator escape hatch.
	ClassName string
	// FirstSeen and LastSeen are the timestamps (epoch seconds) of the first
	// and most recent accepted readings from the device.
	FirstSeen int64
	LastSeen  int64
	// Messages counts accepted readings from the device.
	Messages int64
}

// A DeviceRegistry tracks the devices known to the twin. It is append-only:
// devices are bound once on first contact and never removed.
//
// Besides the records themselves, the registry owns the per-device critical
// sections the handler serialises first contacts with. A DeviceRegistry is
// safe for concurrent use.
type DeviceRegistry struct {
	mu      sync.Mutex
	records map[string]DeviceRecord
	locks   map[string]*sync.Mutex
}

// NewDeviceRegistry returns an empty registry.
func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{
		records: make(map[string]DeviceRecord),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Lookup returns the record for the given device, if known.
func (r *DeviceRegistry) Lookup(uuid string) (DeviceRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[uuid]
	return rec, ok
}

// Bind registers a device under the given class with its first-contact
// timestamp. Binding an already-known device is a no-op returning false, so
// callers racing on first contact converge on a single record.
func (r *DeviceRegistry) Bind(uuid, className string, at int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.records[uuid]; known {
		return false
	}
	r.records[uuid] = DeviceRecord{
		UUID:      uuid,
		ClassName: className,
		FirstSeen: at,
		LastSeen:  at,
		Messages:  1,
	}
	return true
}

// Touch records one more accepted reading from a known device, advancing its
// LastSeen watermark. Touching an unknown device is a no-op.
//
// LastSeen only moves forward; a late reading with an older timestamp still
// counts as a message but does not rewind the watermark.
func (r *DeviceRegistry) Touch(uuid string, at int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[uuid]
	if !ok {
		return
	}
	if at > rec.LastSeen {
		rec.LastSeen = at
	}
	rec.Messages++
	r.records[uuid] = rec
}

// Reclassify rebinds a known device to a different class. It is an
// out-of-band operator action, not part of the reading flow; the handler
// itself never changes an established binding.
func (r *DeviceRegistry) Reclassify(uuid, className string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[uuid]
	if !ok {
		return false
	}
	rec.ClassName = className
	r.records[uuid] = rec
	return true
}

// All returns the known device records sorted by uuid. The slice is a copy.
func (r *DeviceRegistry) All() []DeviceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeviceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

// Len returns the number of registered devices.
func (r *DeviceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// lockUUID enters the device's critical section and returns the function that
// leaves it. The handler holds this lock from registry lookup through graph
// commit, so N concurrent first contacts from one device produce exactly one
// entity creation.
func (r *DeviceRegistry) lockUUID(uuid string) func() {
	r.mu.Lock()
	l, ok := r.locks[uuid]
	if !ok {
		l = new(sync.Mutex)
		r.locks[uuid] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}
