package fleettwin

import (
	"context"
	"sync"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// An Applier executes a synthesized statement plan against the graph. The
// whole plan applies atomically or not at all; see [Handler.Process] for how
// failures propagate.
//
// The production Applier lives in the neo4jexec package. Tests substitute
// recording doubles.
type Applier interface {
	Apply(ctx context.Context, plan []Statement) error
}

// A Handler is the consistency handler: it resolves each inbound reading
// against the device registry and the class table, synthesizes the graph
// statements the reading implies, and commits its bookkeeping only after the
// graph accepts them.
//
// A Handler is safe for concurrent use. Readings from distinct devices
// process concurrently; readings from one device serialise on that device's
// critical section, and novel-class derivations serialise globally so that
// identical concurrent descriptors converge on a single class.
type Handler struct {
	registry *DeviceRegistry
	classes  *ClassTable
	matcher  Matcher
	applier  Applier

	// novelMu serialises the novel-class path. A resolution that holds it
	// re-resolves before deriving, so the loser of a race against an identical
	// descriptor finds the winner's class at score 1 and matches it instead.
	novelMu sync.Mutex
}

// NewHandler returns a Handler resolving readings against the given registry
// and class table, applying plans through the given applier.
func NewHandler(registry *DeviceRegistry, classes *ClassTable, matcher Matcher, applier Applier) *Handler {
	return &Handler{
		registry: registry,
		classes:  classes,
		matcher:  matcher,
		applier:  applier,
	}
}

// Process resolves one reading end to end: decide how the device relates to
// the known world, synthesize the graph statements the reading implies, apply
// them, and only then commit registry and class-table changes.
//
// On any returned error, no registry or class-table state has been mutated
// and nothing was committed to the graph, so resubmitting the same message is
// safe. In particular an [ExecutorFailure] means the graph rejected the plan;
// a [ClassConflictError] or [MalformedMessageError] means the reading itself
// was rejected.
//
// Attribute-level [UnknownValueTypeError]s do not fail the reading; the
// offending attributes are dropped from the plan and the drops are logged.
func (h *Handler) Process(ctx context.Context, r Reading) (d Decision, err error) {
	ctx, span := tracer.Start(ctx, "Process", trace.WithAttributes(
		attribute.String("device.uuid", r.DeviceUUID),
	))
	defer span.End()
	defer func() { recordReading(ctx, d.State, err) }()
	logger := component.Logger(ctx).With("device", r.DeviceUUID)

	if err := r.Validate(); err != nil {
		return Decision{}, err
	}

	// The device's critical section spans lookup through commit, so N
	// concurrent first contacts from one device produce exactly one entity
	// creation.
	unlock := h.registry.lockUUID(r.DeviceUUID)
	defer unlock()

	d, err = h.decide(ctx, r)
	if err != nil {
		return Decision{}, err
	}
	span.SetAttributes(
		attribute.String("resolution.state", d.State.String()),
		attribute.String("resolution.class", d.Class.Name),
	)

	plan, dropped := Synthesize(d, r)
	for _, derr := range dropped {
		logger.Warn("Dropped attribute without a graph encoding", "error", derr, "class", d.Class.Name)
	}

	if err := h.applier.Apply(ctx, plan); err != nil {
		return Decision{}, &ExecutorFailure{Err: err}
	}

	// The graph accepted the plan; commit the bookkeeping it implies. Each
	// commit below is idempotent, so a device raced to this point converges.
	if d.NewClass {
		// Define may dedup the derived class onto an existing class with the
		// same capability set. The canonical class is the binding target from
		// here on; binding the derived name would orphan the device.
		canonical, created := h.classes.Define(d.Class)
		d.Class = canonical
		if created {
			novelClassCounter.Add(ctx, 1)
			logger.Info("Derived novel device class", "class", d.Class.Name, "capabilities", len(d.Class.Capabilities))
		}
	}
	if len(d.NewAttributes) > 0 {
		if err := h.classes.Extend(d.Class.Name, d.NewAttributes); err != nil {
			// The plan already applied; an extension conflict here means a
			// concurrent reading grew the schema differently. Surface it, the
			// established schema stands.
			logger.Warn("Schema extension rejected", "error", err)
		}
	}
	if d.State == KnownDevice {
		h.registry.Touch(r.DeviceUUID, r.Timestamp)
	} else {
		h.registry.Bind(r.DeviceUUID, d.Class.Name, r.Timestamp)
	}
	return d, nil
}

// decide resolves the reading to a Decision without side effects. The caller
// holds the device's critical section.
func (h *Handler) decide(ctx context.Context, r Reading) (Decision, error) {
	if rec, known := h.registry.Lookup(r.DeviceUUID); known {
		if r.DeviceClass != "" && r.DeviceClass != rec.ClassName {
			return Decision{}, &ClassConflictError{UUID: r.DeviceUUID, Bound: rec.ClassName, Declared: r.DeviceClass}
		}
		class, ok := h.classes.Lookup(rec.ClassName)
		if !ok {
			// A registry binding always names a table class; the table never
			// shrinks. Reaching here indicates a seed mismatch across restarts.
			return Decision{}, &ClassConflictError{UUID: r.DeviceUUID, Bound: rec.ClassName, Declared: r.DeviceClass}
		}
		return Decision{
			State:         KnownDevice,
			Class:         class,
			NewAttributes: undeclaredAttributes(class, r),
		}, nil
	}

	// First contact. A declared class short-circuits similarity entirely.
	if r.DeviceClass != "" {
		if class, ok := h.classes.Lookup(r.DeviceClass); ok {
			return Decision{
				State:         NewDeviceKnownClass,
				Class:         class,
				NewAttributes: undeclaredAttributes(class, r),
			}, nil
		}
		// Unknown declared class. Fall through to the descriptor, deriving
		// under the declared name when a novel class results.
	}

	caps := r.Descriptor.Capabilities()
	if class, score, ok := h.matcher.BestMatch(ctx, caps, h.classes.All()); ok {
		return Decision{
			State:         NewDeviceMatchedClass,
			Class:         class,
			Score:         score,
			NewAttributes: undeclaredAttributes(class, r),
		}, nil
	}

	// Novel class. Serialise derivations so two identical concurrent
	// descriptors yield one class: the second holder of the lock re-resolves
	// and finds the first one's class at score 1.
	h.novelMu.Lock()
	defer h.novelMu.Unlock()
	if class, score, ok := h.matcher.BestMatch(ctx, caps, h.classes.All()); ok {
		return Decision{
			State:         NewDeviceMatchedClass,
			Class:         class,
			Score:         score,
			NewAttributes: undeclaredAttributes(class, r),
		}, nil
	}
	class, err := DeriveClass(r.DeviceClass, r.Descriptor)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		State:         NewDeviceNovelClass,
		Class:         class,
		NewClass:      true,
		NewAttributes: undeclaredAttributes(class, r),
	}, nil
}

// undeclaredAttributes collects the reading's attributes the class schema has
// not declared yet, typed by inference from their values. Values whose type
// cannot be inferred are left out; the synthesizer reports them as drops.
func undeclaredAttributes(class DeviceClass, r Reading) map[string]ValueType {
	var out map[string]ValueType
	for name, v := range r.Measurements {
		if _, declared := class.Attributes[name]; declared {
			continue
		}
		t, ok := InferValueType(v)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]ValueType)
		}
		out[name] = t
	}
	return out
}
