package fleettwin

import "fmt"

// A ClassConflictError rejects a reading whose declared class contradicts the
// class its device was bound to on first contact. The established binding
// stands; the reading has no effect.
type ClassConflictError struct {
	UUID     string // the reporting device
	Bound    string // the class the device is registered under
	Declared string // the class the reading declared
}

func (e *ClassConflictError) Error() string {
	return fmt.Sprintf("device %s is bound to class %q but declared %q", e.UUID, e.Bound, e.Declared)
}

// An UnknownValueTypeError marks one attribute of a reading whose value has no
// graph encoding. The attribute is dropped from the synthesized statements;
// the rest of the reading proceeds normally.
type UnknownValueTypeError struct {
	Attribute string // the dropped attribute
	Value     any    // the value that could not be encoded
}

func (e *UnknownValueTypeError) Error() string {
	return fmt.Sprintf("attribute %q: no graph encoding for %T value", e.Attribute, e.Value)
}

// An ExecutorFailure wraps an error from the graph executor. When Process
// returns one, no registry or class-table state was mutated for the reading,
// so resubmitting the same message is safe.
type ExecutorFailure struct {
	Err error
}

func (e *ExecutorFailure) Error() string {
	return fmt.Sprintf("graph executor: %v", e.Err)
}

func (e *ExecutorFailure) Unwrap() error {
	return e.Err
}
