package entity

// RefState is the resolution state of a [TypeReference].
type RefState string

// Reference states.
const (
	RefPending  RefState = "pending"
	RefResolved RefState = "resolved"
	RefExternal RefState = "external_unresolved"
)

// Reasons attached to externally unresolved references.
const (
	ReasonOutOfCorpus = "out-of-corpus"
	ReasonNotFound    = "not-found"
)

// TypeReference points from a field of one entity to another entity.
//
// Target is the ID as mentioned by the source (for example class:BP_Door).
// Entity is the documented entity the mention resolved to, which differs from
// Target when a class is documented through the graph that generates it.
type TypeReference struct {
	Target ID       `json:"target"`
	State  RefState `json:"state"`
	Entity ID       `json:"entity,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// Pending returns an unresolved reference to target.
func Pending(target ID) TypeReference {
	return TypeReference{Target: target, State: RefPending}
}

// Resolved returns a copy of r pointing at the documented entity.
func (r TypeReference) Resolved(entity ID) TypeReference {
	return TypeReference{Target: r.Target, State: RefResolved, Entity: entity}
}

// External returns a copy of r marked as unresolvable for reason.
func (r TypeReference) External(reason string) TypeReference {
	return TypeReference{Target: r.Target, State: RefExternal, Reason: reason}
}

// IsPending reports whether r has not been through resolution.
func (r TypeReference) IsPending() bool { return r.State == RefPending }

// FieldRef ties a reference to the field of the record that mentions it.
// Field is a dotted path such as "pins.Target.type" or
// "nodes.K2Node_CallFunction_0.function.owner".
type FieldRef struct {
	Field string        `json:"field"`
	Ref   TypeReference `json:"ref"`
}

// Record is implemented by every record the walker produces.
type Record interface {
	EntityID() ID
	References() []FieldRef
}
