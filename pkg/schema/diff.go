package schema

// Operation names what a reconciliation step does at one path.
type Operation string

const (
	OpNone   Operation = "none"
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Diff is the before/after pair at one path.
type Diff struct {
	Before Bag `json:"before,omitempty" yaml:"before,omitempty"`
	After  Bag `json:"after,omitempty" yaml:"after,omitempty"`
}

// Operation classifies the diff: absent to present is a create, present to
// absent a delete, two unequal bags an update, and equal bags (including two
// absent ones) a no-op.
func (d Diff) Operation() Operation {
	switch {
	case d.Before.IsEmpty() && d.After.IsEmpty():
		return OpNone
	case d.Before.IsEmpty():
		return OpCreate
	case d.After.IsEmpty():
		return OpDelete
	case d.Before.Equal(d.After):
		return OpNone
	default:
		return OpUpdate
	}
}

// IsNoop reports whether the diff must not be dispatched.
func (d Diff) IsNoop() bool {
	return d.Operation() == OpNone
}

// Change is a diff located at a path.
type Change struct {
	Path Path
	Diff Diff
}

// Flatten lists every path whose bag differs between before and after.
// Paths appear in pre-order of after, followed by paths only present in
// before, in their pre-order. Either tree may be nil.
func Flatten(before, after *Tree) []Change {
	if before == nil {
		before = NewTree()
	}
	if after == nil {
		after = NewTree()
	}

	seen := make(map[string]bool)
	var changes []Change
	visit := func(p Path, _ *Tree) error {
		key := p.String()
		if seen[key] {
			return nil
		}
		seen[key] = true
		d := Diff{Before: before.Lookup(p), After: after.Lookup(p)}
		if !d.IsNoop() {
			changes = append(changes, Change{Path: p, Diff: d})
		}
		return nil
	}
	after.Walk(visit)
	before.Walk(visit)
	return changes
}
