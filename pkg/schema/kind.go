package schema

// Kind is the shape of a schema node, fixed when the registry is built.
type Kind int

const (
	// KindLeafSet is an attribute bag with no children of its own.
	KindLeafSet Kind = iota
	// KindContainer holds a fixed set of children.
	KindContainer
	// KindList holds zero or more keyed members of the same shape.
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindLeafSet:
		return "leaf-set"
	case KindContainer:
		return "container"
	case KindList:
		return "list"
	}
	return "unknown"
}
