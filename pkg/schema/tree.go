package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Tree is a tree of attribute bags mirroring the configuration schema.
// Children keep insertion order, which fixes the order of sibling list
// members in every walk.
type Tree struct {
	seg      Segment
	Bag      Bag
	children []*Tree
}

// NewTree returns an empty root.
func NewTree() *Tree {
	return &Tree{}
}

// Segment returns the node's own segment; the root has the zero segment.
func (t *Tree) Segment() Segment {
	return t.seg
}

// Children returns the direct children in insertion order.
func (t *Tree) Children() []*Tree {
	return t.children
}

func (t *Tree) child(seg Segment) *Tree {
	for _, c := range t.children {
		if c.seg.equal(seg) {
			return c
		}
	}
	return nil
}

// Get returns the node at p, or nil.
func (t *Tree) Get(p Path) *Tree {
	n := t
	for _, seg := range p {
		if n = n.child(seg); n == nil {
			return nil
		}
	}
	return n
}

// Lookup returns the bag at p, or nil when the node is missing.
func (t *Tree) Lookup(p Path) Bag {
	if n := t.Get(p); n != nil {
		return n.Bag
	}
	return nil
}

// Exists reports whether a node exists at p, with or without attributes.
func (t *Tree) Exists(p Path) bool {
	return t.Get(p) != nil
}

// Ensure returns the node at p, creating missing nodes along the way.
func (t *Tree) Ensure(p Path) *Tree {
	n := t
	for _, seg := range p {
		c := n.child(seg)
		if c == nil {
			c = &Tree{seg: Segment{Name: seg.Name, Key: append(Key(nil), seg.Key...)}}
			n.children = append(n.children, c)
		}
		n = c
	}
	return n
}

// Set replaces the bag at p.
func (t *Tree) Set(p Path, b Bag) {
	t.Ensure(p).Bag = b
}

// Merge merges b into the bag at p; attributes in b win.
func (t *Tree) Merge(p Path, b Bag) {
	n := t.Ensure(p)
	if n.Bag == nil {
		n.Bag = make(Bag, len(b))
	}
	n.Bag.Merge(b)
}

// Remove deletes the node at p and its subtree.
func (t *Tree) Remove(p Path) bool {
	if len(p) == 0 {
		return false
	}
	parent := t.Get(p.Parent())
	if parent == nil {
		return false
	}
	last := p.Last()
	for i, c := range parent.children {
		if c.seg.equal(last) {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			return true
		}
	}
	return false
}

// Walk visits every node in pre-order, the root first. Returning an error
// stops the walk.
func (t *Tree) Walk(fn func(p Path, n *Tree) error) error {
	return t.walk(nil, fn)
}

func (t *Tree) walk(p Path, fn func(Path, *Tree) error) error {
	if err := fn(p, t); err != nil {
		return err
	}
	for _, c := range t.children {
		if err := c.walk(p.Child(c.seg.Name, c.seg.Key...), fn); err != nil {
			return err
		}
	}
	return nil
}

// Flatten returns path string to bag for every node with attributes.
func (t *Tree) Flatten() map[string]Bag {
	out := make(map[string]Bag)
	t.Walk(func(p Path, n *Tree) error {
		if !n.Bag.IsEmpty() {
			out[p.String()] = n.Bag
		}
		return nil
	})
	return out
}

// Len returns the number of nodes carrying attributes.
func (t *Tree) Len() int {
	return len(t.Flatten())
}

// Equal reports whether both trees carry equal bags at the same paths.
// Structural nodes without attributes are ignored.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return (t == nil || t.Len() == 0) && (o == nil || o.Len() == 0)
	}
	a, b := t.Flatten(), o.Flatten()
	if len(a) != len(b) {
		return false
	}
	for p, bag := range a {
		if !bag.Equal(b[p]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := &Tree{seg: t.seg, Bag: t.Bag.Clone()}
	for _, c := range t.children {
		out.children = append(out.children, c.Clone())
	}
	return out
}

// MarshalYAML emits the flat path-to-bag form; yaml.v3 sorts the keys.
func (t *Tree) MarshalYAML() (interface{}, error) {
	return t.Flatten(), nil
}

// UnmarshalYAML reads the flat path-to-bag form, keeping document order.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: tree must be a mapping of path to attributes", value.Line)
	}
	*t = Tree{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		p, err := ParsePath(k.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", k.Line, err)
		}
		var attrs map[string]any
		if err := v.Decode(&attrs); err != nil {
			return fmt.Errorf("line %d: %s: %w", v.Line, k.Value, err)
		}
		if attrs == nil {
			t.Ensure(p)
			continue
		}
		t.Set(p, NewBag(attrs))
	}
	return nil
}

// MarshalJSON emits the flat path-to-bag form.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Flatten())
}

// UnmarshalJSON reads the flat form. JSON objects carry no order, so paths
// are inserted sorted.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var flat map[string]map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	paths := make([]string, 0, len(flat))
	for k := range flat {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	*t = Tree{}
	for _, k := range paths {
		p, err := ParsePath(k)
		if err != nil {
			return err
		}
		t.Set(p, NewBag(flat[k]))
	}
	return nil
}
