package registry

import (
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/schema"
)

// Entry is one schema path in an execution plan.
type Entry struct {
	Path string
	Kind schema.Kind

	// Noop marks structural containers: no reader and no writer, so the
	// engine only descends through them.
	Noop bool

	KeyAttrs []string
	Reader   handler.Reader
	Lister   handler.Lister
	Writer   handler.Writer
	Check    handler.Check

	// Composite is set when the path was bound with BindComposite.
	Composite *handler.Composite

	// Terminator is appended to every non-empty round trip of this path.
	Terminator string

	index int
}

// Index returns the entry's position in the plan.
func (e *Entry) Index() int {
	return e.index
}

// Plan is the compiled, immutable form of a registry: every bound schema path
// in an order that satisfies all ordering and containment edges. It is safe
// to share across goroutines.
type Plan struct {
	entries  []*Entry
	byPath   map[string]*Entry
	children map[string][]*Entry
}

func newPlan(entries map[string]*entry, order []string) *Plan {
	p := &Plan{
		byPath:   make(map[string]*Entry, len(order)),
		children: make(map[string][]*Entry),
	}
	for i, path := range order {
		e := entries[path]
		b := e.binding
		pe := &Entry{
			Path:      path,
			Kind:      b.Kind,
			Noop:      e.noop || (b.Reader == nil && b.Writer == nil && b.Lister == nil),
			KeyAttrs:  b.KeyAttrs,
			Reader:    b.Reader,
			Lister:    b.Lister,
			Writer:    b.Writer,
			Check:     b.Check,
			Composite: e.composite,
			index:     i,
		}
		if b.Writer != nil {
			pe.Terminator = handler.TerminatorOf(b.Writer)
		}
		p.entries = append(p.entries, pe)
		p.byPath[path] = pe
		parent := schema.SchemaParent(path)
		p.children[parent] = append(p.children[parent], pe)
	}
	return p
}

// Entries returns every entry in plan order.
func (p *Plan) Entries() []*Entry {
	return append([]*Entry(nil), p.entries...)
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.entries)
}

// Lookup returns the entry for a schema path, or nil.
func (p *Plan) Lookup(schemaPath string) *Entry {
	return p.byPath[schemaPath]
}

// Index returns the plan position of a schema path, or -1 if it is unbound.
func (p *Plan) Index(schemaPath string) int {
	if e, ok := p.byPath[schemaPath]; ok {
		return e.index
	}
	return -1
}

// Before reports whether a runs before b when both are created or updated.
func (p *Plan) Before(a, b string) bool {
	ia, ib := p.Index(a), p.Index(b)
	return ia >= 0 && ib >= 0 && ia < ib
}

// Children returns the entries directly below a schema path, in plan order.
// The roots of the tree are the children of "/".
func (p *Plan) Children(schemaPath string) []*Entry {
	return p.children[schemaPath]
}
