// Package registry binds vendor handlers to schema paths and compiles the
// bindings into an immutable execution plan.
//
// Vendor modules only ever talk to the engine through this package:
//
//	r := registry.New()
//	r.Bind("/vlans/vlan", handler.Binding{Lister: vlans, Writer: vlanWriter, KeyAttrs: []string{"vlanId"}})
//	r.Bind("/interfaces/interface/switched-vlan", handler.Binding{Reader: access, Writer: accessWriter})
//	r.OrderAfter("/interfaces/interface/switched-vlan", "/vlans/vlan")
//	plan, err := r.Build()
//
// Build validates everything at once and fails with a util.BuildError that
// lists every problem found.
package registry

import (
	"fmt"
	"sync"

	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/util"
)

type entry struct {
	path      string
	seq       int
	binding   handler.Binding
	composite *handler.Composite
	noop      bool
	implicit  bool
}

type edge struct {
	from, to string
}

// Registry accumulates bindings until Build is called.
type Registry struct {
	entries  map[string]*entry
	order    []string
	edges    []edge
	problems util.ValidationBuilder
	plan     *Plan
	buildErr error
	built    bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Bind attaches reader, lister, writer and check for one schema path.
// Binding the same path again is allowed only to supply roles not yet
// bound; a second writer is a build error.
func (r *Registry) Bind(path string, b handler.Binding) *Registry {
	r.mustNotBeBuilt()
	e := r.ensure(path)
	if e == nil {
		return r
	}
	e.implicit = false

	if b.Lister != nil && b.Kind == schema.KindLeafSet {
		b.Kind = schema.KindList
	}
	bound := e.binding.Reader != nil || e.binding.Writer != nil || e.binding.Lister != nil
	switch {
	case !bound || e.binding.Kind == schema.KindContainer:
		e.binding.Kind = b.Kind
	case b.Kind == schema.KindLeafSet:
		// a later binding that only adds roles keeps the earlier kind
	case b.Kind != e.binding.Kind:
		r.problems.AddErrorf("%s bound as both %s and %s", path, e.binding.Kind, b.Kind)
	}

	if b.Reader != nil {
		if e.binding.Reader != nil {
			r.problems.AddErrorf("duplicate reader binding for %s", path)
		}
		e.binding.Reader = b.Reader
	}
	if b.Lister != nil {
		if e.binding.Lister != nil {
			r.problems.AddErrorf("duplicate lister binding for %s", path)
		}
		e.binding.Lister = b.Lister
	}
	if b.Writer != nil {
		if e.binding.Writer != nil {
			r.problems.AddErrorf("duplicate writer binding for %s (combine handlers with BindComposite)", path)
		}
		e.binding.Writer = b.Writer
	}
	if b.Check != nil {
		if e.binding.Check != nil {
			r.problems.AddErrorf("duplicate capability check for %s", path)
		}
		e.binding.Check = b.Check
	}
	if len(b.KeyAttrs) > 0 {
		e.binding.KeyAttrs = append([]string(nil), b.KeyAttrs...)
	}
	return r
}

// BindComposite binds several independent handlers to one leaf-set path.
// Their reads merge into one bag and their writes concatenate, both in the
// order given here.
func (r *Registry) BindComposite(path string, members ...handler.Member) *Registry {
	r.mustNotBeBuilt()
	if len(members) == 0 {
		r.problems.AddErrorf("composite for %s has no members", path)
		return r
	}
	c := handler.NewComposite(members...)
	b := handler.Binding{}
	if c.HasReader() {
		b.Reader = c
	}
	if c.HasWriter() {
		b.Writer = c
	}
	r.Bind(path, b)
	if e := r.entries[path]; e != nil {
		e.composite = c
	}
	return r
}

// OrderBefore requires a's commands to be acknowledged before b's are sent
// when both are created or updated in one run. Deletes run in reverse.
func (r *Registry) OrderBefore(a, b string) *Registry {
	r.mustNotBeBuilt()
	r.edges = append(r.edges, edge{from: a, to: b})
	return r
}

// OrderAfter requires a to run after b; it is OrderBefore(b, a).
func (r *Registry) OrderAfter(a, b string) *Registry {
	return r.OrderBefore(b, a)
}

// MarkNoop declares a structural container: it has children but no state of
// its own, and reading it only descends.
func (r *Registry) MarkNoop(path string) *Registry {
	r.mustNotBeBuilt()
	e := r.ensure(path)
	if e == nil {
		return r
	}
	e.implicit = false
	e.noop = true
	e.binding.Kind = schema.KindContainer
	return r
}

// Build validates the bindings and returns the execution plan. The result
// is cached: later calls return the same plan or error.
func (r *Registry) Build() (*Plan, error) {
	if r.built {
		return r.plan, r.buildErr
	}
	r.built = true
	r.plan, r.buildErr = r.build()
	return r.plan, r.buildErr
}

func (r *Registry) build() (*Plan, error) {
	problems := append([]string(nil), r.problems.Messages()...)

	for _, path := range r.order {
		e := r.entries[path]
		b := e.binding
		if e.noop && (b.Reader != nil || b.Writer != nil || b.Lister != nil) {
			problems = append(problems, fmt.Sprintf("no-op path %s must not have its own reader, lister or writer", path))
		}
		if b.Kind == schema.KindList && b.Lister == nil {
			problems = append(problems, fmt.Sprintf("list %s has no key lister", path))
		}
	}
	for _, ed := range r.edges {
		for _, p := range []string{ed.from, ed.to} {
			if _, ok := r.entries[p]; !ok {
				problems = append(problems, fmt.Sprintf("ordering edge %s -> %s references unbound path %s", ed.from, ed.to, p))
			}
		}
	}
	if len(problems) > 0 {
		return nil, &util.BuildError{Problems: problems}
	}

	g := r.graph()
	if cycles := findCycles(g, r.order); len(cycles) > 0 {
		return nil, &util.BuildError{Cycles: cycles}
	}

	return newPlan(r.entries, topoSort(g, r.order, r.seqs())), nil
}

// ensure returns the entry for path, creating implicit container entries for
// the path and every missing ancestor. Ancestors are registered first so
// that ties in the plan put them ahead of their children.
func (r *Registry) ensure(path string) *entry {
	p, err := schema.ParsePath(path)
	if err != nil {
		r.problems.AddErrorf("invalid schema path: %v", err)
		return nil
	}
	if p.IsRoot() {
		r.problems.AddError("cannot bind the root path")
		return nil
	}
	if p.Schema() != path {
		r.problems.AddErrorf("schema path %s must not contain keys", path)
		return nil
	}

	if parent := schema.SchemaParent(path); parent != "/" {
		r.ensure(parent)
	}
	if e, ok := r.entries[path]; ok {
		return e
	}
	e := &entry{
		path:     path,
		seq:      len(r.order),
		implicit: true,
		binding:  handler.Binding{Kind: schema.KindContainer},
	}
	r.entries[path] = e
	r.order = append(r.order, path)
	return e
}

// graph returns the ordering edges plus one containment edge from every
// parent to each child.
func (r *Registry) graph() map[string][]string {
	g := make(map[string][]string, len(r.order))
	for _, path := range r.order {
		if parent := schema.SchemaParent(path); parent != "/" {
			g[parent] = append(g[parent], path)
		}
	}
	for _, ed := range r.edges {
		g[ed.from] = append(g[ed.from], ed.to)
	}
	return g
}

func (r *Registry) seqs() map[string]int {
	out := make(map[string]int, len(r.order))
	for _, path := range r.order {
		out[path] = r.entries[path].seq
	}
	return out
}

func (r *Registry) mustNotBeBuilt() {
	if r.built {
		panic("registry: binding after Build")
	}
}

// Once returns a function that builds a plan from register the first time
// it is called and returns the cached plan afterwards. The plan depends only
// on which handlers are registered, so it can be shared process-wide.
func Once(register func(r *Registry)) func() (*Plan, error) {
	var (
		once sync.Once
		plan *Plan
		err  error
	)
	return func() (*Plan, error) {
		once.Do(func() {
			r := New()
			register(r)
			plan, err = r.Build()
		})
		return plan, err
	}
}
