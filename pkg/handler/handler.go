// Package handler defines the contracts vendor modules implement for one
// schema path: reading device text into attribute bags, enumerating list
// keys, compiling before/after bags into CLI command lines, and gating all of
// it behind capability checks.
package handler

import (
	"context"
	"fmt"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// Device is the metadata capability checks and compilers may consult.
type Device struct {
	Name       string
	Family     string
	Version    string
	Attributes map[string]string
}

// ShowFunc sends show commands through the session as one cacheable round trip.
type ShowFunc func(ctx context.Context, lines []string) (string, error)

// ReadContext is handed to readers and listers during a read run.
type ReadContext struct {
	Device Device

	// Observed holds what this run has read so far, for handlers that
	// depend on sibling state.
	Observed *schema.Tree

	show ShowFunc
}

// NewReadContext creates a read context backed by show.
func NewReadContext(device Device, observed *schema.Tree, show ShowFunc) *ReadContext {
	return &ReadContext{Device: device, Observed: observed, show: show}
}

// Show runs read-only commands and returns their raw output.
func (rc *ReadContext) Show(ctx context.Context, lines ...string) (string, error) {
	if rc.show == nil {
		return "", fmt.Errorf("read context for %s has no session", rc.Device.Name)
	}
	return rc.show(ctx, lines)
}

// Reader extracts the current attributes of the node at p into into.
// Readers must not change device state.
type Reader interface {
	Read(ctx context.Context, rc *ReadContext, p schema.Path, into schema.Bag) error
}

// Lister enumerates the keys of a list node's members under parent.
type Lister interface {
	ListKeys(ctx context.Context, rc *ReadContext, parent schema.Path) ([]schema.Key, error)
}

// Writer compiles creates and deletes into command lines. Implementations
// are pure: the same path and bags always yield the same lines, and nothing
// outside the arguments influences them.
type Writer interface {
	Create(p schema.Path, after schema.Bag) ([]string, error)
	Delete(p schema.Path, before schema.Bag) ([]string, error)
}

// Updater is implemented by writers with an incremental update form.
// Writers without it are updated with DeleteThenCreate.
type Updater interface {
	Update(p schema.Path, before, after schema.Bag) ([]string, error)
}

// Terminator is implemented by writers whose command template ends every
// non-empty round trip with a fixed line, such as "commit".
type Terminator interface {
	Terminator() string
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, rc *ReadContext, p schema.Path, into schema.Bag) error

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context, rc *ReadContext, p schema.Path, into schema.Bag) error {
	return f(ctx, rc, p, into)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context, rc *ReadContext, parent schema.Path) ([]schema.Key, error)

// ListKeys calls f.
func (f ListerFunc) ListKeys(ctx context.Context, rc *ReadContext, parent schema.Path) ([]schema.Key, error) {
	return f(ctx, rc, parent)
}

// Binding is everything bound to one schema path.
type Binding struct {
	Kind schema.Kind

	// KeyAttrs names the attributes a list member's key values are copied
	// into before its reader runs.
	KeyAttrs []string

	Reader Reader
	Lister Lister
	Writer Writer
	Check  Check
}

// DeleteThenCreate is the update strategy for nodes with no incremental
// update form on the device: remove the old instance, then create the new
// one, in a single round trip.
func DeleteThenCreate(w Writer, p schema.Path, before, after schema.Bag) ([]string, error) {
	del, err := w.Delete(p, before)
	if err != nil {
		return nil, err
	}
	add, err := w.Create(p, after)
	if err != nil {
		return nil, err
	}
	return append(del, add...), nil
}

// Compile dispatches d to the writer operation matching its kind. No-op
// diffs compile to nothing without calling the writer.
func Compile(w Writer, p schema.Path, d schema.Diff) ([]string, error) {
	switch d.Operation() {
	case schema.OpCreate:
		return w.Create(p, d.After)
	case schema.OpDelete:
		return w.Delete(p, d.Before)
	case schema.OpUpdate:
		if u, ok := w.(Updater); ok {
			return u.Update(p, d.Before, d.After)
		}
		return DeleteThenCreate(w, p, d.Before, d.After)
	}
	return nil, nil
}

// Funcs builds a Writer from functions. A nil UpdateFn selects
// DeleteThenCreate.
type Funcs struct {
	CreateFn func(p schema.Path, after schema.Bag) ([]string, error)
	DeleteFn func(p schema.Path, before schema.Bag) ([]string, error)
	UpdateFn func(p schema.Path, before, after schema.Bag) ([]string, error)
	Term     string
}

// Create calls CreateFn.
func (f Funcs) Create(p schema.Path, after schema.Bag) ([]string, error) {
	if f.CreateFn == nil {
		return nil, fmt.Errorf("%s: create not supported", p)
	}
	return f.CreateFn(p, after)
}

// Delete calls DeleteFn.
func (f Funcs) Delete(p schema.Path, before schema.Bag) ([]string, error) {
	if f.DeleteFn == nil {
		return nil, fmt.Errorf("%s: delete not supported", p)
	}
	return f.DeleteFn(p, before)
}

// Update calls UpdateFn or falls back to DeleteThenCreate.
func (f Funcs) Update(p schema.Path, before, after schema.Bag) ([]string, error) {
	if f.UpdateFn == nil {
		return DeleteThenCreate(f, p, before, after)
	}
	return f.UpdateFn(p, before, after)
}

// Terminator returns Term.
func (f Funcs) Terminator() string {
	return f.Term
}

// Incremental reports whether UpdateFn is set.
func (f Funcs) Incremental() bool {
	return f.UpdateFn != nil
}

// Incremental reports whether w has an update form of its own. Writers that
// only fall back to DeleteThenCreate are not incremental.
func Incremental(w Writer) bool {
	if i, ok := w.(interface{ Incremental() bool }); ok {
		return i.Incremental()
	}
	_, ok := w.(Updater)
	return ok
}

// CheckContract compiles an update from b to b and returns the lines it
// produced, which for a correct writer is none. Writers without an update
// form are exempt: the engine never dispatches an equal diff to them.
func CheckContract(w Writer, p schema.Path, b schema.Bag) ([]string, error) {
	if t, ok := w.(terminated); ok {
		w = t.Writer
	}
	if c, ok := w.(*Composite); ok {
		var out []string
		for _, m := range c.members {
			if m.Writer == nil {
				continue
			}
			lines, err := CheckContract(m.Writer, p, b)
			if err != nil {
				return nil, fmt.Errorf("composite member %s: %w", m.Name, err)
			}
			out = append(out, lines...)
		}
		return out, nil
	}
	if !Incremental(w) {
		return nil, nil
	}
	return w.(Updater).Update(p, b, b)
}

// TerminatorOf returns w's terminator line, or "".
func TerminatorOf(w Writer) string {
	if t, ok := w.(Terminator); ok {
		return t.Terminator()
	}
	return ""
}

// WithTerminator returns w with term appended to every non-empty round
// trip it produces. An empty term returns w unchanged.
func WithTerminator(w Writer, term string) Writer {
	if w == nil || term == "" {
		return w
	}
	return terminated{Writer: w, term: term}
}

type terminated struct {
	Writer
	term string
}

func (t terminated) Terminator() string { return t.term }

func (t terminated) Update(p schema.Path, before, after schema.Bag) ([]string, error) {
	if u, ok := t.Writer.(Updater); ok {
		return u.Update(p, before, after)
	}
	return DeleteThenCreate(t.Writer, p, before, after)
}

func (t terminated) Incremental() bool { return Incremental(t.Writer) }
