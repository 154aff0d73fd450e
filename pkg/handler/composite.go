// composite.go implements handlers that combine several independently written
// members bound to the same schema path.
package handler

import (
	"context"
	"fmt"
	"slices"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// Member is one contributor to a composite path. Either Reader or Writer may
// be nil; Check gates the member alone.
type Member struct {
	Name   string
	Reader Reader
	Writer Writer
	Check  Check
}

// Composite merges its members into one node.
//
// Reads call every member in registration order against the same bag. When
// two members set the same attribute the later-registered member's value
// is the one kept. This is deliberate and order dependent: register the
// authoritative member last.
//
// Writes concatenate the members' command lines in registration order. Each
// member brackets its own lines, so the concatenation never depends on CLI
// mode left behind by another member.
type Composite struct {
	members []Member
}

// NewComposite creates a composite from members in registration order.
func NewComposite(members ...Member) *Composite {
	return &Composite{members: append([]Member(nil), members...)}
}

// Members returns the members in registration order.
func (c *Composite) Members() []Member {
	return c.members
}

// Len returns the number of members.
func (c *Composite) Len() int {
	return len(c.members)
}

// HasReader reports whether any member reads.
func (c *Composite) HasReader() bool {
	for _, m := range c.members {
		if m.Reader != nil {
			return true
		}
	}
	return false
}

// HasWriter reports whether any member writes.
func (c *Composite) HasWriter() bool {
	for _, m := range c.members {
		if m.Writer != nil {
			return true
		}
	}
	return false
}

// Gate returns the composite restricted to members whose checks accept in.
// The second result is false when no member applies, which makes the whole
// node a pass-through.
func (c *Composite) Gate(in *CheckInput) (*Composite, bool) {
	var kept []Member
	for _, m := range c.members {
		if m.Check.Allows(in) {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	return &Composite{members: kept}, true
}

// Read merges every member's attributes into into.
func (c *Composite) Read(ctx context.Context, rc *ReadContext, p schema.Path, into schema.Bag) error {
	for _, m := range c.members {
		if m.Reader == nil {
			continue
		}
		part := make(schema.Bag)
		if err := m.Reader.Read(ctx, rc, p, part); err != nil {
			return fmt.Errorf("composite member %s: %w", m.Name, err)
		}
		into.Merge(part)
	}
	return nil
}

// Create concatenates every member's create lines.
func (c *Composite) Create(p schema.Path, after schema.Bag) ([]string, error) {
	return c.each(func(w Writer) ([]string, error) {
		return w.Create(p, after)
	})
}

// Delete concatenates every member's delete lines.
func (c *Composite) Delete(p schema.Path, before schema.Bag) ([]string, error) {
	return c.each(func(w Writer) ([]string, error) {
		return w.Delete(p, before)
	})
}

// Update concatenates every member's update lines. Members without an
// update form fall back to DeleteThenCreate individually, and only when
// their create lines differ between before and after, so a change owned by
// one member does not replace the others.
func (c *Composite) Update(p schema.Path, before, after schema.Bag) ([]string, error) {
	return c.each(func(w Writer) ([]string, error) {
		if Incremental(w) {
			return w.(Updater).Update(p, before, after)
		}
		old, err := w.Create(p, before)
		if err != nil {
			return nil, err
		}
		cur, err := w.Create(p, after)
		if err != nil {
			return nil, err
		}
		if slices.Equal(old, cur) {
			return nil, nil
		}
		return DeleteThenCreate(w, p, before, after)
	})
}

// Terminator returns the first terminator declared by a member.
func (c *Composite) Terminator() string {
	for _, m := range c.members {
		if t, ok := m.Writer.(Terminator); ok && t.Terminator() != "" {
			return t.Terminator()
		}
	}
	return ""
}

func (c *Composite) each(fn func(Writer) ([]string, error)) ([]string, error) {
	var out []string
	for _, m := range c.members {
		if m.Writer == nil {
			continue
		}
		lines, err := fn(m.Writer)
		if err != nil {
			return nil, fmt.Errorf("composite member %s: %w", m.Name, err)
		}
		out = append(out, lines...)
	}
	return out, nil
}
