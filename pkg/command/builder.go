package command

import (
	"fmt"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// Builder accumulates the body of one node's command sequence.
type Builder struct {
	d       Dialect
	context []string
	body    []string
	err     error
}

// Line appends a literal line.
func (b *Builder) Line(line string) *Builder {
	b.body = append(b.body, line)
	return b
}

// Linef appends a formatted line.
func (b *Builder) Linef(format string, args ...any) *Builder {
	return b.Line(fmt.Sprintf(format, args...))
}

// Negated appends the negation of line.
func (b *Builder) Negated(line string) *Builder {
	return b.Line(b.d.Negation(line))
}

// Fields appends the delta of every field in order.
func (b *Builder) Fields(before, after schema.Bag, fields ...Field) *Builder {
	for _, f := range fields {
		line, err := f.Delta(b.d, before, after)
		if err != nil {
			if b.err == nil {
				b.err = err
			}
			continue
		}
		if line != "" {
			b.body = append(b.body, line)
		}
	}
	return b
}

// Len returns the number of body lines.
func (b *Builder) Len() int {
	return len(b.body)
}

// Lines returns the complete sequence: enter, sub-mode context, body, exit.
// An empty body yields nil.
func (b *Builder) Lines() ([]string, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.body) == 0 {
		return nil, nil
	}
	body := make([]string, 0, len(b.context)+len(b.body))
	body = append(body, b.context...)
	body = append(body, b.body...)
	return b.d.Wrap(body...), nil
}

// Leaf is a writer for leaf-set nodes whose commands are entirely described
// by fields. Creating emits every field of after, deleting negates every
// field of before, and updating emits only the fields that changed.
type Leaf struct {
	Dialect Dialect
	// Context returns the sub-mode lines for the node at p; nil for
	// global configuration.
	Context func(p schema.Path) []string
	Fields  []Field
}

func (l Leaf) compile(p schema.Path, before, after schema.Bag) ([]string, error) {
	var context []string
	if l.Context != nil {
		context = l.Context(p)
	}
	return l.Dialect.New(context...).Fields(before, after, l.Fields...).Lines()
}

// Create emits every field of after.
func (l Leaf) Create(p schema.Path, after schema.Bag) ([]string, error) {
	return l.compile(p, nil, after)
}

// Delete negates every field of before.
func (l Leaf) Delete(p schema.Path, before schema.Bag) ([]string, error) {
	return l.compile(p, before, nil)
}

// Update emits the fields that differ.
func (l Leaf) Update(p schema.Path, before, after schema.Bag) ([]string, error) {
	return l.compile(p, before, after)
}
