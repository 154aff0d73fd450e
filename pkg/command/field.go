package command

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/spf13/cast"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// Field maps one or more attributes to a single command line.
type Field struct {
	attrs      []string
	set        func(d Dialect, b schema.Bag) (string, error)
	unset      func(d Dialect, b schema.Bag) (string, error)
	def        any
	hasDefault bool
}

// Value emits format with the attribute's value, e.g. Value("mtu", "mtu %s").
func Value(attr, format string) Field {
	return Field{
		attrs: []string{attr},
		set: func(_ Dialect, b schema.Bag) (string, error) {
			return fmt.Sprintf(format, cast.ToString(b[attr])), nil
		},
	}
}

// Flag emits cmd when the boolean attribute is true and its negation when
// it is false.
func Flag(attr, cmd string) Field {
	return Field{
		attrs: []string{attr},
		set: func(d Dialect, b schema.Bag) (string, error) {
			if cast.ToBool(b[attr]) {
				return cmd, nil
			}
			return d.Negation(cmd), nil
		},
	}
}

// Template renders text/template text over the bag. The line changes when
// any of attrs changes. Referencing an attribute the bag lacks is an error.
//
//	Template("neighbor {{.address}} remote-as {{.remoteAs}}", "address", "remoteAs")
func Template(text string, attrs ...string) Field {
	tmpl := template.Must(template.New(strings.Join(attrs, ",")).Option("missingkey=error").Parse(text))
	return Field{
		attrs: attrs,
		set: func(_ Dialect, b schema.Bag) (string, error) {
			var sb strings.Builder
			if err := tmpl.Execute(&sb, map[string]any(b)); err != nil {
				return "", fmt.Errorf("rendering %q: %w", text, err)
			}
			return sb.String(), nil
		},
	}
}

// Inverted swaps the meaning of a flag: true emits the negation.
//
//	Flag("enabled", "shutdown").Inverted()  // enabled: true -> "no shutdown"
func (f Field) Inverted() Field {
	set := f.set
	f.set = func(d Dialect, b schema.Bag) (string, error) {
		line, err := set(d, b)
		if err != nil {
			return "", err
		}
		return d.Negation(line), nil
	}
	return f
}

// Default treats attribute values equal to v as absent, so moving to the
// default emits the negating form and staying there emits nothing.
func (f Field) Default(v any) Field {
	f.def = v
	f.hasDefault = true
	return f
}

// Unset replaces the removal line, which is otherwise the negation of the
// line that set the old value.
func (f Field) Unset(fn func(d Dialect, before schema.Bag) string) Field {
	f.unset = func(d Dialect, b schema.Bag) (string, error) {
		return fn(d, b), nil
	}
	return f
}

// Attrs returns the attributes the field reads.
func (f Field) Attrs() []string {
	return f.attrs
}

func (f Field) present(b schema.Bag) bool {
	for _, a := range f.attrs {
		v, ok := b[a]
		if !ok {
			continue
		}
		if f.hasDefault && schema.ValueEqual(v, f.def) {
			continue
		}
		return true
	}
	return false
}

func (f Field) same(before, after schema.Bag) bool {
	for _, a := range f.attrs {
		bv, bok := before[a]
		av, aok := after[a]
		if bok != aok || (bok && !schema.ValueEqual(bv, av)) {
			return false
		}
	}
	return true
}

// Delta returns the line that moves the field from before to after, or ""
// when nothing changed.
func (f Field) Delta(d Dialect, before, after schema.Bag) (string, error) {
	bp, ap := f.present(before), f.present(after)
	switch {
	case !bp && !ap:
		return "", nil
	case bp && ap && f.same(before, after):
		return "", nil
	case ap:
		return f.set(d, after)
	}
	if f.unset != nil {
		return f.unset(d, before)
	}
	line, err := f.set(d, before)
	if err != nil {
		return "", err
	}
	return d.Negation(line), nil
}
