// Package command builds the CLI command lines a writer emits for one node.
//
// Every helper is a pure function of the before and after bags: fields whose
// value did not change emit nothing, fields removed in after emit the
// vendor's negating form, and a node with nothing to say emits no lines at
// all, not even the enter/exit bracketing.
package command

import "strings"

// Dialect is the part of a vendor's CLI grammar the builders need.
type Dialect struct {
	// Negate prefixes the form of a command that removes it: "no", "undo".
	Negate string
	// Enter switches from exec mode into configuration mode.
	Enter []string
	// Exit returns to exec mode from any configuration sub-mode.
	Exit []string
}

// Negation returns the opposite form of line. A line already in negated
// form loses its prefix, so Negation is its own inverse.
func (d Dialect) Negation(line string) string {
	prefix := d.Negate + " "
	if strings.HasPrefix(line, prefix) {
		return strings.TrimPrefix(line, prefix)
	}
	return prefix + line
}

// Wrap brackets body with the enter and exit lines. An empty body yields no
// lines.
func (d Dialect) Wrap(body ...string) []string {
	if len(body) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.Enter)+len(body)+len(d.Exit))
	out = append(out, d.Enter...)
	out = append(out, body...)
	return append(out, d.Exit...)
}

// New starts a builder whose body runs inside the given sub-mode lines,
// for example "interface Ethernet1".
func (d Dialect) New(context ...string) *Builder {
	return &Builder{d: d, context: context}
}
