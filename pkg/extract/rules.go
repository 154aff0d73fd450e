package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// Rule extracts one attribute from text.
type Rule struct {
	Attr    string
	Pattern *regexp.Regexp
	apply   func(r Rule, text string, into schema.Bag) error
}

func compile(pattern string) *regexp.Regexp {
	return regexp.MustCompile("(?m)" + pattern)
}

// value returns the capture named "value", else the first group, else the
// whole match.
func value(re *regexp.Regexp, m []string) string {
	if i := re.SubexpIndex("value"); i > 0 {
		return strings.TrimSpace(m[i])
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}

func converting(conv func(string) (any, error)) func(Rule, string, schema.Bag) error {
	return func(r Rule, text string, into schema.Bag) error {
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		v, err := conv(value(r.Pattern, m))
		if err != nil {
			return fmt.Errorf("attribute %s: %w", r.Attr, err)
		}
		into.Set(r.Attr, v)
		return nil
	}
}

// String sets attr to the captured text. Patterns are multi-line.
func String(attr, pattern string) Rule {
	return Rule{Attr: attr, Pattern: compile(pattern), apply: converting(func(s string) (any, error) {
		return s, nil
	})}
}

// Int sets attr to the captured text converted to an integer.
func Int(attr, pattern string) Rule {
	return Rule{Attr: attr, Pattern: compile(pattern), apply: converting(func(s string) (any, error) {
		return cast.ToIntE(s)
	})}
}

// Bool sets attr to the captured text converted to a boolean
// ("true", "1", "false", ...).
func Bool(attr, pattern string) Rule {
	return Rule{Attr: attr, Pattern: compile(pattern), apply: converting(func(s string) (any, error) {
		return cast.ToBoolE(s)
	})}
}

// Presence sets attr to true when pattern matches and leaves it unset
// otherwise.
func Presence(attr, pattern string) Rule {
	return Rule{Attr: attr, Pattern: compile(pattern), apply: func(r Rule, text string, into schema.Bag) error {
		if r.Pattern.MatchString(text) {
			into.Set(r.Attr, true)
		}
		return nil
	}}
}

// Absence sets attr to false when pattern matches and true otherwise, for
// settings the device only prints when they are off ("shutdown").
func Absence(attr, pattern string) Rule {
	return Rule{Attr: attr, Pattern: compile(pattern), apply: func(r Rule, text string, into schema.Bag) error {
		into.Set(r.Attr, !r.Pattern.MatchString(text))
		return nil
	}}
}

// Rules is an ordered rule set; later rules overwrite attributes set by
// earlier ones.
type Rules []Rule

// Apply runs every rule over text.
func (rs Rules) Apply(text string, into schema.Bag) error {
	for _, r := range rs {
		if err := r.apply(r, text, into); err != nil {
			return err
		}
	}
	return nil
}

// Bag runs every rule over text into a new bag.
func (rs Rules) Bag(text string) (schema.Bag, error) {
	b := make(schema.Bag)
	if err := rs.Apply(text, b); err != nil {
		return nil, err
	}
	return b, nil
}
