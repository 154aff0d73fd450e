package schema

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Bag is the value attached to one node: attribute name to scalar, nested Bag,
// or ordered list. A nil or empty Bag means the node is absent.
type Bag map[string]any

// IsEmpty reports whether the bag carries no attributes.
func (b Bag) IsEmpty() bool {
	return len(b) == 0
}

// Has reports whether attr is set.
func (b Bag) Has(attr string) bool {
	_, ok := b[attr]
	return ok
}

// Set sets attr and returns b for chaining. Setting on a nil bag panics, as
// with any nil map.
func (b Bag) Set(attr string, v any) Bag {
	b[attr] = normalize(v)
	return b
}

// GetString returns attr coerced to a string, "" when unset.
func (b Bag) GetString(attr string) string {
	return cast.ToString(b[attr])
}

// GetInt returns attr coerced to an int, 0 when unset or not numeric.
func (b Bag) GetInt(attr string) int {
	return cast.ToInt(b[attr])
}

// GetBool returns attr coerced to a bool, false when unset.
func (b Bag) GetBool(attr string) bool {
	return cast.ToBool(b[attr])
}

// GetBag returns a nested bag, nil when unset or not a bag.
func (b Bag) GetBag(attr string) Bag {
	v, _ := b[attr].(Bag)
	return v
}

// GetList returns an ordered list value, nil when unset or not a list.
func (b Bag) GetList(attr string) []any {
	v, _ := b[attr].([]any)
	return v
}

// Attrs returns the attribute names in sorted order.
func (b Bag) Attrs() []string {
	out := make([]string, 0, len(b))
	for k := range b {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (b Bag) Clone() Bag {
	if b == nil {
		return nil
	}
	return cloneValue(b).(Bag)
}

// Merge copies every attribute of other into b. Attributes already present
// are overwritten: the later merge wins.
func (b Bag) Merge(other Bag) Bag {
	for k, v := range other {
		b[k] = cloneValue(v)
	}
	return b
}

// Equal reports structural equality. Numbers compare by value regardless of
// their Go type, so 9000 read from a device equals 9000 decoded from YAML.
func (b Bag) Equal(other Bag) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return b.IsEmpty() && other.IsEmpty()
	}
	return equalValue(b, other)
}

// ValueEqual compares two attribute values the way Equal compares bags.
func ValueEqual(a, b any) bool {
	return equalValue(a, b)
}

// Decode copies the bag into a typed struct. Struct fields map to attributes
// through the `attr` tag; scalars are weakly typed so "9000" fills an int.
func (b Bag) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "attr",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(b)); err != nil {
		return fmt.Errorf("decoding attributes: %w", err)
	}
	return nil
}

// NewBag builds a bag from a generic map, converting nested maps and slices
// into Bag and []any.
func NewBag(m map[string]any) Bag {
	if m == nil {
		return nil
	}
	return normalize(m).(Bag)
}

func normalize(v any) any {
	switch t := v.(type) {
	case Bag:
		out := make(Bag, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(Bag, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []Bag:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Bag:
		out := make(Bag, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func equalValue(a, b any) bool {
	switch av := a.(type) {
	case Bag:
		bv, ok := b.(Bag)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, e := range av {
			o, ok := bv[k]
			if !ok || !equalValue(e, o) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	if isNumber(a) && isNumber(b) {
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
