// Package schema defines the configuration tree shared by every vendor module:
// paths, attribute bags, trees of bags, and the diffs between two trees.
package schema

import (
	"fmt"
	"strings"
)

// Key identifies one member of a list node among its siblings.
type Key []string

// String returns the comma-joined key values.
func (k Key) String() string {
	return strings.Join(k, ",")
}

// Equal reports whether both keys hold the same values in the same order.
func (k Key) Equal(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

// Segment is one step of a Path: a node name and, for list members, a key.
type Segment struct {
	Name string
	Key  Key
}

func (s Segment) String() string {
	if len(s.Key) == 0 {
		return s.Name
	}
	return s.Name + "[" + s.Key.String() + "]"
}

func (s Segment) equal(o Segment) bool {
	return s.Name == o.Name && s.Key.Equal(o.Key)
}

// Path addresses a node in the configuration tree. The zero value is the root.
//
//	/interfaces/interface[Ethernet1/1]/config
type Path []Segment

// ParsePath parses the string form of a path. Slashes inside a key
// (interface names) do not split segments.
func ParsePath(s string) (Path, error) {
	if s == "" || s == "/" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("path %q must start with '/'", s)
	}

	var p Path
	rest := s[1:]
	for rest != "" {
		var seg Segment
		end := strings.IndexAny(rest, "/[")
		if end < 0 {
			seg.Name = rest
			rest = ""
		} else {
			seg.Name = rest[:end]
			rest = rest[end:]
			if rest[0] == '[' {
				close := strings.IndexByte(rest, ']')
				if close < 0 {
					return nil, fmt.Errorf("path %q: unterminated key", s)
				}
				seg.Key = Key(strings.Split(rest[1:close], ","))
				rest = rest[close+1:]
			}
			if rest != "" {
				if rest[0] != '/' {
					return nil, fmt.Errorf("path %q: unexpected %q after key", s, rest[:1])
				}
				rest = rest[1:]
			}
		}
		if seg.Name == "" {
			return nil, fmt.Errorf("path %q: empty segment", s)
		}
		p = append(p, seg)
	}
	return p, nil
}

// MustParsePath is ParsePath for literals; it panics on malformed input.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range p {
		sb.WriteByte('/')
		sb.WriteString(seg.String())
	}
	return sb.String()
}

// Schema returns the path with every key stripped. Handlers are bound to
// schema paths; runtime paths carry keys.
func (p Path) Schema() string {
	if len(p) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range p {
		sb.WriteByte('/')
		sb.WriteString(seg.Name)
	}
	return sb.String()
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Parent returns the enclosing path. The root's parent is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final segment, or the zero Segment for the root.
func (p Path) Last() Segment {
	if len(p) == 0 {
		return Segment{}
	}
	return p[len(p)-1]
}

// Child returns a new path extending p by one segment.
func (p Path) Child(name string, key ...string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	seg := Segment{Name: name}
	if len(key) > 0 {
		seg.Key = append(Key{}, key...)
	}
	return append(out, seg)
}

// HasPrefix reports whether q is p itself or one of its ancestors.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if !p[i].equal(q[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether both paths address the same node.
func (p Path) Equal(q Path) bool {
	return len(p) == len(q) && p.HasPrefix(q)
}

// KeyOf returns the key of the nearest segment named name, walking from the
// leaf toward the root. Handlers use it to recover list keys of ancestors.
func (p Path) KeyOf(name string) Key {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Name == name {
			return p[i].Key
		}
	}
	return nil
}

// SchemaParent returns the schema form of the parent of a schema path string.
func SchemaParent(schemaPath string) string {
	i := strings.LastIndexByte(schemaPath, '/')
	if i <= 0 {
		return "/"
	}
	return schemaPath[:i]
}

// SchemaName returns the last node name of a schema path string.
func SchemaName(schemaPath string) string {
	return schemaPath[strings.LastIndexByte(schemaPath, '/')+1:]
}

// Resolve interprets rel against p. A leading "/" makes rel absolute; each
// ".." pops one segment; other segments are appended.
//
//	/protocols/bgp/neighbors/neighbor[10.0.0.1] + ../../global -> /protocols/bgp/global
func (p Path) Resolve(rel string) (Path, error) {
	if strings.HasPrefix(rel, "/") {
		return ParsePath(rel)
	}
	out := make(Path, len(p))
	copy(out, p)
	for _, part := range strings.Split(rel, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return nil, fmt.Errorf("path %q escapes the root of %s", rel, p)
			}
			out = out[:len(out)-1]
		default:
			seg, err := ParsePath("/" + part)
			if err != nil {
				return nil, err
			}
			out = append(out, seg...)
		}
	}
	return out, nil
}
