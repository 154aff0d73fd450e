// Package extract turns CLI show output into attribute bags and list keys.
//
// Extraction is deliberately forgiving: text that does not match a pattern
// leaves the attribute unset rather than failing the read, because the same
// show command prints different optional lines across firmware versions.
package extract

import (
	"regexp"
	"strings"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// Match returns the named groups of the first match of re in text, or nil.
func Match(re *regexp.Regexp, text string) map[string]string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return groups(re, m)
}

// MatchAll returns the named groups of every match of re in text.
func MatchAll(re *regexp.Regexp, text string) []map[string]string {
	var out []map[string]string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, groups(re, m))
	}
	return out
}

func groups(re *regexp.Regexp, m []string) map[string]string {
	out := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(m) {
			out[name] = m[i]
		}
	}
	return out
}

// Keys returns one key per match of re, built from the named groups in
// order, without duplicates and in the order first seen.
//
//	Keys(regexp.MustCompile(`(?m)^interface (?P<name>\S+)`), runningConfig, "name")
func Keys(re *regexp.Regexp, text string, names ...string) []schema.Key {
	seen := make(map[string]bool)
	var out []schema.Key
	for _, g := range MatchAll(re, text) {
		k := make(schema.Key, len(names))
		for i, n := range names {
			k[i] = g[n]
		}
		if s := k.String(); !seen[s] {
			seen[s] = true
			out = append(out, k)
		}
	}
	return out
}

// Section is a header line and the indented lines below it, as printed in
// a running configuration.
type Section struct {
	Header string
	// Groups holds the named groups of the header pattern.
	Groups map[string]string
	Body   string
}

// Sections splits text into sections whose header matches header. A
// section ends at the next line that is not indented.
func Sections(text string, header *regexp.Regexp) []Section {
	var (
		out []Section
		cur *Section
		sb  strings.Builder
	)
	flush := func() {
		if cur != nil {
			cur.Body = sb.String()
			out = append(out, *cur)
			cur = nil
			sb.Reset()
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if cur != nil && indented {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}
		flush()
		if indented {
			continue
		}
		if m := header.FindStringSubmatch(line); m != nil {
			cur = &Section{Header: line, Groups: groups(header, m)}
		}
	}
	flush()
	return out
}

// FindSection returns the first section whose header matches and whose
// named groups equal want.
func FindSection(text string, header *regexp.Regexp, want map[string]string) (Section, bool) {
	for _, s := range Sections(text, header) {
		ok := true
		for k, v := range want {
			if s.Groups[k] != v {
				ok = false
				break
			}
		}
		if ok {
			return s, true
		}
	}
	return Section{}, false
}
