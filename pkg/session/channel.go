// Package session carries command round trips between the engine and a
// device's text CLI.
//
// A Channel owns the CLI mode state of one device. Every round trip sends a
// list of lines and returns the raw text the device answered, and handlers
// bracket their own lines so no round trip depends on the mode another left
// behind.
package session

import (
	"context"
	"regexp"
	"strings"
)

// Channel sends command lines to one device and returns its raw response.
// Cacheable sends are read-only show commands whose response may be reused
// until the next non-cacheable send.
type Channel interface {
	Send(ctx context.Context, lines []string, cacheable bool) (string, error)
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, lines []string, cacheable bool) (string, error)

// Send calls f.
func (f ChannelFunc) Send(ctx context.Context, lines []string, cacheable bool) (string, error) {
	return f(ctx, lines, cacheable)
}

// ErrorPatternSet is the ordered list of patterns that mark a device
// response as a rejection. A response that matches any pattern means the
// round trip failed, whatever else the device printed.
type ErrorPatternSet struct {
	patterns []*regexp.Regexp
}

// NewErrorPatternSet compiles patterns in order. Patterns are matched in
// multi-line mode, so ^ and $ anchor to response lines.
func NewErrorPatternSet(patterns ...string) (*ErrorPatternSet, error) {
	s := &ErrorPatternSet{}
	for _, p := range patterns {
		re, err := regexp.Compile("(?m)" + p)
		if err != nil {
			return nil, err
		}
		s.patterns = append(s.patterns, re)
	}
	return s, nil
}

// MustErrorPatternSet is NewErrorPatternSet for patterns known at compile time.
func MustErrorPatternSet(patterns ...string) *ErrorPatternSet {
	s, err := NewErrorPatternSet(patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

// With returns a new set holding s's patterns followed by patterns.
func (s *ErrorPatternSet) With(patterns ...string) (*ErrorPatternSet, error) {
	extra, err := NewErrorPatternSet(patterns...)
	if err != nil {
		return nil, err
	}
	out := &ErrorPatternSet{}
	if s != nil {
		out.patterns = append(out.patterns, s.patterns...)
	}
	out.patterns = append(out.patterns, extra.patterns...)
	return out, nil
}

// Match returns the first pattern that matches text.
func (s *ErrorPatternSet) Match(text string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, re := range s.patterns {
		if re.MatchString(text) {
			return strings.TrimPrefix(re.String(), "(?m)"), true
		}
	}
	return "", false
}

// Len returns the number of patterns.
func (s *ErrorPatternSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// cacheKey identifies a round trip by its exact lines.
func cacheKey(lines []string) string {
	return strings.Join(lines, "\n")
}
