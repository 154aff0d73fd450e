// Package testutil provides test helpers shared by the engine, vendor and
// command packages: a scripted device channel, tree fixtures and an
// in-process Redis.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/newtcli/pkg/session"
)

// Context returns a context with a reasonable timeout for tests.
// The cancel function is registered via t.Cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ProjectRoot returns the absolute path to the project root.
func ProjectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// MustEnv returns the value of an environment variable or skips the test.
func MustEnv(t *testing.T, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("environment variable %s not set", key)
	}
	return v
}

// Redis starts an in-process Redis server and returns a client for it.
// Both are closed when the test ends.
func Redis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type fakeRule struct {
	line     string
	response string
	err      error
}

// FakeChannel is a scripted session.Channel. A round trip is answered by
// the last rule registered for any of its lines; unmatched round trips
// answer "". Every round trip is recorded.
type FakeChannel struct {
	mu     sync.Mutex
	rules  []fakeRule
	rounds []session.Round
}

// NewFakeChannel creates a channel with no rules.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{}
}

// On answers response to any round trip containing line.
func (f *FakeChannel) On(line, response string) *FakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{line: line, response: response})
	return f
}

// FailOn fails any round trip containing line with err.
func (f *FakeChannel) FailOn(line string, err error) *FakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{line: line, err: err})
	return f
}

// Send implements session.Channel.
func (f *FakeChannel) Send(ctx context.Context, lines []string, cacheable bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds = append(f.rounds, session.Round{Lines: append([]string(nil), lines...), Cacheable: cacheable})

	for i := len(f.rules) - 1; i >= 0; i-- {
		r := f.rules[i]
		for _, l := range lines {
			if l == r.line {
				return r.response, r.err
			}
		}
	}
	return "", nil
}

// Rounds returns every recorded round trip.
func (f *FakeChannel) Rounds() []session.Round {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.Round(nil), f.rounds...)
}

// Writes returns the lines of every non-cacheable round trip.
func (f *FakeChannel) Writes() [][]string {
	var out [][]string
	for _, r := range f.Rounds() {
		if !r.Cacheable {
			out = append(out, r.Lines)
		}
	}
	return out
}

// WriteScript joins the writes one round trip per line, lines separated
// by "|", for compact assertions.
func (f *FakeChannel) WriteScript() []string {
	var out []string
	for _, w := range f.Writes() {
		out = append(out, strings.Join(w, "|"))
	}
	return out
}

// Reset forgets recorded round trips but keeps the rules.
func (f *FakeChannel) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds = nil
}
