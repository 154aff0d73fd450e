package session

import (
	"context"
	"strings"
	"sync"
)

// Round is one recorded round trip.
type Round struct {
	Lines     []string
	Cacheable bool
}

// Recorder is a Channel that touches nothing. It records every round trip
// and answers with empty text, or with a canned response registered for the
// exact lines of a cacheable send. Apply against a Recorder previews the
// command sequence of a run.
type Recorder struct {
	mu        sync.Mutex
	rounds    []Round
	responses map[string]string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{responses: make(map[string]string)}
}

// Respond registers text as the answer to a cacheable send of lines.
func (r *Recorder) Respond(text string, lines ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[cacheKey(lines)] = text
}

// Send records the round trip.
func (r *Recorder) Send(ctx context.Context, lines []string, cacheable bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, Round{Lines: append([]string(nil), lines...), Cacheable: cacheable})
	if cacheable {
		return r.responses[cacheKey(lines)], nil
	}
	return "", nil
}

// Rounds returns every recorded round trip in order.
func (r *Recorder) Rounds() []Round {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Round(nil), r.rounds...)
}

// Writes returns the lines of every non-cacheable round trip in order.
func (r *Recorder) Writes() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]string
	for _, rd := range r.rounds {
		if !rd.Cacheable {
			out = append(out, rd.Lines)
		}
	}
	return out
}

// Script renders the writes as the text a user would type, one round trip
// per block.
func (r *Recorder) Script() string {
	var blocks []string
	for _, lines := range r.Writes() {
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n!\n") + "\n"
}

// Reset forgets recorded rounds but keeps canned responses.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = nil
}
