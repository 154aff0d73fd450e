package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/util"
)

// Status is the outcome of one node in a write run.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusUntouched Status = "untouched"
)

// NodeResult is what happened at one path.
type NodeResult struct {
	Path      string           `json:"path"`
	Operation schema.Operation `json:"operation"`
	Status    Status           `json:"status"`
	Lines     []string         `json:"lines,omitempty"`
	Response  string           `json:"response,omitempty"`
	Err       error            `json:"-"`
}

// WriteResult lists every changed node in execution order.
type WriteResult struct {
	RunID    string        `json:"run_id"`
	Device   string        `json:"device"`
	Nodes    []NodeResult  `json:"nodes"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether no node failed and none was left untouched.
func (r *WriteResult) OK() bool {
	for _, n := range r.Nodes {
		if n.Status == StatusFailed || n.Status == StatusUntouched {
			return false
		}
	}
	return true
}

// Failed returns the node that stopped the run, or nil.
func (r *WriteResult) Failed() *NodeResult {
	for i := range r.Nodes {
		if r.Nodes[i].Status == StatusFailed {
			return &r.Nodes[i]
		}
	}
	return nil
}

// Status returns the outcome at path, or "" when the run did not include it.
func (r *WriteResult) Status(path string) Status {
	for _, n := range r.Nodes {
		if n.Path == path {
			return n.Status
		}
	}
	return ""
}

// Applied returns the applied paths in execution order.
func (r *WriteResult) Applied() []string { return r.paths(StatusApplied) }

// Skipped returns the paths whose capability check declined them.
func (r *WriteResult) Skipped() []string { return r.paths(StatusSkipped) }

// Untouched returns the paths never attempted because an earlier node failed.
func (r *WriteResult) Untouched() []string { return r.paths(StatusUntouched) }

func (r *WriteResult) paths(s Status) []string {
	var out []string
	for _, n := range r.Nodes {
		if n.Status == s {
			out = append(out, n.Path)
		}
	}
	return out
}

// Step is one node scheduled for dispatch.
type Step struct {
	Path      schema.Path
	Diff      schema.Diff
	Operation schema.Operation
	Entry     *registry.Entry

	seq int
}

// Schedule returns the steps Apply would dispatch, in order: every delete
// in reverse plan order, then every create and update in plan order. Nodes
// at the same plan position keep tree order, reversed for deletes. Changes
// at unbound paths, at paths without a writer, or below a path being
// deleted fail the whole schedule.
func (e *Engine) Schedule(before, after *schema.Tree) ([]Step, error) {
	var (
		deletes, writes []Step
		errs            []error
	)
	for i, c := range schema.Flatten(before, after) {
		entry := e.plan.Lookup(c.Path.Schema())
		switch {
		case entry == nil:
			errs = append(errs, fmt.Errorf("%w: %s", util.ErrUnknownPath, c.Path))
			continue
		case entry.Noop:
			continue
		case entry.Writer == nil:
			errs = append(errs, fmt.Errorf("%w: %s", util.ErrNoWriter, c.Path))
			continue
		}
		st := Step{Path: c.Path, Diff: c.Diff, Operation: c.Diff.Operation(), Entry: entry, seq: i}
		if st.Operation == schema.OpDelete {
			deletes = append(deletes, st)
		} else {
			writes = append(writes, st)
		}
	}
	for _, w := range writes {
		for _, d := range deletes {
			if w.Path.HasPrefix(d.Path) {
				errs = append(errs, fmt.Errorf("%w: %s %s under %s", util.ErrDeletedParent, w.Operation, w.Path, d.Path))
				break
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", util.ErrValidationFailed, errors.Join(errs...))
	}

	sort.SliceStable(deletes, func(i, j int) bool {
		a, b := deletes[i], deletes[j]
		if a.Entry.Index() != b.Entry.Index() {
			return a.Entry.Index() > b.Entry.Index()
		}
		return a.seq > b.seq
	})
	sort.SliceStable(writes, func(i, j int) bool {
		a, b := writes[i], writes[j]
		if a.Entry.Index() != b.Entry.Index() {
			return a.Entry.Index() < b.Entry.Index()
		}
		return a.seq < b.seq
	})
	return append(deletes, writes...), nil
}

// Apply moves the device from before to after. Nodes are dispatched one
// round trip at a time; the first failure stops the run and leaves the
// remaining nodes untouched. Cancelling ctx stops the run before the next
// node, never inside a round trip. The returned error is the failing node's
// *util.NodeError, a validation error when nothing was sent, or the
// context's error when ctx ended the run.
func (e *Engine) Apply(ctx context.Context, before, after *schema.Tree) (*WriteResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	steps, err := e.Schedule(before, after)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &WriteResult{RunID: e.runID(), Device: e.device.Name}
	log := util.WithDevice(e.device.Name).WithField("run", res.RunID)
	log.Debugf("Apply started: %d nodes", len(steps))

	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			res.untouched(steps[i:])
			res.Duration = time.Since(start)
			log.Warnf("Apply cancelled before %s", st.Path)
			return res, err
		}
		nr, err := e.dispatch(ctx, st, before, after)
		res.Nodes = append(res.Nodes, nr)
		e.observe(string(st.Operation), string(nr.Status))
		if err != nil {
			res.untouched(steps[i+1:])
			res.Duration = time.Since(start)
			return res, err
		}
	}
	res.Duration = time.Since(start)
	log.Debugf("Apply finished: %d applied, %d skipped in %s", len(res.Applied()), len(res.Skipped()), res.Duration)
	return res, nil
}

func (r *WriteResult) untouched(steps []Step) {
	for _, st := range steps {
		r.Nodes = append(r.Nodes, NodeResult{Path: st.Path.String(), Operation: st.Operation, Status: StatusUntouched})
	}
}

func (e *Engine) dispatch(ctx context.Context, st Step, before, after *schema.Tree) (NodeResult, error) {
	path := st.Path.String()
	op := string(st.Operation)
	nr := NodeResult{Path: path, Operation: st.Operation}
	log := util.WithPath(e.device.Name, path).WithField("operation", op)

	in := &handler.CheckInput{
		Path:      st.Path,
		Operation: st.Operation,
		Diff:      st.Diff,
		Device:    e.device,
		Observed:  before,
		Desired:   after,
	}
	if !st.Entry.Check.Allows(in) {
		log.Info("Skipped by capability check")
		nr.Status = StatusSkipped
		return nr, nil
	}

	w := st.Entry.Writer
	if st.Entry.Composite != nil {
		c, ok := st.Entry.Composite.Gate(in)
		if !ok || !c.HasWriter() {
			log.Info("Skipped: no composite member applies")
			nr.Status = StatusSkipped
			return nr, nil
		}
		w = c
	}

	fail := func(ne *util.NodeError) (NodeResult, error) {
		nr.Status = StatusFailed
		nr.Err = ne
		log.Errorf("%s", ne.DetailedError())
		return nr, ne
	}

	if st.Operation == schema.OpUpdate {
		extra, err := handler.CheckContract(w, st.Path, st.Diff.After)
		if err != nil {
			return fail(util.NewNodeError(util.NodeErrorCompile, path, op, err))
		}
		if len(extra) > 0 {
			return fail(util.NewNodeError(util.NodeErrorContract, path, op,
				fmt.Errorf("update between equal attributes produced %q", extra)))
		}
	}

	lines, err := handler.Compile(w, st.Path, st.Diff)
	if err != nil {
		return fail(util.NewNodeError(util.NodeErrorCompile, path, op, err))
	}
	if len(lines) == 0 {
		log.Debug("Nothing to send")
		nr.Status = StatusApplied
		return nr, nil
	}
	if st.Entry.Terminator != "" {
		lines = append(lines, st.Entry.Terminator)
	}
	nr.Lines = lines

	// Round trips run to completion so the exit bracket is always sent;
	// cancellation is checked between nodes.
	log.Debugf("Sending %d lines", len(lines))
	resp, err := e.ch.Send(context.WithoutCancel(ctx), lines, false)
	nr.Response = resp
	if err != nil {
		ne := util.NewNodeError(util.NodeErrorTransport, path, op, err)
		ne.Response = resp
		return fail(ne)
	}
	if pat, ok := e.patterns.Match(resp); ok {
		ne := util.NewNodeError(util.NodeErrorRejected, path, op, fmt.Errorf("device response matched %q", pat))
		ne.Response = resp
		ne.Pattern = pat
		return fail(ne)
	}

	nr.Status = StatusApplied
	return nr, nil
}
