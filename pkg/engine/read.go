package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/util"
)

// ReadFailure is a subtree that could not be read.
type ReadFailure struct {
	Path string
	Err  error
}

// ReadResult is the observed tree of a read run. Subtrees listed in
// Failures are missing from Tree; everything else was read successfully.
type ReadResult struct {
	RunID    string
	Device   string
	Tree     *schema.Tree
	Failures []ReadFailure
	Duration time.Duration
}

// OK reports whether every subtree was read.
func (r *ReadResult) OK() bool {
	return len(r.Failures) == 0
}

// Read extracts the device's current state for every plan entry. Only
// cacheable round trips are sent. The error is non-nil only when ctx ends
// the run early; the partial result is returned with it.
func (e *Engine) Read(ctx context.Context) (*ReadResult, error) {
	return e.read(ctx, "")
}

// ReadSubtree reads only the nodes at or below a schema path. Ancestors are
// walked to discover list keys but their attributes are not read.
func (e *Engine) ReadSubtree(ctx context.Context, schemaPrefix string) (*ReadResult, error) {
	if e.plan.Lookup(schemaPrefix) == nil {
		return nil, fmt.Errorf("%w: %s", util.ErrUnknownPath, schemaPrefix)
	}
	return e.read(ctx, schemaPrefix)
}

func (e *Engine) read(ctx context.Context, prefix string) (*ReadResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res := &ReadResult{
		RunID:  e.runID(),
		Device: e.device.Name,
		Tree:   schema.NewTree(),
	}
	w := &readWalk{
		e:         e,
		res:       res,
		rc:        handler.NewReadContext(e.device, res.Tree, e.show),
		instances: map[string][]schema.Path{"/": {nil}},
	}

	util.WithDevice(e.device.Name).WithField("run", res.RunID).Debugf("Read started")
	for _, entry := range e.plan.Entries() {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		inScope, discoverOnly := scope(entry.Path, prefix)
		if !inScope {
			continue
		}
		for _, parent := range w.instances[schema.SchemaParent(entry.Path)] {
			found := w.entry(ctx, entry, parent, discoverOnly)
			w.instances[entry.Path] = append(w.instances[entry.Path], found...)
		}
	}
	res.Duration = time.Since(start)
	util.WithDevice(e.device.Name).WithField("run", res.RunID).Debugf("Read finished: %d nodes, %d failures in %s",
		res.Tree.Len(), len(res.Failures), res.Duration)
	return res, nil
}

// scope reports whether a schema path takes part in a walk limited to
// prefix, and whether it is only an ancestor of prefix.
func scope(path, prefix string) (inScope, ancestor bool) {
	switch {
	case prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/"):
		return true, false
	case strings.HasPrefix(prefix, path+"/"):
		return true, true
	}
	return false, false
}

type readWalk struct {
	e         *Engine
	res       *ReadResult
	rc        *handler.ReadContext
	instances map[string][]schema.Path
}

// entry reads one plan entry under one parent instance and returns the
// instances found. A failure drops the failed instance, and with it its
// subtree, from the walk.
func (w *readWalk) entry(ctx context.Context, entry *registry.Entry, parent schema.Path, discoverOnly bool) []schema.Path {
	name := schema.SchemaName(entry.Path)
	probe := parent.Child(name)
	log := util.WithPath(w.e.device.Name, probe.String())

	in := &handler.CheckInput{
		Path:      probe,
		Operation: schema.OpRead,
		Device:    w.e.device,
		Observed:  w.res.Tree,
	}
	if !entry.Check.Allows(in) {
		log.Debug("Read skipped by capability check")
		w.e.observe(string(schema.OpRead), string(StatusSkipped))
		return nil
	}

	reader := entry.Reader
	if entry.Composite != nil {
		c, ok := entry.Composite.Gate(in)
		if !ok {
			log.Debug("Read skipped: no composite member applies")
			w.e.observe(string(schema.OpRead), string(StatusSkipped))
			return nil
		}
		reader = nil
		if c.HasReader() {
			reader = c
		}
	}
	if discoverOnly {
		reader = nil
	}

	if entry.Noop {
		return []schema.Path{probe}
	}

	if entry.Kind != schema.KindList {
		if reader != nil {
			bag := make(schema.Bag)
			if err := reader.Read(ctx, w.rc, probe, bag); err != nil {
				w.fail(probe, err)
				return nil
			}
			if !bag.IsEmpty() {
				w.res.Tree.Set(probe, bag)
			}
			w.e.observe(string(schema.OpRead), string(StatusApplied))
		}
		return []schema.Path{probe}
	}

	keys, err := entry.Lister.ListKeys(ctx, w.rc, parent)
	if err != nil {
		w.fail(probe, err)
		return nil
	}
	var found []schema.Path
	for _, key := range keys {
		p := parent.Child(name, key...)
		bag := make(schema.Bag)
		for i, attr := range entry.KeyAttrs {
			if i < len(key) {
				bag.Set(attr, keyValue(key[i]))
			}
		}
		if reader != nil {
			if err := reader.Read(ctx, w.rc, p, bag); err != nil {
				w.fail(p, err)
				continue
			}
			w.e.observe(string(schema.OpRead), string(StatusApplied))
		}
		if !discoverOnly {
			w.res.Tree.Set(p, bag)
		}
		found = append(found, p)
	}
	return found
}

func (w *readWalk) fail(p schema.Path, err error) {
	util.WithPath(w.e.device.Name, p.String()).Warnf("Read failed: %v", err)
	w.res.Failures = append(w.res.Failures, ReadFailure{
		Path: p.String(),
		Err:  util.NewNodeError(util.NodeErrorRead, p.String(), string(schema.OpRead), err),
	})
	w.e.observe(string(schema.OpRead), string(StatusFailed))
}

// show is the ReadContext's path to the device: a cacheable round trip
// whose response is scanned for error patterns.
func (e *Engine) show(ctx context.Context, lines []string) (string, error) {
	out, err := e.ch.Send(ctx, lines, true)
	if err != nil {
		return "", err
	}
	if pat, ok := e.patterns.Match(out); ok {
		return out, fmt.Errorf("%w: %q matched %q", util.ErrRejected, strings.Join(lines, "; "), pat)
	}
	return out, nil
}

// keyValue turns a key string back into an attribute value: integers whose
// text round-trips exactly become ints so they compare equal to desired
// state decoded from YAML.
func keyValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil && strconv.Itoa(n) == s {
		return n
	}
	return s
}
