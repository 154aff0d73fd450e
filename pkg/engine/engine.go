// Package engine reconciles one device against an execution plan.
//
// Read walks the plan and extracts the observed tree through the plan's
// readers. Apply takes a before and an after tree, works out which nodes
// must be created, updated or deleted, and sends each node's commands as one
// round trip in plan order, stopping at the first node that fails.
//
// An Engine serves one device and runs one operation at a time. Engines for
// different devices share the plan and run in parallel.
package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/session"
)

// Observer is told the outcome of every node the engine handles.
type Observer interface {
	ObserveNode(operation, status string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithErrorPatterns sets the patterns that mark a write response as
// rejected by the device.
func WithErrorPatterns(p *session.ErrorPatternSet) Option {
	return func(e *Engine) { e.patterns = p }
}

// WithObserver reports node outcomes to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithRunID fixes the run ID generator, for tests.
func WithRunID(fn func() string) Option {
	return func(e *Engine) { e.runID = fn }
}

// Engine drives reads and writes for one device.
type Engine struct {
	mu       sync.Mutex
	plan     *registry.Plan
	ch       session.Channel
	device   handler.Device
	patterns *session.ErrorPatternSet
	observer Observer
	runID    func() string
}

// New creates an engine for device talking through ch.
func New(plan *registry.Plan, ch session.Channel, device handler.Device, opts ...Option) *Engine {
	e := &Engine{
		plan:   plan,
		ch:     ch,
		device: device,
		runID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Device returns the device the engine serves.
func (e *Engine) Device() handler.Device {
	return e.device
}

// Plan returns the execution plan.
func (e *Engine) Plan() *registry.Plan {
	return e.plan
}

func (e *Engine) observe(operation, status string) {
	if e.observer != nil {
		e.observer.ObserveNode(operation, status)
	}
}
