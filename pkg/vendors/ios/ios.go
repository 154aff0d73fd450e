// Package ios manages devices with an IOS-style CLI: "configure terminal"
// to enter configuration mode, "end" to leave it, and "no" to remove a
// command.
//
// Everything is read from "show running-config" and "show inventory". Both
// are sent as cacheable round trips, so a CachedChannel answers all readers
// of one run from a single transfer of each.
package ios

import (
	"context"
	"regexp"

	"github.com/newtron-network/newtcli/pkg/command"
	"github.com/newtron-network/newtcli/pkg/extract"
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/session"
)

// Name is the module name families refer to in the inventory.
const Name = "ios"

// Device families served by this module.
const (
	FamilyRouter = "ios"
	FamilySwitch = "ios-switch"
)

const (
	showRunning   = "show running-config"
	showInventory = "show inventory"

	// SaveCommand persists the running configuration.
	SaveCommand = "write memory"
)

// Dialect is the IOS command grammar.
var Dialect = command.Dialect{
	Negate: "no",
	Enter:  []string{"configure terminal"},
	Exit:   []string{"end"},
}

var errorPatterns = session.MustErrorPatternSet(
	`^% Invalid input detected`,
	`^% Incomplete command`,
	`^% Ambiguous command`,
	`^% Unknown command`,
	`^%\s*Error`,
	`^% .* overlaps with`,
)

// ErrorPatterns returns the responses that mark a command as rejected.
func ErrorPatterns() *session.ErrorPatternSet {
	return errorPatterns
}

// Options tune the module per family.
type Options struct {
	// Save appends "write memory" to every write round trip.
	Save bool
}

// Module is the IOS vendor module.
type Module struct {
	opts Options
	plan func() (*registry.Plan, error)
}

// New creates the module. Its plan is built on first use and shared by
// every engine that uses this module.
func New(opts Options) *Module {
	m := &Module{opts: opts}
	m.plan = registry.Once(m.Register)
	return m
}

// Name returns "ios".
func (m *Module) Name() string { return Name }

// Dialect returns the IOS command grammar.
func (m *Module) Dialect() command.Dialect { return Dialect }

// ErrorPatterns returns the rejection patterns.
func (m *Module) ErrorPatterns() *session.ErrorPatternSet { return errorPatterns }

// PagerOff disables output paging for the session.
func (m *Module) PagerOff() string { return "terminal length 0" }

// Plan returns the module's execution plan.
func (m *Module) Plan() (*registry.Plan, error) { return m.plan() }

// Register binds every IOS handler.
func (m *Module) Register(r *registry.Registry) {
	m.registerSystem(r)
	m.registerInterfaces(r)
	m.registerVLANs(r)
	m.registerBGP(r)
	registerPlatform(r)
}

// writer applies the module's save option to w.
func (m *Module) writer(w handler.Writer) handler.Writer {
	if !m.opts.Save {
		return w
	}
	return handler.WithTerminator(w, SaveCommand)
}

func running(ctx context.Context, rc *handler.ReadContext) (string, error) {
	return rc.Show(ctx, showRunning)
}

// sectionKeys lists one key per configuration section, in order.
func sectionKeys(text string, header *regexp.Regexp, group string) []schema.Key {
	var keys []schema.Key
	for _, s := range extract.Sections(text, header) {
		keys = append(keys, schema.Key{s.Groups[group]})
	}
	return keys
}
