// Package vendor resolves the module that manages a device family.
package vendor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newtron-network/newtcli/pkg/command"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/session"
	"github.com/newtron-network/newtcli/pkg/util"
	"github.com/newtron-network/newtcli/pkg/vendors/ios"
	"github.com/newtron-network/newtcli/pkg/vendors/vrp"
)

// Module is what the CLI needs from a vendor module.
type Module interface {
	Name() string
	Dialect() command.Dialect
	ErrorPatterns() *session.ErrorPatternSet
	PagerOff() string
	Plan() (*registry.Plan, error)
}

// Options tune a module for one family.
type Options struct {
	// Save persists the running configuration after every write, on
	// modules that support it.
	Save bool
}

var factories = map[string]func(Options) Module{
	ios.Name: func(o Options) Module { return ios.New(ios.Options{Save: o.Save}) },
	vrp.Name: func(Options) Module { return vrp.New() },
}

var (
	mu      sync.Mutex
	modules = map[string]Module{}
)

// Names returns the known module names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the module called name configured with opts. Modules are
// cached per name and options, so every device of a family shares one plan.
func Lookup(name string, opts Options) (Module, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown vendor module %q (known: %v)", util.ErrNotFound, name, Names())
	}
	key := fmt.Sprintf("%s/%t", name, opts.Save)

	mu.Lock()
	defer mu.Unlock()
	if m, ok := modules[key]; ok {
		return m, nil
	}
	m := factory(opts)
	modules[key] = m
	return m, nil
}
