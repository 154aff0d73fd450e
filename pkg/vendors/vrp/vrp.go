// Package vrp manages devices with a VRP-style CLI: "system-view" to enter
// configuration mode, "undo" to remove a command, and a two-stage commit
// before "return" leaves it.
package vrp

import (
	"context"
	"regexp"
	"strings"

	"github.com/newtron-network/newtcli/pkg/command"
	"github.com/newtron-network/newtcli/pkg/extract"
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/session"
)

// Name is the module name families refer to in the inventory.
const Name = "vrp"

const showCurrent = "display current-configuration"

// Dialect is the VRP command grammar. Changes only take effect at commit.
var Dialect = command.Dialect{
	Negate: "undo",
	Enter:  []string{"system-view"},
	Exit:   []string{"commit", "return"},
}

var errorPatterns = session.MustErrorPatternSet(
	`^\s*Error:`,
	`^\s*Failed to commit`,
)

// Module is the VRP vendor module.
type Module struct {
	plan func() (*registry.Plan, error)
}

// New creates the module.
func New() *Module {
	m := &Module{}
	m.plan = registry.Once(m.Register)
	return m
}

func (m *Module) Name() string                            { return Name }
func (m *Module) Dialect() command.Dialect                { return Dialect }
func (m *Module) ErrorPatterns() *session.ErrorPatternSet { return errorPatterns }
func (m *Module) PagerOff() string                        { return "screen-length 0 temporary" }
func (m *Module) Plan() (*registry.Plan, error)           { return m.plan() }

var (
	interfaceHeader = regexp.MustCompile(`^interface (?P<name>\S+)`)

	systemRules = extract.Rules{extract.String("hostname", `^ ?sysname (\S+)$`)}
	configRules = extract.Rules{
		extract.String("description", `^ description (.+)$`),
		extract.Int("mtu", `^ mtu (\d+)$`),
		extract.Absence("enabled", `^ shutdown$`),
	}
)

var logicalPrefixes = []string{"LoopBack", "Vlanif", "Eth-Trunk", "Tunnel"}

func isLogical(name string) bool {
	for _, p := range logicalPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func interfaceName(p schema.Path) string {
	return p.KeyOf("interface").String()
}

func current(ctx context.Context, rc *handler.ReadContext) (string, error) {
	return rc.Show(ctx, showCurrent)
}

// Register binds every VRP handler.
func (m *Module) Register(r *registry.Registry) {
	r.Bind("/system/config", handler.Binding{
		Reader: handler.ReaderFunc(func(ctx context.Context, rc *handler.ReadContext, _ schema.Path, into schema.Bag) error {
			out, err := current(ctx, rc)
			if err != nil {
				return err
			}
			return systemRules.Apply(out, into)
		}),
		Writer: command.Leaf{
			Dialect: Dialect,
			Fields: []command.Field{
				command.Value("hostname", "sysname %s").Unset(func(command.Dialect, schema.Bag) string {
					return "undo sysname"
				}),
			},
		},
	})

	r.MarkNoop("/interfaces")
	r.Bind("/interfaces/interface", handler.Binding{
		KeyAttrs: []string{"name"},
		Lister: handler.ListerFunc(func(ctx context.Context, rc *handler.ReadContext, _ schema.Path) ([]schema.Key, error) {
			out, err := current(ctx, rc)
			if err != nil {
				return nil, err
			}
			var keys []schema.Key
			for _, s := range extract.Sections(out, interfaceHeader) {
				keys = append(keys, schema.Key{s.Groups["name"]})
			}
			return keys, nil
		}),
		Writer: handler.Funcs{
			CreateFn: func(p schema.Path, _ schema.Bag) ([]string, error) {
				if !isLogical(interfaceName(p)) {
					return nil, nil
				}
				return Dialect.New().Line("interface " + interfaceName(p)).Lines()
			},
			DeleteFn: func(p schema.Path, _ schema.Bag) ([]string, error) {
				if !isLogical(interfaceName(p)) {
					return nil, nil
				}
				return Dialect.New().Negated("interface " + interfaceName(p)).Lines()
			},
		},
	})

	r.Bind("/interfaces/interface/config", handler.Binding{
		Reader: handler.ReaderFunc(func(ctx context.Context, rc *handler.ReadContext, p schema.Path, into schema.Bag) error {
			out, err := current(ctx, rc)
			if err != nil {
				return err
			}
			sec, ok := extract.FindSection(out, interfaceHeader, map[string]string{"name": interfaceName(p)})
			if !ok {
				return nil
			}
			return configRules.Apply(sec.Body, into)
		}),
		Writer: command.Leaf{
			Dialect: Dialect,
			Context: func(p schema.Path) []string { return []string{"interface " + interfaceName(p)} },
			Fields: []command.Field{
				command.Value("description", "description %s").Unset(func(command.Dialect, schema.Bag) string {
					return "undo description"
				}),
				command.Value("mtu", "mtu %s").Unset(func(command.Dialect, schema.Bag) string {
					return "undo mtu"
				}),
				command.Flag("enabled", "shutdown").Inverted().Default(true),
			},
		},
	})
}
