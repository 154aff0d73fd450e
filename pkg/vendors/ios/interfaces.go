package ios

import (
	"context"
	"regexp"
	"strings"

	"github.com/newtron-network/newtcli/pkg/command"
	"github.com/newtron-network/newtcli/pkg/extract"
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
)

var interfaceHeader = regexp.MustCompile(`^interface (?P<name>\S+)`)

// Logical interfaces exist only when configured; physical ports always do.
var logicalPrefixes = []string{"Loopback", "Vlan", "Port-channel", "Tunnel", "BDI"}

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

func interfaceContext(p schema.Path) []string {
	return []string{"interface " + interfaceName(p)}
}

// interfaceSection reads rules from the body of the interface at p. An
// interface missing from the configuration reads as empty.
func interfaceSection(rules extract.Rules) handler.Reader {
	return handler.ReaderFunc(func(ctx context.Context, rc *handler.ReadContext, p schema.Path, into schema.Bag) error {
		out, err := running(ctx, rc)
		if err != nil {
			return err
		}
		sec, ok := extract.FindSection(out, interfaceHeader, map[string]string{"name": interfaceName(p)})
		if !ok {
			return nil
		}
		return rules.Apply(sec.Body, into)
	})
}

var (
	configRules = extract.Rules{
		extract.String("description", `^ description (.+)$`),
		extract.Int("mtu", `^ mtu (\d+)$`),
		extract.Absence("enabled", `^ shutdown$`),
	}
	autonegRules = extract.Rules{
		extract.Presence("autoNegotiate", `^ negotiation auto$`),
	}
	speedDuplexRules = extract.Rules{
		extract.String("speed", `^ speed (\S+)$`),
		extract.String("duplex", `^ duplex (\S+)$`),
	}
	switchedVLANRules = extract.Rules{
		extract.String("mode", `^ switchport mode (\S+)$`),
		extract.Int("accessVlan", `^ switchport access vlan (\d+)$`),
	}
)

func (m *Module) registerInterfaces(r *registry.Registry) {
	r.MarkNoop("/interfaces")

	r.Bind("/interfaces/interface", handler.Binding{
		KeyAttrs: []string{"name"},
		Lister: handler.ListerFunc(func(ctx context.Context, rc *handler.ReadContext, _ schema.Path) ([]schema.Key, error) {
			out, err := running(ctx, rc)
			if err != nil {
				return nil, err
			}
			return sectionKeys(out, interfaceHeader, "name"), nil
		}),
		Writer: m.writer(handler.Funcs{
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
		}),
	})

	r.Bind("/interfaces/interface/config", handler.Binding{
		Reader: interfaceSection(configRules),
		Writer: m.writer(command.Leaf{
			Dialect: Dialect,
			Context: interfaceContext,
			Fields: []command.Field{
				command.Value("description", "description %s"),
				command.Value("mtu", "mtu %s"),
				command.Flag("enabled", "shutdown").Inverted().Default(true),
			},
		}),
	})

	// Speed and duplex are fixed per port only on switches; routed ports
	// accept negotiation alone.
	r.BindComposite("/interfaces/interface/ethernet",
		handler.Member{
			Name:   "auto-negotiation",
			Reader: interfaceSection(autonegRules),
			Writer: m.writer(command.Leaf{
				Dialect: Dialect,
				Context: interfaceContext,
				Fields:  []command.Field{command.Flag("autoNegotiate", "negotiation auto")},
			}),
		},
		handler.Member{
			Name:   "speed-duplex",
			Reader: interfaceSection(speedDuplexRules),
			Writer: m.writer(command.Leaf{
				Dialect: Dialect,
				Context: interfaceContext,
				Fields: []command.Field{
					command.Value("speed", "speed %s"),
					command.Value("duplex", "duplex %s"),
				},
			}),
			Check: handler.Family(FamilySwitch),
		},
	)

	r.Bind("/interfaces/interface/switched-vlan", handler.Binding{
		Reader: interfaceSection(switchedVLANRules),
		Writer: m.writer(command.Leaf{
			Dialect: Dialect,
			Context: interfaceContext,
			Fields: []command.Field{
				command.Value("mode", "switchport mode %s"),
				command.Value("accessVlan", "switchport access vlan %s"),
			},
		}),
		Check: handler.Family(FamilySwitch),
	})
	r.OrderAfter("/interfaces/interface/switched-vlan", "/vlans/vlan")
}
