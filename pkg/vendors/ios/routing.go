package ios

import (
	"context"
	"fmt"
	"regexp"

	"github.com/newtron-network/newtcli/pkg/command"
	"github.com/newtron-network/newtcli/pkg/extract"
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
)

var (
	vlanHeader   = regexp.MustCompile(`^vlan (?P<id>\d+)$`)
	bgpHeader    = regexp.MustCompile(`^router bgp (?P<as>\d+)$`)
	neighborLine = regexp.MustCompile(`(?m)^ neighbor (?P<address>\S+) remote-as `)
)

var (
	vlanRules      = extract.Rules{extract.String("name", `^ name (\S+)$`)}
	bgpGlobalRules = extract.Rules{
		extract.Int("as", `^router bgp (\d+)$`),
		extract.String("routerId", `^ bgp router-id (\S+)$`),
	}
	vlanName = command.Value("name", "name %s")
)

func vlanID(p schema.Path) string {
	return p.KeyOf("vlan").String()
}

func (m *Module) registerVLANs(r *registry.Registry) {
	r.Bind("/vlans/vlan", handler.Binding{
		KeyAttrs: []string{"vlanId"},
		Lister: handler.ListerFunc(func(ctx context.Context, rc *handler.ReadContext, _ schema.Path) ([]schema.Key, error) {
			out, err := running(ctx, rc)
			if err != nil {
				return nil, err
			}
			return sectionKeys(out, vlanHeader, "id"), nil
		}),
		Reader: handler.ReaderFunc(func(ctx context.Context, rc *handler.ReadContext, p schema.Path, into schema.Bag) error {
			out, err := running(ctx, rc)
			if err != nil {
				return err
			}
			sec, ok := extract.FindSection(out, vlanHeader, map[string]string{"id": vlanID(p)})
			if !ok {
				return nil
			}
			return vlanRules.Apply(sec.Body, into)
		}),
		Writer: m.writer(handler.Funcs{
			CreateFn: func(p schema.Path, after schema.Bag) ([]string, error) {
				return Dialect.New().Line("vlan "+vlanID(p)).Fields(nil, after, vlanName).Lines()
			},
			DeleteFn: func(p schema.Path, _ schema.Bag) ([]string, error) {
				return Dialect.New().Negated("vlan " + vlanID(p)).Lines()
			},
			UpdateFn: func(p schema.Path, before, after schema.Bag) ([]string, error) {
				return Dialect.New("vlan "+vlanID(p)).Fields(before, after, vlanName).Lines()
			},
		}),
		Check: handler.Family(FamilySwitch),
	})
}

// bgpSection returns the router bgp block, header included.
func bgpSection(ctx context.Context, rc *handler.ReadContext) (string, bool, error) {
	out, err := running(ctx, rc)
	if err != nil {
		return "", false, err
	}
	secs := extract.Sections(out, bgpHeader)
	if len(secs) == 0 {
		return "", false, nil
	}
	return secs[0].Header + "\n" + secs[0].Body, true, nil
}

type bgpGlobal struct {
	AS       int    `attr:"as"`
	RouterID string `attr:"routerId"`
}

func decodeGlobal(b schema.Bag) (bgpGlobal, error) {
	var g bgpGlobal
	if err := b.Decode(&g); err != nil {
		return g, err
	}
	if g.AS <= 0 {
		return g, fmt.Errorf("bgp global: as must be a positive AS number")
	}
	return g, nil
}

func neighborRules(address string) extract.Rules {
	q := regexp.QuoteMeta(address)
	return extract.Rules{
		extract.Int("localAs", `^router bgp (\d+)$`),
		extract.Int("peerAs", `^ neighbor `+q+` remote-as (\d+)$`),
		extract.String("description", `^ neighbor `+q+` description (.+)$`),
		extract.Absence("enabled", `^ neighbor `+q+` shutdown$`),
	}
}

var neighborFields = []command.Field{
	command.Template("neighbor {{.address}} remote-as {{.peerAs}}", "peerAs"),
	command.Template("neighbor {{.address}} description {{.description}}", "description"),
	command.Template("neighbor {{.address}} shutdown", "enabled").Default(true),
}

// neighborBag returns b with the address taken from the path key, which is
// what the neighbor templates render.
func neighborBag(p schema.Path, b schema.Bag) schema.Bag {
	if b == nil {
		return nil
	}
	return b.Clone().Set("address", p.KeyOf("neighbor").String())
}

// routerContext enters the BGP process a neighbor belongs to. The process
// AS is carried on the neighbor as localAs.
func routerContext(p schema.Path, b schema.Bag) (string, error) {
	if !b.Has("localAs") {
		return "", fmt.Errorf("neighbor %s: localAs is required", p.KeyOf("neighbor"))
	}
	return "router bgp " + b.GetString("localAs"), nil
}

func (m *Module) registerBGP(r *registry.Registry) {
	// The process AS cannot be changed in place, so global has no update
	// form and is replaced with delete-then-create.
	r.Bind("/protocols/bgp/global", handler.Binding{
		Reader: handler.ReaderFunc(func(ctx context.Context, rc *handler.ReadContext, _ schema.Path, into schema.Bag) error {
			text, ok, err := bgpSection(ctx, rc)
			if err != nil || !ok {
				return err
			}
			return bgpGlobalRules.Apply(text, into)
		}),
		Writer: m.writer(handler.Funcs{
			CreateFn: func(_ schema.Path, after schema.Bag) ([]string, error) {
				g, err := decodeGlobal(after)
				if err != nil {
					return nil, err
				}
				b := Dialect.New().Linef("router bgp %d", g.AS)
				if g.RouterID != "" {
					b.Linef("bgp router-id %s", g.RouterID)
				}
				return b.Lines()
			},
			DeleteFn: func(_ schema.Path, before schema.Bag) ([]string, error) {
				g, err := decodeGlobal(before)
				if err != nil {
					return nil, err
				}
				return Dialect.New().Negated(fmt.Sprintf("router bgp %d", g.AS)).Lines()
			},
		}),
		Check: handler.All(handler.Family(FamilyRouter), handler.MinVersion("12.0")),
	})

	r.Bind("/protocols/bgp/neighbors/neighbor", handler.Binding{
		KeyAttrs: []string{"address"},
		Lister: handler.ListerFunc(func(ctx context.Context, rc *handler.ReadContext, _ schema.Path) ([]schema.Key, error) {
			text, ok, err := bgpSection(ctx, rc)
			if err != nil || !ok {
				return nil, err
			}
			return extract.Keys(neighborLine, text, "address"), nil
		}),
		Reader: handler.ReaderFunc(func(ctx context.Context, rc *handler.ReadContext, p schema.Path, into schema.Bag) error {
			text, ok, err := bgpSection(ctx, rc)
			if err != nil || !ok {
				return err
			}
			return neighborRules(p.KeyOf("neighbor").String()).Apply(text, into)
		}),
		Writer: m.writer(handler.Funcs{
			CreateFn: func(p schema.Path, after schema.Bag) ([]string, error) {
				ctxLine, err := routerContext(p, after)
				if err != nil {
					return nil, err
				}
				return Dialect.New(ctxLine).Fields(nil, neighborBag(p, after), neighborFields...).Lines()
			},
			DeleteFn: func(p schema.Path, before schema.Bag) ([]string, error) {
				ctxLine, err := routerContext(p, before)
				if err != nil {
					return nil, err
				}
				return Dialect.New(ctxLine).Negated("neighbor " + p.KeyOf("neighbor").String()).Lines()
			},
			UpdateFn: func(p schema.Path, before, after schema.Bag) ([]string, error) {
				ctxLine, err := routerContext(p, after)
				if err != nil {
					return nil, err
				}
				return Dialect.New(ctxLine).Fields(neighborBag(p, before), neighborBag(p, after), neighborFields...).Lines()
			},
		}),
		Check: handler.SiblingPresent("../../global"),
	})
	r.OrderAfter("/protocols/bgp/neighbors/neighbor", "/protocols/bgp/global")
}
