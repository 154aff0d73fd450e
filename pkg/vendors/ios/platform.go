package ios

import (
	"context"
	"regexp"

	"github.com/newtron-network/newtcli/pkg/extract"
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
)

// inventoryEntry matches one "show inventory" record:
//
//	NAME: "Chassis", DESCR: "Cisco ISR4451 Chassis"
//	PID: ISR4451-X/K9      , VID: V04  , SN: FGL2041912Z
var inventoryEntry = regexp.MustCompile(`(?m)^NAME: "(?P<name>[^"]+)",\s*DESCR: "(?P<descr>[^"]*)"\s*\n\s*PID: (?P<pid>\S*)\s*,\s*VID: (?P<vid>\S*)\s*,\s*SN: (?P<sn>\S*)`)

func inventory(ctx context.Context, rc *handler.ReadContext) ([]map[string]string, error) {
	out, err := rc.Show(ctx, showInventory)
	if err != nil {
		return nil, err
	}
	return extract.MatchAll(inventoryEntry, out), nil
}

// registerPlatform binds the hardware inventory. It has no writer: the
// components are observed, never configured.
func registerPlatform(r *registry.Registry) {
	r.Bind("/platform/components/component", handler.Binding{
		KeyAttrs: []string{"name"},
		Lister: handler.ListerFunc(func(ctx context.Context, rc *handler.ReadContext, _ schema.Path) ([]schema.Key, error) {
			entries, err := inventory(ctx, rc)
			if err != nil {
				return nil, err
			}
			keys := make([]schema.Key, 0, len(entries))
			for _, e := range entries {
				keys = append(keys, schema.Key{e["name"]})
			}
			return keys, nil
		}),
		Reader: handler.ReaderFunc(func(ctx context.Context, rc *handler.ReadContext, p schema.Path, into schema.Bag) error {
			entries, err := inventory(ctx, rc)
			if err != nil {
				return err
			}
			name := p.KeyOf("component").String()
			for _, e := range entries {
				if e["name"] != name {
					continue
				}
				into.Set("description", e["descr"])
				if e["pid"] != "" {
					into.Set("partNumber", e["pid"])
				}
				if e["vid"] != "" {
					into.Set("hardwareVersion", e["vid"])
				}
				if e["sn"] != "" {
					into.Set("serialNumber", e["sn"])
				}
				return nil
			}
			return nil
		}),
	})
}
