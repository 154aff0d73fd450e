package ios

import (
	"context"

	"github.com/newtron-network/newtcli/pkg/command"
	"github.com/newtron-network/newtcli/pkg/extract"
	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
)

var systemRules = extract.Rules{
	extract.String("hostname", `^hostname (\S+)$`),
	extract.String("domainName", `^ip domain[ -]name (\S+)$`),
}

func (m *Module) registerSystem(r *registry.Registry) {
	r.Bind("/system/config", handler.Binding{
		Reader: handler.ReaderFunc(func(ctx context.Context, rc *handler.ReadContext, _ schema.Path, into schema.Bag) error {
			out, err := running(ctx, rc)
			if err != nil {
				return err
			}
			return systemRules.Apply(out, into)
		}),
		Writer: m.writer(command.Leaf{
			Dialect: Dialect,
			Fields: []command.Field{
				command.Value("hostname", "hostname %s"),
				command.Value("domainName", "ip domain name %s"),
			},
		}),
	})
}
