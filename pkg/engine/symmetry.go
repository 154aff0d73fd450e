package engine

import (
	"errors"
	"fmt"

	"github.com/newtron-network/newtcli/pkg/handler"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/util"
)

// CheckSymmetry compiles, for every node of tree with a bound writer, the
// diff from the node's bag to itself and reports every writer that emitted
// commands for it. It touches no device.
func CheckSymmetry(plan *registry.Plan, tree *schema.Tree) error {
	var errs []error
	tree.Walk(func(p schema.Path, n *schema.Tree) error {
		if n.Bag.IsEmpty() {
			return nil
		}
		entry := plan.Lookup(p.Schema())
		if entry == nil || entry.Writer == nil {
			return nil
		}
		d := schema.Diff{Before: n.Bag, After: n.Bag}
		lines, err := handler.Compile(entry.Writer, p, d)
		if err == nil && len(lines) == 0 {
			lines, err = handler.CheckContract(entry.Writer, p, n.Bag)
		}
		switch {
		case err != nil:
			errs = append(errs, util.NewNodeError(util.NodeErrorCompile, p.String(), string(schema.OpUpdate), err))
		case len(lines) > 0:
			errs = append(errs, util.NewNodeError(util.NodeErrorContract, p.String(), string(schema.OpUpdate),
				fmt.Errorf("equal diff compiled to %q", lines)))
		}
		return nil
	})
	return errors.Join(errs...)
}
