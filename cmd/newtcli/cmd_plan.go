package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtcli/pkg/cli"
	"github.com/newtron-network/newtcli/pkg/registry"
	"github.com/newtron-network/newtcli/pkg/vendors"
)

var planSave bool

var planCmd = &cobra.Command{
	Use:   "plan [module]",
	Short: "Show a vendor module's execution plan",
	Long: `Print the order in which a vendor module reads and writes schema paths.
Creates and updates run top to bottom; deletes run bottom to top.

Examples:
  newtcli plan
  newtcli plan vrp`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "ios"
		if len(args) > 0 {
			name = args[0]
		}
		m, err := vendor.Lookup(name, vendor.Options{Save: planSave})
		if err != nil {
			return err
		}
		plan, err := m.Plan()
		if err != nil {
			return err
		}

		rows := planRows(plan)
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		fmt.Printf("Execution plan for %s (%d paths)\n\n", bold(m.Name()), len(rows))
		t := cli.NewTable("#", "PATH", "KIND", "FLAGS")
		for _, r := range rows {
			t.Row(strconv.Itoa(r.Index), r.Path, r.Kind, strings.Join(r.Flags, ","))
		}
		t.Flush()
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVar(&planSave, "save", false, "Show the plan with configuration saving enabled")
}

type planRow struct {
	Index int      `json:"index"`
	Path  string   `json:"path"`
	Kind  string   `json:"kind"`
	Flags []string `json:"flags,omitempty"`
}

func planRows(plan *registry.Plan) []planRow {
	var rows []planRow
	for _, e := range plan.Entries() {
		var flags []string
		switch {
		case e.Noop:
			flags = append(flags, "noop")
		case e.Writer == nil:
			flags = append(flags, "read-only")
		}
		if e.Composite != nil {
			flags = append(flags, "composite")
		}
		if e.Terminator != "" {
			flags = append(flags, "terminator="+e.Terminator)
		}
		rows = append(rows, planRow{Index: e.Index(), Path: e.Path, Kind: e.Kind.String(), Flags: flags})
	}
	return rows
}
