package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtcli/pkg/audit"
	"github.com/newtron-network/newtcli/pkg/engine"
	"github.com/newtron-network/newtcli/pkg/util"
)

var (
	readOutput  string
	readSubtree string
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a device's configuration into a tree",
	Long: `Read the running configuration of each selected device through its CLI
and print the observed tree.

With several devices, -o names a directory and each tree is written to
<dir>/<device>.yaml.

Examples:
  newtcli -d r1 read
  newtcli -d r1 read --subtree /interfaces/interface
  newtcli -d r1 -d r2 read -o observed/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := requireDevices()
		if err != nil {
			return err
		}
		targets, err := resolveTargets(names)
		if err != nil {
			return err
		}
		if err := promptPasswords(targets); err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return forEachTarget(targets, os.Stdout, func(t *target, w io.Writer) error {
			return runRead(ctx, t, w, len(targets) > 1)
		})
	},
}

func init() {
	readCmd.Flags().StringVarP(&readOutput, "output", "o", "", "Write the tree to a file (directory with several devices)")
	readCmd.Flags().StringVar(&readSubtree, "subtree", "", "Read only this schema path and below")
}

func runRead(ctx context.Context, t *target, w io.Writer, many bool) error {
	ch, closeFn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := readTree(ctx, t.engineFor(ch))
	event := audit.NewEvent(currentUser(), t.device.Name, audit.OperationRead).
		WithFamily(t.family.Name).
		WithReadResult(res)
	defer func() {
		if lerr := audit.Log(event); lerr != nil {
			util.Warnf("Could not write audit event: %v", lerr)
		}
	}()
	if err != nil {
		event.WithError(err)
		return err
	}

	for _, f := range res.Failures {
		fmt.Fprintf(w, "%s %s: %v\n", yellow("warning:"), f.Path, f.Err)
	}
	if res.OK() {
		event.WithSuccess()
	} else {
		event.WithError(fmt.Errorf("%d subtrees could not be read", len(res.Failures)))
	}

	if readOutput == "" {
		return writeTree(w, res.Tree)
	}
	path := readOutput
	if many {
		if err := os.MkdirAll(readOutput, 0755); err != nil {
			return err
		}
		path = filepath.Join(readOutput, t.device.Name+".yaml")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := writeTree(f, res.Tree); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %d nodes to %s\n", res.Tree.Len(), path)
	return nil
}

func readTree(ctx context.Context, e *engine.Engine) (*engine.ReadResult, error) {
	if readSubtree != "" {
		return e.ReadSubtree(ctx, readSubtree)
	}
	return e.Read(ctx)
}
