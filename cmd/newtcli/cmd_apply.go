package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtcli/pkg/audit"
	"github.com/newtron-network/newtcli/pkg/cli"
	"github.com/newtron-network/newtcli/pkg/engine"
	"github.com/newtron-network/newtcli/pkg/schema"
	"github.com/newtron-network/newtcli/pkg/session"
	"github.com/newtron-network/newtcli/pkg/util"
)

var (
	applyDesired  string
	applyObserved string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile devices against a desired tree",
	Long: `Diff each device's observed tree against the desired tree and push the
difference as CLI commands, one round trip per node in plan order. The
first node the device rejects stops that device's run.

Without -x the commands are only printed. The observed tree is read from
the device unless --observed names a file, in which case a preview never
connects.

-f may name a directory; each device then uses <dir>/<device>.yaml.

Examples:
  newtcli -d r1 apply -f r1.yaml
  newtcli -d r1 apply -f r1.yaml -x
  newtcli -d r1 apply -f r1.yaml --observed r1-observed.yaml
  newtcli -d r1 -d r2 apply -f desired/ -x`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if applyDesired == "" {
			return fmt.Errorf("desired tree required: use -f <file>")
		}
		names, err := requireDevices()
		if err != nil {
			return err
		}
		targets, err := resolveTargets(names)
		if err != nil {
			return err
		}
		if applyObserved == "" || executeMode {
			if err := promptPasswords(targets); err != nil {
				return err
			}
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		err = forEachTarget(targets, os.Stdout, func(t *target, w io.Writer) error {
			return runApply(ctx, t, w)
		})
		if !jsonOutput {
			printDryRunNotice()
		}
		return err
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyDesired, "file", "f", "", "Desired tree file or directory")
	applyCmd.Flags().StringVar(&applyObserved, "observed", "", "Use this tree file instead of reading the device")
}

func runApply(ctx context.Context, t *target, w io.Writer) (err error) {
	event := audit.NewEvent(currentUser(), t.device.Name, audit.OperationApply).
		WithFamily(t.family.Name).
		WithExecuteMode(executeMode)
	var res *engine.WriteResult
	defer func() {
		event.WithWriteResult(res)
		if err != nil {
			event.WithError(err)
		} else {
			event.WithSuccess()
		}
		if lerr := audit.Log(event); lerr != nil {
			util.Warnf("Could not write audit event: %v", lerr)
		}
	}()

	path, err := desiredPath(applyDesired, t.device.Name)
	if err != nil {
		return err
	}
	desired, err := loadTree(path)
	if err != nil {
		return err
	}

	var ch session.Channel
	if applyObserved == "" || executeMode {
		conn, closeFn, cerr := t.connect(ctx)
		if cerr != nil {
			return cerr
		}
		defer closeFn()
		ch = conn
	}

	observed, err := observedTree(ctx, t, ch)
	if err != nil {
		return err
	}

	writer := ch
	if !executeMode {
		writer = session.NewRecorder()
	}
	res, err = t.engineFor(writer).Apply(ctx, observed, desired)
	if res == nil {
		return err
	}
	if jsonOutput {
		if jerr := json.NewEncoder(w).Encode(res); jerr != nil {
			return jerr
		}
		return err
	}
	printWriteResult(w, res)
	return err
}

// observedTree returns the before tree: the --observed file, or a fresh
// read of the device. A partial read is refused, since a missing subtree
// would be deleted.
func observedTree(ctx context.Context, t *target, ch session.Channel) (*schema.Tree, error) {
	if applyObserved != "" {
		path, err := desiredPath(applyObserved, t.device.Name)
		if err != nil {
			return nil, err
		}
		return loadTree(path)
	}
	res, err := t.engineFor(ch).Read(ctx)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		var paths []string
		for _, f := range res.Failures {
			paths = append(paths, f.Path)
		}
		return nil, fmt.Errorf("%w: could not read %s", util.ErrRead, strings.Join(paths, ", "))
	}
	return res.Tree, nil
}

func printWriteResult(w io.Writer, res *engine.WriteResult) {
	if len(res.Nodes) == 0 {
		fmt.Fprintln(w, "No changes.")
		return
	}

	if !executeMode {
		fmt.Fprintln(w, "Changes to be applied:")
		for _, n := range res.Nodes {
			if len(n.Lines) == 0 {
				continue
			}
			fmt.Fprintf(w, "\n%s %s\n", bold(string(n.Operation)), n.Path)
			fmt.Fprint(w, cli.Indent(strings.Join(n.Lines, "\n")+"\n", "  "))
		}
		fmt.Fprintln(w)
	}

	t := cli.NewTableTo(w, "PATH", "OPERATION", "STATUS")
	for _, n := range res.Nodes {
		t.Row(n.Path, string(n.Operation), cli.Status(string(n.Status)))
	}
	t.Flush()

	if f := res.Failed(); f != nil {
		var ne *util.NodeError
		if errors.As(f.Err, &ne) {
			fmt.Fprintf(w, "\n%s %s\n", red("failed:"), ne.Error())
		}
		if f.Response != "" {
			fmt.Fprint(w, cli.Indent(strings.TrimRight(f.Response, "\n")+"\n", "  | "))
		}
	} else if executeMode {
		fmt.Fprintf(w, "\n%s\n", green(fmt.Sprintf("Applied %d nodes in %s.", len(res.Applied()), res.Duration.Round(time.Millisecond))))
	}
}
