package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtcli/pkg/audit"
	"github.com/newtron-network/newtcli/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View audit logs",
	Long: `View the audit log of read and apply runs.

Every run records the user, device, operation, the paths applied, skipped
and left untouched, and the node that failed with the device's response.

Examples:
  newtcli audit list -d r1
  newtcli audit list --last 24h --failures
  newtcli audit show <run-id>`,
}

var (
	auditUser      string
	auditOperation string
	auditLast      string
	auditLimit     int
	auditFailures  bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			User:        auditUser,
			Operation:   auditOperation,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}
		if len(deviceNames) == 1 {
			filter.Device = deviceNames[0]
		}
		if auditLast != "" {
			duration, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "DEVICE", "OPERATION", "NODES", "STATUS")
		for _, event := range events {
			t.Row(
				event.Timestamp.Format("2006-01-02 15:04:05"),
				event.User,
				event.Device,
				event.Operation,
				fmt.Sprintf("%d", len(event.Applied)),
				eventStatus(event),
			)
		}
		t.Flush()
		return nil
	},
}

var auditShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the events of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := audit.Query(audit.Filter{RunID: args[0]})
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if len(events) == 0 {
			return fmt.Errorf("no events for run %s", args[0])
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}
		for _, e := range events {
			fmt.Printf("%s %s %s by %s at %s\n", bold(e.Operation), e.Device, eventStatus(e),
				e.User, e.Timestamp.Format(time.RFC3339))
			printPaths("applied", e.Applied)
			printPaths("skipped", e.Skipped)
			printPaths("untouched", e.Untouched)
			if e.FailedPath != "" {
				fmt.Printf("  %s %s\n", red("failed:"), e.FailedPath)
			}
			if e.Error != "" {
				fmt.Printf("  error: %s\n", e.Error)
			}
			if e.Response != "" {
				fmt.Print(cli.Indent(strings.TrimRight(e.Response, "\n")+"\n", "    | "))
			}
		}
		return nil
	},
}

func eventStatus(e *audit.Event) string {
	switch {
	case !e.Success:
		return red("failed")
	case e.Operation == audit.OperationApply && !e.ExecuteMode:
		return yellow("dry-run")
	}
	return green("ok")
}

func printPaths(label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Printf("  %s:\n", label)
	for _, p := range paths {
		fmt.Printf("    %s\n", p)
	}
}

func init() {
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditListCmd.Flags().StringVar(&auditOperation, "operation", "", "Filter by operation (read, apply)")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed runs")
	addOutputFlags(auditListCmd)
	addOutputFlags(auditShowCmd)

	auditCmd.AddCommand(auditListCmd, auditShowCmd)
}
