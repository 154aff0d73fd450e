// Newtcli - CLI configuration reconciliation for network devices
//
// newtcli reads a device's running configuration into a schema tree through
// its CLI, diffs it against a desired tree, and pushes the difference back
// as CLI commands in dependency order. Only show commands and configuration
// commands are used, so any device with an SSH CLI can be managed.
//
// Writes preview by default; -x executes them.
//
// Examples:
//
//	newtcli -d r1 read                          # Print r1's observed tree
//	newtcli -d r1 apply -f r1.yaml              # Preview the commands
//	newtcli -d r1 -d r2 apply -f core.yaml -x   # Apply to two devices
//	newtcli plan ios                            # Show the execution plan
package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtcli/pkg/audit"
	"github.com/newtron-network/newtcli/pkg/cli"
	"github.com/newtron-network/newtcli/pkg/inventory"
	"github.com/newtron-network/newtcli/pkg/metrics"
	"github.com/newtron-network/newtcli/pkg/settings"
	"github.com/newtron-network/newtcli/pkg/util"
	"github.com/newtron-network/newtcli/pkg/version"
)

var (
	// Global context flags
	deviceNames  []string // -d, --device (repeatable)
	inventoryDir string

	// Global option flags
	executeMode bool
	verbose     bool
	logJSON     bool
	jsonOutput  bool

	// Global state
	userSettings *settings.Settings
	inv          *inventory.Inventory
	recorder     *metrics.Recorder
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "newtcli",
	Short:             "CLI configuration reconciliation for network devices",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Newtcli reconciles network devices against a desired configuration tree
using nothing but their text CLI.

Write commands preview changes by default; use -x to execute.

  newtcli -d <device> [-d <device> ...] <command> [flags]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}
		if isSettingsOrHelp(cmd) {
			return nil
		}

		auditLogger, err := audit.NewFileLogger(userSettings.GetAuditLogPath(), audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}
		if under(cmd, "audit", "plan") {
			return nil
		}

		if len(deviceNames) == 0 && userSettings.DefaultDevice != "" {
			deviceNames = []string{userSettings.DefaultDevice}
		}
		if inventoryDir == "" {
			inventoryDir = userSettings.GetInventoryDir()
		}
		inv, err = inventory.Load(inventoryDir)
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}

		recorder = metrics.New()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if recorder == nil || userSettings == nil || userSettings.MetricsTextfile == "" {
			return nil
		}
		if err := recorder.WriteTextfile(userSettings.MetricsTextfile); err != nil {
			util.Warnf("Could not write metrics: %v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&deviceNames, "device", "d", nil, "Device name (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&inventoryDir, "inventory", "I", "", "Inventory directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON lines")

	addWriteFlags(applyCmd)
	for _, cmd := range []*cobra.Command{readCmd, planCmd, applyCmd} {
		addOutputFlags(cmd)
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "device", Title: "Device Operations:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{readCmd, planCmd, applyCmd} {
		cmd.GroupID = "device"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("newtcli dev build (version is stamped with -ldflags)")
		} else {
			fmt.Printf("newtcli %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}

// isSettingsOrHelp reports whether cmd needs neither inventory nor audit log.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	return under(cmd, "settings", "version", "help")
}

// under reports whether cmd or one of its parents has one of names.
func under(cmd *cobra.Command, names ...string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		for _, n := range names {
			if c.Name() == n {
				return true
			}
		}
	}
	return false
}

// requireDevices ensures at least one device is selected.
func requireDevices() ([]string, error) {
	if len(deviceNames) == 0 {
		return nil, fmt.Errorf("device required: use -d <device> flag")
	}
	seen := make(map[string]bool)
	var out []string
	for _, n := range deviceNames {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func printDryRunNotice() {
	if !executeMode {
		fmt.Println("\n" + yellow("DRY-RUN: No changes applied. Use -x to execute."))
	}
}

// addWriteFlags registers -x as a local flag.
func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "Execute changes (default is dry-run)")
}

// addOutputFlags registers --json as a local flag.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
}

// Color helpers delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }
