package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vibetube/internal/api"
	"vibetube/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the vibetube daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startLogLevel),
				10*time.Second,
			)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override the configured log level")

	var grace time.Duration
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the vibetube daemon (in-flight downloads get the grace period to finish)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.configValue(), grace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in %s; killed pid %d\n", grace, result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
	stopCmd.Flags().DurationVar(&grace, "grace", 30*time.Second, "How long to wait for a clean shutdown before killing the process")

	var asJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, loop, dependency and library status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snapshot.StatusResponse)
			}
			stdout := cmd.OutOrStdout()
			renderStatus(stdout, snapshot, shouldColorize(stdout))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderStatus(out io.Writer, snapshot *daemonctl.Snapshot, colorize bool) {
	section := func(title string) {
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(out, line)
		}
	}

	section("Daemon")
	if snapshot.Running {
		fmt.Fprintln(out, renderStatusLine("VibeTube", statusOK, "Running (pid "+strconv.Itoa(snapshot.PID)+")", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("VibeTube", statusWarn, "Not running (run `vibetube start`)", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, snapshot.DatabasePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Storage", statusInfo, snapshot.StorageRoot, colorize))
	if snapshot.LogPath != "" {
		fmt.Fprintln(out, renderStatusLine("Log", statusInfo, snapshot.LogPath, colorize))
	}
	if snapshot.Running {
		fmt.Fprintln(out, renderStatusLine("Active downloads", statusInfo, strconv.Itoa(snapshot.InFlight), colorize))
		if snapshot.MetadataCacheEntries != nil {
			fmt.Fprintln(out, renderStatusLine("Metadata cache", statusInfo, strconv.Itoa(*snapshot.MetadataCacheEntries)+" entries", colorize))
		}
	}
	fmt.Fprintln(out)

	section("Dependencies")
	for _, line := range dependencyLines(snapshot.Dependencies, snapshot.Summary, colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range snapshot.Checks {
		fmt.Fprintln(out, renderStatusLine(check.Name, statusKindFromBool(check.Passed, true), check.Detail, colorize))
	}
	fmt.Fprintln(out)

	if len(snapshot.Loops) > 0 {
		section("Loops")
		fmt.Fprint(out, renderTable(
			[]column{{header: "Loop"}, {header: "State"}, {header: "Runs", right: true}, {header: "Last Run"}, {header: "Result", maxWidth: 48}},
			loopRows(snapshot.Loops),
		))
		fmt.Fprintln(out)
	}

	section("Library")
	stats := snapshot.Stats
	fmt.Fprint(out, renderTable(
		[]column{{header: "Status"}, {header: "Count", right: true}},
		[][]string{
			{"Pending", strconv.Itoa(stats.Pending)},
			{"Acquired", strconv.Itoa(stats.Acquired)},
			{"Failed", strconv.Itoa(stats.Failed)},
			{"Missing", strconv.Itoa(stats.Missing)},
			{"Skipped", strconv.Itoa(stats.Skipped)},
			{"Total", strconv.Itoa(stats.Total)},
		},
	))
}

func loopRows(loops []api.LoopStatus) [][]string {
	rows := make([][]string, 0, len(loops))
	for _, loop := range loops {
		state := "stopped"
		if loop.Running {
			state = "running"
		}
		result := loop.LastResult
		if loop.LastError != "" {
			result = "error: " + loop.LastError
		}
		rows = append(rows, []string{loop.Name, state, strconv.Itoa(loop.Iterations), displayTime(loop.LastRun), result})
	}
	return rows
}

func dependencyLines(deps []api.DependencyStatus, summary daemonctl.DependencySummary, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	lines = append(lines, renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize))
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, statusKindFromBool(false, dep.Optional), detail, colorize))
	}
	return lines
}

// displayTime trims API timestamps to minute precision for tables.
func displayTime(value string) string {
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04")
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: strings.TrimSpace(logLevel)}
	if ctx.configFlag != nil {
		opts.ConfigPath = strings.TrimSpace(*ctx.configFlag)
	}
	return opts
}
