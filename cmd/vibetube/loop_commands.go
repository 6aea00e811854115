package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vibetube/internal/ipc"
)

func newLoopsCommand(ctx *commandContext) *cobra.Command {
	loopsCmd := &cobra.Command{
		Use:   "loops",
		Short: "Start or stop the queue, poller and scanner loops",
	}
	loopsCmd.AddCommand(newLoopToggleCommand(ctx, "start", "Start a loop, or every loop when none is named"))
	loopsCmd.AddCommand(newLoopToggleCommand(ctx, "stop", "Stop a loop, or every loop when none is named"))
	return loopsCmd
}

func newLoopToggleCommand(ctx *commandContext, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:       verb + " [queue|poller|scanner]",
		Short:     short,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"queue", "poller", "scanner"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				call := client.StartLoop
				if verb == "stop" {
					call = client.StopLoop
				}
				resp, err := call(name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Changed) == 0 {
					fmt.Fprintln(out, "No loops changed")
					return nil
				}
				past := "Started"
				if verb == "stop" {
					past = "Stopped"
				}
				fmt.Fprintf(out, "%s: %s\n", past, strings.Join(resp.Changed, ", "))
				return nil
			})
		},
	}
}
