package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vibetube/internal/ipc"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Check every channel and playlist for new items now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Refresh(wait)
				if err != nil {
					return err
				}
				if !resp.Waited {
					fmt.Fprintln(cmd.OutOrStdout(), "Refresh started")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checked %d sources, %d new items\n", resp.Sources, resp.NewItems)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the refresh finishes")
	return cmd
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Verify downloaded files and mark vanished ones missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Scan(wait)
				if err != nil {
					return err
				}
				if !resp.Waited {
					fmt.Fprintln(cmd.OutOrStdout(), "Scan started")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d items marked missing\n", resp.Changed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the scan finishes")
	return cmd
}
