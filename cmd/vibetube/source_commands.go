package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vibetube/internal/ipc"
)

func newSourceCommand(ctx *commandContext) *cobra.Command {
	sourceCmd := &cobra.Command{
		Use:     "source",
		Aliases: []string{"sources"},
		Short:   "Manage tracked videos, channels and playlists",
	}
	sourceCmd.AddCommand(newSourceAddCommand(ctx))
	sourceCmd.AddCommand(newSourceListCommand(ctx))
	sourceCmd.AddCommand(newSourceRemoveCommand(ctx))
	sourceCmd.AddCommand(newSourceToggleAutoCommand(ctx))
	return sourceCmd
}

func newSourceAddCommand(ctx *commandContext) *cobra.Command {
	var bucket string
	var manual bool
	cmd := &cobra.Command{
		Use:   "add <video|channel|playlist> <id>",
		Short: "Register a source and record its current items",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SourceAdd(ipc.SourceAddRequest{
					Kind:        args[0],
					ExternalID:  args[1],
					Bucket:      bucket,
					AutoAcquire: !manual,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q (id %d) with %d items\n",
					resp.Source.Kind, resp.Source.Name, resp.Source.ID, resp.Items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket to store downloads in (default bucket when empty)")
	cmd.Flags().BoolVar(&manual, "manual", false, "Record items as skipped instead of queueing them")
	return cmd
}

func newSourceListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SourceList()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Sources)
				}
				if len(resp.Sources) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sources")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]column{
						{header: "ID", right: true},
						{header: "Kind"},
						{header: "Name", maxWidth: 40},
						{header: "External ID"},
						{header: "Items", right: true},
						{header: "Auto"},
						{header: "Last Checked"},
					},
					sourceRows(resp.Sources),
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sources as JSON")
	return cmd
}

func sourceRows(sources []ipc.Source) [][]string {
	rows := make([][]string, 0, len(sources))
	for _, source := range sources {
		rows = append(rows, []string{
			strconv.FormatInt(source.ID, 10),
			source.Kind,
			source.Name,
			source.ExternalID,
			strconv.Itoa(source.Items),
			yesNo(source.AutoAcquire),
			displayTime(source.LastChecked),
		})
	}
	return rows
}

func newSourceRemoveCommand(ctx *commandContext) *cobra.Command {
	var deleteFiles bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a source and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SourceRemove(id, deleteFiles)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Removed %q\n", resp.Name)
				if deleteFiles {
					fmt.Fprintf(out, "Deleted %d/%d item folders\n", resp.FilesDeleted, resp.FilesTotal)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "Also delete downloaded item folders")
	return cmd
}

func newSourceToggleAutoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-auto <id>",
		Short: "Flip whether new items of a source are queued automatically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SourceToggleAuto(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Auto-download: %s\n", yesNo(resp.Value))
				return nil
			})
		},
	}
}
