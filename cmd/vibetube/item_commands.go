package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"vibetube/internal/ipc"
)

func newItemCommand(ctx *commandContext) *cobra.Command {
	itemCmd := &cobra.Command{
		Use:     "item",
		Aliases: []string{"items"},
		Short:   "Inspect and manage catalog items",
	}
	itemCmd.AddCommand(newItemListCommand(ctx))
	itemCmd.AddCommand(newItemShowCommand(ctx))
	itemCmd.AddCommand(newItemDownloadCommand(ctx))
	itemCmd.AddCommand(newItemFlagCommand(ctx, "reset-failed", "Clear an item's failure so the queue retries it",
		(*ipc.Client).ItemResetFailed,
		"Failure cleared", "Item was not failed"))
	itemCmd.AddCommand(newItemFlagCommand(ctx, "reset-missing", "Re-queue an item whose files went missing",
		(*ipc.Client).ItemResetMissing,
		"Item re-queued", "Item was not missing"))
	itemCmd.AddCommand(newItemFlagCommand(ctx, "toggle-skip", "Flip an item's skip flag",
		(*ipc.Client).ItemToggleSkip,
		"Item skipped", "Item unskipped"))
	itemCmd.AddCommand(newItemDeleteFilesCommand(ctx))
	return itemCmd
}

func newItemListCommand(ctx *commandContext) *cobra.Command {
	var status, query string
	var sourceID int64
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemList(ipc.ItemListRequest{
					Status:   status,
					SourceID: sourceID,
					Query:    query,
					Limit:    limit,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Items)
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No items")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]column{
						{header: "ID", right: true},
						{header: "Title", maxWidth: 50},
						{header: "Channel", maxWidth: 24},
						{header: "Uploaded"},
						{header: "Length", right: true},
						{header: "Status"},
					},
					itemRows(resp.Items),
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, acquired, failed, missing, skipped)")
	cmd.Flags().Int64Var(&sourceID, "source", 0, "Filter by source id")
	cmd.Flags().StringVarP(&query, "search", "q", "", "Fuzzy match against title and channel")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print items as JSON")
	return cmd
}

func itemRows(items []ipc.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Title,
			item.Channel,
			formatUploadDate(item.UploadDate),
			formatDuration(item.Duration),
			item.Status,
		})
	}
	return rows
}

func newItemShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemShow(id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Item)
				}
				printItem(cmd.OutOrStdout(), resp.Item)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the item as JSON")
	return cmd
}

func printItem(out io.Writer, item ipc.Item) {
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(out, "%-12s %s\n", label+":", value)
	}
	field("ID", strconv.FormatInt(item.ID, 10))
	field("Video", item.ExternalID)
	field("Title", item.Title)
	field("Channel", item.Channel)
	field("Uploaded", formatUploadDate(item.UploadDate))
	field("Length", formatDuration(item.Duration))
	field("Status", item.Status)
	field("Source", strconv.FormatInt(item.SourceID, 10))
	field("File", item.OutputPath)
	if item.AcquiredAt != "" {
		field("Acquired", displayTime(item.AcquiredAt))
	}
	field("Error", item.ErrorDetail)
}

func newItemDownloadCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download an item now, outside the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemDownload(id, wait)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case !resp.Started && resp.Success:
					fmt.Fprintf(out, "Already downloaded: %s\n", resp.Item.OutputPath)
				case !resp.Waited:
					fmt.Fprintf(out, "Download started for %q\n", resp.Item.Title)
				case resp.Success:
					fmt.Fprintf(out, "Downloaded to %s\n", resp.Item.OutputPath)
				default:
					detail := resp.Detail
					if detail == "" {
						detail = resp.Item.ErrorDetail
					}
					return fmt.Errorf("download failed: %s", detail)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the download finishes")
	return cmd
}

func newItemFlagCommand(ctx *commandContext, use, short string, call func(*ipc.Client, int64) (*ipc.ToggleResponse, error), onTrue, onFalse string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := call(client, id)
				if err != nil {
					return err
				}
				message := onFalse
				if resp.Value {
					message = onTrue
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
}

func newItemDeleteFilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-files <id>",
		Short: "Delete a downloaded item's folder and mark it missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemDeleteFiles(id)
				if err != nil {
					return err
				}
				if resp.AlreadyGone {
					fmt.Fprintln(cmd.OutOrStdout(), "Folder already gone; item marked missing")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", resp.Folder)
				return nil
			})
		},
	}
}

// formatUploadDate renders YYYYMMDD as YYYY-MM-DD.
func formatUploadDate(value string) string {
	if len(value) != 8 {
		return value
	}
	return value[:4] + "-" + value[4:6] + "-" + value[6:]
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
