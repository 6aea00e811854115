package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vibetube/internal/ipc"
)

func newBucketCommand(ctx *commandContext) *cobra.Command {
	bucketCmd := &cobra.Command{
		Use:     "bucket",
		Aliases: []string{"buckets"},
		Short:   "Manage download destination directories",
	}
	bucketCmd.AddCommand(newBucketAddCommand(ctx))
	bucketCmd.AddCommand(newBucketListCommand(ctx))
	bucketCmd.AddCommand(&cobra.Command{
		Use:   "default <name>",
		Short: "Make a bucket the default for new sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BucketDefault(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default bucket: %s (%s)\n", resp.Bucket.Name, resp.Bucket.Path)
				return nil
			})
		},
	})
	bucketCmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a bucket; its sources fall back to the default bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.BucketRemove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed bucket %s\n", args[0])
				return nil
			})
		},
	})
	return bucketCmd
}

func newBucketAddCommand(ctx *commandContext) *cobra.Command {
	var description string
	var makeDefault bool
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a bucket under the storage root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BucketAdd(ipc.BucketAddRequest{
					Name:        args[0],
					Description: description,
					Default:     makeDefault,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created bucket %s at %s\n", resp.Bucket.Name, resp.Bucket.Path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Free-form description")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "Make the new bucket the default")
	return cmd
}

func newBucketListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BucketList()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Buckets))
				for _, bucket := range resp.Buckets {
					marker := ""
					if bucket.IsDefault {
						marker = "*"
					}
					rows = append(rows, []string{
						strconv.FormatInt(bucket.ID, 10),
						bucket.Name + marker,
						bucket.Path,
						bucket.Description,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]column{{header: "ID", right: true}, {header: "Name"}, {header: "Path"}, {header: "Description", maxWidth: 40}},
					rows,
				))
				return nil
			})
		},
	}
}
