package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"vibetube/internal/config"
	"vibetube/internal/ipc"
)

func newSettingCommand(ctx *commandContext) *cobra.Command {
	settingCmd := &cobra.Command{
		Use:     "setting",
		Aliases: []string{"settings"},
		Short:   "Read and change runtime settings",
	}
	settingCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List runtime settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SettingList()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Settings))
				for _, setting := range resp.Settings {
					rows = append(rows, []string{setting.Key, setting.Value, strconv.FormatInt(setting.Version, 10)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]column{{header: "Key"}, {header: "Value", maxWidth: 60}, {header: "Version", right: true}},
					rows,
				))
				return nil
			})
		},
	})
	settingCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one runtime setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SettingGet(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Setting.Value)
				return nil
			})
		},
	})
	settingCmd.AddCommand(newSettingSetCommand(ctx))
	settingCmd.AddCommand(&cobra.Command{
		Use:   "clear-cookies",
		Short: "Remove the stored YouTube cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.SettingClearCookies(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cookies cleared")
				return nil
			})
		},
	})
	return settingCmd
}

func newSettingSetCommand(ctx *commandContext) *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Change a runtime setting (use --file for youtube_cookies)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := settingValue(args, fromFile)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SettingSet(args[0], value)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (version %d)\n", resp.Setting.Key, resp.Setting.Value, resp.Setting.Version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fromFile, "file", "", "Read the value from a file, such as an exported cookies.txt")
	return cmd
}

func settingValue(args []string, fromFile string) (string, error) {
	switch {
	case fromFile != "" && len(args) == 2:
		return "", errors.New("pass either a value or --file, not both")
	case fromFile != "":
		path, err := config.ExpandPath(fromFile)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	case len(args) == 2:
		return args[1], nil
	default:
		return "", errors.New("a value or --file is required")
	}
}
