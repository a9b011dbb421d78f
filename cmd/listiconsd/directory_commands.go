package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/listicons/identity"
)

func newDirectoryCommand(ctx *commandContext) *cobra.Command {
	dirCmd := &cobra.Command{
		Use:   "directory",
		Short: "Inspect and edit the address directory",
	}

	dirCmd.AddCommand(newDirectoryListCommand(ctx))
	dirCmd.AddCommand(newDirectoryLookupCommand(ctx))
	dirCmd.AddCommand(newDirectoryRecordCommand(ctx))
	dirCmd.AddCommand(newDirectoryClearCommand(ctx))

	return dirCmd
}

// withDirectory opens the configured SQLite directory for the duration of fn.
func (c *commandContext) withDirectory(ctx context.Context, fn func(identity.Directory) error) error {
	cfg, err := c.ensureConfig(ctx)
	if err != nil {
		return err
	}
	dir, err := identity.OpenSQLite(ctx, cfg.Paths.Database)
	if err != nil {
		return err
	}
	defer dir.Close()
	return fn(dir)
}

func newDirectoryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded players, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDirectory(cmd.Context(), func(dir identity.Directory) error {
				entries, err := dir.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No recorded players")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.Player.ID.String(),
						e.Player.Name,
						e.Address,
						e.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"UUID", "Name", "Address", "Updated"}, rows))
				return nil
			})
		},
	}
}

func newDirectoryLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <address>",
		Short: "Show the player last seen at an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDirectory(cmd.Context(), func(dir identity.Directory) error {
				player, err := dir.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), player)
				return nil
			})
		},
	}
}

func newDirectoryRecordCommand(ctx *commandContext) *cobra.Command {
	var id, name, address string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a player at an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := identity.ParsePlayer(id, name)
			if err != nil {
				return err
			}
			return ctx.withDirectory(cmd.Context(), func(dir identity.Directory) error {
				if err := dir.Record(cmd.Context(), player, address); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s at %s\n", player, address)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "uuid", "", "Player uuid")
	cmd.Flags().StringVar(&name, "name", "", "Player display name")
	cmd.Flags().StringVar(&address, "address", "", "Network address, with or without port")
	_ = cmd.MarkFlagRequired("uuid")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func newDirectoryClearCommand(ctx *commandContext) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget one player, or every player when --uuid is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDirectory(cmd.Context(), func(dir identity.Directory) error {
				out := cmd.OutOrStdout()
				if id == "" {
					if err := dir.Clear(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(out, "Cleared all recorded players")
					return nil
				}
				player, err := identity.ParsePlayer(id, "")
				if err != nil {
					return err
				}
				if err := dir.ClearPlayer(cmd.Context(), player.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %s\n", player.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "uuid", "", "Player uuid")
	return cmd
}
