package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/listicons/identity"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		id   string
		name string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Compose one player's icon and write it as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			player, err := identity.ParsePlayer(id, name)
			if err != nil {
				return err
			}

			obs, err := newObserver(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownObserver(shutdownCtx, obs)
			}()

			p, err := buildPipeline(cmd.Context(), cfg, obs)
			if err != nil {
				return err
			}
			data, err := p.icons.Icon(cmd.Context(), player)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write icon: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes for %s to %s\n", len(data), player, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "uuid", "", "Player uuid")
	cmd.Flags().StringVar(&name, "name", "", "Player display name")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("uuid")
	return cmd
}
