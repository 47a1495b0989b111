package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/airtable/internal/cli/ui"
	"github.com/conduit-lang/airtable/pkg/cache"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local record cache",
	}
	cmd.AddCommand(newCacheClearCommand(a))
	return cmd
}

func newCacheClearCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached record and list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			backend, err := a.backend(cfg)
			if err != nil {
				return err
			}
			if closer, ok := backend.(io.Closer); ok {
				defer closer.Close()
			}

			if err := cache.New(backend).Clear(cmd.Context()); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Cache cleared", a.colorDisabled())
			return nil
		},
	}
}
