package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the validation service is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := sess.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(output.w, "%s %s (version %s, up %.0fs, database %s)\n",
				cfg.API.BaseURL, h.Status, h.Version, h.Uptime, h.Database)
			if h.Cache != nil {
				fmt.Fprintf(output.w, "cache: %d entries, %.0f%% hit rate\n", h.Cache.Size, h.Cache.HitRate*100)
			}
			return nil
		},
	}
}
