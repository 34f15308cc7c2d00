package cli

import (
	"github.com/spf13/cobra"

	"allegro-ops/internal/app"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch and persist the current order listing once",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SyncOptions{
			DryRun: syncDryRun,
		}
		return getApp().SyncOnce(cmd.Context(), opts)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Fetch orders without persisting them")
}
