package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status|version]",
	Short:     "Run database schema migrations",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"up", "down", "status", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := args[0]
		switch command {
		case "up", "down", "status", "version":
		default:
			return fmt.Errorf("unknown migrate command %q", command)
		}
		return getApp().Migrate(cmd.Context(), command, args[1:]...)
	},
}
