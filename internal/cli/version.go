package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"allegro-ops/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "allegro-ops %s (commit %s, built %s)\n",
			version.Version, version.Commit, version.BuildDate)
	},
}
