package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"allegro-ops/internal/app"
)

var (
	exportFrom    string
	exportTo      string
	exportCSVPath string
	exportPNGPath string
	exportMaxRows int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export persisted orders as CSV and/or a revenue chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			CSVPath: exportCSVPath,
			PNGPath: exportPNGPath,
			MaxRows: exportMaxRows,
		}

		if exportFrom != "" {
			from, err := parseTimeFlag(exportFrom)
			if err != nil {
				return fmt.Errorf("parse --from: %w", err)
			}
			opts.From = &from
		}
		if exportTo != "" {
			to, err := parseTimeFlag(exportTo)
			if err != nil {
				return fmt.Errorf("parse --to: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func parseTimeFlag(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", value)
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Window start (RFC3339 or YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Window end (RFC3339 or YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "CSV output path")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "PNG chart output path")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "Maximum rows to export (default from config)")
}
