package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diagreg/diagreg/internal/pipeline"
)

func dashboardCmd() *cobra.Command {
	var (
		from, to string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize the records in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := pipeline.ParseDateRange(from, to)
			if err != nil {
				return err
			}
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			s.SetRange(r)
			stats := s.View().Stats

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			case "table":
				renderDashboard(cmd.OutOrStdout(), stats)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}
