package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "diagreg",
		Short:        "Patient diagnosis registry",
		Long:         "diagreg serves the patient record store and browses, edits, summarizes and exports its records from the terminal.",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("store-url", "", "Record store base URL (overrides STORE_URL)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(recordsCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(exportCmd())

	return rootCmd
}
