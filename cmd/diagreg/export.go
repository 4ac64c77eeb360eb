package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		vf  viewFlags
		dir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered and sorted records to CSV",
		Long:  "Export every record matching the filters, in sort order, to registros_pacientes_<date>.csv in the export directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, cfg, err := openSession(cmd)
			if err != nil {
				return err
			}
			if err := vf.apply(s); err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.ExportDir
			}

			path, err := s.Export(dir)
			printNotifications(cmd.ErrOrStderr(), s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	vf.register(cmd, false)
	cmd.Flags().StringVar(&dir, "dir", "", "Export directory (overrides EXPORT_DIR)")
	return cmd
}
