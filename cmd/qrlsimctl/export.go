package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qrlsim/pkg/qrlsim"
)

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		latest bool
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Copy a run's artifacts to the exports directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			req := qrlsim.ExportRequest{Latest: latest, OutDir: outDir}
			if len(args) == 1 {
				req.RunID = args[0]
			}
			exported, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "export the most recent run")
	cmd.Flags().StringVar(&outDir, "out", "", "destination directory (default: --exports-dir)")
	return cmd
}
