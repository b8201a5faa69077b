package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qrlsim/pkg/qrlsim"
)

func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var latest bool

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print the summary table of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			req := qrlsim.ShowRequest{Latest: latest}
			if len(args) == 1 {
				req.RunID = args[0]
			}
			summary, err := client.Show(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			meta := summary.Meta
			fmt.Fprintf(out, "run_id=%s created=%s backend=%s source=%s seed=%d sim_seed=%d\n",
				meta.RunID, meta.CreatedAtUTC, meta.Backend, meta.Source, meta.Seed, meta.SimSeed)
			fmt.Fprintln(out, renderSummary(out, summary.Result, summary.Unit))
			return nil
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "show the most recent run")
	return cmd
}
