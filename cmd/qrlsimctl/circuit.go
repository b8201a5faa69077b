package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qrlsim/pkg/qrlsim"
)

func NewCircuitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "circuit",
		Short: "Print the circuit a run would simulate, without simulating it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRunConfig(cmd, opts)
			if err != nil {
				return err
			}
			client, err := newClient(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			summary, err := client.Circuit(cmd.Context(), qrlsim.CircuitRequest{Config: cfg})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "// source=%s windows=%d mean_p_error=%g\n", summary.Source, summary.Windows, summary.MeanPError)
			for _, rc := range summary.Rewards {
				fmt.Fprintf(out, "// rewards(%s)=%d\n", rc.Reward, rc.Count)
			}
			fmt.Fprint(out, summary.Circuit.String())
			return nil
		},
	}

	addConfigFlags(cmd, opts)
	return cmd
}
