package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"qrlsim/pkg/qrlsim"
)

func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List indexed runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			items, err := client.Runs(cmd.Context(), qrlsim.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "no runs")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.RunID,
					item.CreatedAtUTC,
					item.Backend,
					item.Source,
					strconv.FormatInt(item.Seed, 10),
					strconv.Itoa(item.Windows),
					strconv.Itoa(item.Shots),
					fmt.Sprintf("%.1f%%", item.Fidelity*100),
				})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Run", "Created", "Backend", "Source", "Seed", "Windows", "Shots", "Fidelity"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}
