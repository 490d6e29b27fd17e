package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cepton-sdk-go/internal/faultlog"
)

func newFaultsCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "faults",
		Short: "Show journaled errors and faults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := g.faultDB
			if path == "" {
				return fmt.Errorf("--fault-db is required")
			}
			j, err := faultlog.Open(path)
			if err != nil {
				return err
			}
			defer j.Close()

			counts, err := j.Counts()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tCOUNT")
			for _, c := range counts {
				fmt.Fprintf(w, "%d\t%s\t%d\n", c.Code, c.Name, c.Count)
			}
			w.Flush()

			events, err := j.Recent(limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout())
			w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSENSOR\tNAME\tSOURCE\tMESSAGE")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ev.Recorded.UTC().Format(time.RFC3339), ev.Handle, ev.Name, ev.Source, ev.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent events to show")
	return cmd
}
