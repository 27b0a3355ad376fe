package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func logsCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the service's validation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := sess.ValidationLogs(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(output.w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tSTATUS\tSCORE\tMS\tAT")
			for _, l := range p.Logs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.1f\t%s\n",
					l.ID, l.Email, l.Status.Label(), l.Score, l.ProcessingTime, l.CreatedAt.Format(time.DateTime))
			}
			tw.Flush()
			fmt.Fprintf(output.w, "page %d, %d of %d\n", page, len(p.Logs), p.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, from 1")
	cmd.Flags().IntVar(&limit, "limit", 50, "entries per page")
	return cmd
}
