package commands

import (
	"github.com/spf13/cobra"
)

// export --from results.json: re-export a saved result set.
func exportCmd() *cobra.Command {
	var from, mode string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved result set (see --save) to CSV or Excel",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := loadResults(from)
			if err != nil {
				return err
			}
			rs := sess.Load(results)
			output.summary(rs.Statistics)
			return exportResults(cmd.Context(), mode)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "result set written by validate/upload --save")
	cmd.Flags().StringVar(&mode, "mode", "", "local, csv (rendered by the service) or excel; default from export.remote")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
