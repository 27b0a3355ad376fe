package commands

import (
	"github.com/spf13/cobra"

	"vetdesk/internal/upload"
)

// upload <file.csv>: hand a CSV file to the service whole.
func uploadCmd() *cobra.Command {
	var immediate bool
	var o resultFlags

	cmd := &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Validate the addresses in a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, file, err := upload.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			rs, err := sess.SubmitFile(cmd.Context(), f, immediate)
			if err != nil {
				return err
			}
			return finish(cmd.Context(), rs, o)
		},
	}
	cmd.Flags().BoolVar(&immediate, "immediate", true, "ask the service to process the file synchronously")
	addResultFlags(cmd, &o)
	return cmd
}
