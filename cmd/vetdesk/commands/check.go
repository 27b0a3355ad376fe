package commands

import (
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <email>",
		Short: "Validate a single address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := sess.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			output.result(r)
			return nil
		},
	}
}
