package commands

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vetdesk/internal/upload"
)

// validate [email...]: validate pasted addresses as one batch.
func validateCmd() *cobra.Command {
	var input, mailbox string
	var o resultFlags

	cmd := &cobra.Command{
		Use:   "validate [email...]",
		Short: "Validate a list of addresses (args, --input file, --mbox mailbox or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, "\n")
			switch {
			case mailbox != "":
				f, err := os.Open(mailbox)
				if err != nil {
					return err
				}
				defer f.Close()
				emails, err := upload.ReadMailbox(f)
				if err != nil {
					return err
				}
				raw = strings.Join(emails, "\n")
			case input != "":
				data, err := os.ReadFile(input)
				if err != nil {
					return err
				}
				raw = string(data)
			case len(args) == 0:
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = string(data)
			}

			rs, err := sess.Submit(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return finish(cmd.Context(), rs, o)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "file with addresses separated by newlines, commas or semicolons")
	cmd.Flags().StringVar(&mailbox, "mbox", "", "collect sender and recipient addresses from an mbox file")
	cmd.MarkFlagsMutuallyExclusive("input", "mbox")
	addResultFlags(cmd, &o)
	return cmd
}

func addResultFlags(cmd *cobra.Command, o *resultFlags) {
	cmd.Flags().StringVar(&o.save, "save", "", "write the result set as JSON to this path")
	cmd.Flags().StringVar(&o.export, "export", "", "export after validating: local, csv or excel")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "print the summary only")
}
