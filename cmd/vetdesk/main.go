package main

import (
	"os"

	"vetdesk/cmd/vetdesk/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
