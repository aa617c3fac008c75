package cli

import (
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("FlightSurety")
			cmd.Printf("Version: %s\n", Version)
			cmd.Printf("Commit: %s\n", Commit)
			cmd.Printf("Built: %s\n", BuildTime)
		},
	}
}
