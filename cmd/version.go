package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the telefy version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("telefy", version)
		},
	}
}
