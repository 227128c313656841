// Package cmd holds the telefy command-line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "telefy",
		Short:         "Conversational Telegram agent with persistent memory",
		Long: "Telefy is a conversational agent for Telegram. It keeps a persisted\n" +
			"memory per conversation, summarizes history in batches, answers group\n" +
			"mentions, and can post to social media on a schedule.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.telefy/config.json)")
	cmd.Flags().Bool("console", false, "run with a local console channel instead of Telegram")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
