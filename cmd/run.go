package cmd

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"telefy/internal/app"
	"telefy/internal/config"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd)
		},
	}
	cmd.Flags().Bool("console", false, "run with a local console channel instead of Telegram")
	return cmd
}

func runService(cmd *cobra.Command) error {
	loader, err := config.NewLoader(cfgFile)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	if console, _ := cmd.Flags().GetBool("console"); console {
		cfg.Console = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("[cmd] telefy starting (config %s)", loader.FilePath())
	return a.Run(ctx)
}
