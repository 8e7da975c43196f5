// Package cmd holds the process's CLI surface: a single root command
// taking an optional positional path to the configuration file.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"idsrs/bootstrap"
	"idsrs/config"
)

// NewRootCmd builds the ids-rs root command.
func NewRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ids-rs [config-path]",
		Short: "Network scan detector",
		Long: `ids-rs ingests firewall drop logs over UDP syslog, identifies
port-scan behavior per source address, and alerts a SIEM collector and
optional email recipients.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfigPath
	if len(args) == 1 {
		path = args[0]
	}

	_, sugar := bootstrap.InitLogger("info")
	cfg, err := bootstrap.InitConfig(path, sugar)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	logger, sugar := bootstrap.InitLogger(cfg.Logging.Level)
	defer logger.Sync()

	app, err := bootstrap.NewApp(cfg, logger, sugar)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	ctx := context.Background()
	app.Start(ctx)
	app.WaitForShutdown(ctx)
	return nil
}

// Execute runs the root command, exiting non-zero on any startup or
// runtime failure, per spec.md §6.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
