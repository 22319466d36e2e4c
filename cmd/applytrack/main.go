// Package main provides the applytrack command line tool for managing the
// student application store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/yigit/applytrack/internal/bootstrap"
	"github.com/yigit/applytrack/internal/pkg/logger"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "applytrack"
)

type globalOptions struct {
	configPath string
	envFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Student application tracker store tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", filepath.Join("configs", "config.yaml"), "Config file path (YAML, optional)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")

	cmd.AddCommand(
		initCmd(opts),
		statsCmd(opts),
		accountsCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// openDependencies loads configuration, connects to the store and runs the
// startup initialization. Logs go to the command's stderr.
func openDependencies(cmd *cobra.Command, opts *globalOptions) (*bootstrap.Dependencies, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(opts.configPath, opts.envFile, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	conn, err := bootstrap.SetupDatabase(ctx, cfg, lgr, prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}

	deps, err := bootstrap.BuildDependencies(ctx, cfg, conn, lgr)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return deps, nil
}
