package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"removal-agent/internal/di"
	"removal-agent/internal/infrastructure/config"
	"removal-agent/internal/infrastructure/env"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "removal-agent",
	Short:         "Request removal of personal data from data broker sites",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the TOML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging on the console")

	rootCmd.AddCommand(runCmd, runURLCmd, listCmd, resetCmd, seedCmd, scheduleCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, env.NewEnvService())
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Console = true
	}
	return cfg, nil
}

// newContainer builds the ledger side only. Commands that drive a browser
// call InitWorkflow afterwards.
func newContainer(ctx context.Context, logName string) (*di.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return di.NewContainer(ctx, cfg, logName)
}

func newWorkflowContainer(ctx context.Context, logName string) (*di.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateProfile(); err != nil {
		return nil, err
	}

	container, err := di.NewContainer(ctx, cfg, logName)
	if err != nil {
		return nil, err
	}
	if err := container.InitWorkflow(ctx); err != nil {
		container.Close()
		return nil, err
	}
	return container, nil
}
