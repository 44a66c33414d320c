package main

import (
	"fmt"
	"strconv"

	"removal-agent/internal/infrastructure/registry"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the broker ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		container, err := newContainer(ctx, "list")
		if err != nil {
			return err
		}
		defer container.Close()

		entries, err := container.Ledger.List(ctx)
		if err != nil {
			return err
		}
		container.UserInteraction.ShowLedger(ctx, entries)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <id>",
	Short: "Mark a broker as not requested so the next run retries it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid broker id %q", args[0])
		}

		ctx := cmd.Context()
		container, err := newContainer(ctx, "reset")
		if err != nil {
			return err
		}
		defer container.Close()

		if err := container.Ledger.Reset(ctx, id); err != nil {
			return err
		}
		container.Logger.Info("Broker reset", "broker_id", id)
		fmt.Fprintf(cmd.OutOrStdout(), "Broker %d reset.\n", id)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Add brokers from a YAML registry file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := registry.LoadFile(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		container, err := newContainer(ctx, "seed")
		if err != nil {
			return err
		}
		defer container.Close()

		added, err := registry.Seed(ctx, container.Ledger, file)
		if err != nil {
			return err
		}
		container.Logger.Info("Registry seeded", "added", len(added), "total", len(file.Brokers))
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d brokers.\n", len(added), len(file.Brokers))
		return nil
	},
}
