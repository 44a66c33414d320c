package main

import (
	"errors"
	"fmt"

	"removal-agent/internal/domain/entity"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every pending broker in the ledger",
	Args:  cobra.NoArgs,
	RunE:  runPending,
}

var runURLCmd = &cobra.Command{
	Use:   "run-url <url>",
	Short: "Run the removal workflow against a single URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runURL,
}

var brokerID uint64

func init() {
	runURLCmd.Flags().Uint64Var(&brokerID, "broker-id", 0, "Ledger id to update on success")
}

func runPending(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	container, err := newWorkflowContainer(ctx, "batch")
	if err != nil {
		return err
	}
	defer container.Close()

	outcomes, err := container.Batch.ProcessPending(ctx)
	if err != nil {
		return err
	}
	return batchError(outcomes)
}

func runURL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	container, err := newWorkflowContainer(ctx, args[0])
	if err != nil {
		return err
	}
	defer container.Close()

	target := entity.Target{URL: args[0], BrokerID: brokerID}
	if brokerID != 0 {
		entry, err := container.Ledger.Get(ctx, brokerID)
		if err != nil {
			return err
		}
		target.BrokerName = entry.Name
	}

	state, err := container.Runner.Run(ctx, target)
	if err != nil {
		return err
	}
	if state.Failed() {
		return fmt.Errorf("run failed: %w", state.Err())
	}
	return nil
}

func batchError(outcomes []entity.RunOutcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Target.URL, o.Err))
		} else if o.State != nil && o.State.Failed() {
			errs = append(errs, fmt.Errorf("%s: %w", o.Target.URL, o.State.Err()))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d runs failed: %w", len(errs), len(outcomes), errors.Join(errs...))
}
