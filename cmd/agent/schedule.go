package main

import (
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Process pending brokers on the configured cron schedule",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	container, err := newWorkflowContainer(ctx, "schedule")
	if err != nil {
		return err
	}
	defer container.Close()

	spec := container.Config.Schedule.Cron
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		outcomes, err := container.Batch.ProcessPending(ctx)
		if err != nil {
			container.Logger.Error("Scheduled batch failed", "error", err)
			return
		}
		if err := batchError(outcomes); err != nil {
			container.Logger.Warn("Scheduled batch finished with failures", "error", err)
		}
	}); err != nil {
		return err
	}

	container.Logger.Info("Scheduler started", "cron", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	container.Logger.Info("Scheduler stopped")
	return nil
}
