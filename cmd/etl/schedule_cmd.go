package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"barrio-etl/internal/domain"
	"barrio-etl/internal/service/pipeline"
)

func newScheduleCmd() *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			if schedule == "" {
				schedule = e.cfg.Schedule
			}
			if schedule == "" {
				return domain.ErrValidation("no schedule given: set --schedule or ETL_SCHEDULE")
			}

			sched := pipeline.NewScheduler(e.svc, e.logger)
			if err := sched.Start(schedule); err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			sched.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression (overrides ETL_SCHEDULE)")
	return cmd
}
