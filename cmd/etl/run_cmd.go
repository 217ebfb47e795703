package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"barrio-etl/internal/domain"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			run, runErr := e.svc.Run(cmd.Context(), domain.TriggerTypeManual)
			if run != nil {
				printRunSummary(cmd, run)
			}
			return runErr
		},
	}
}

func printRunSummary(cmd *cobra.Command, run *domain.ETLRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %s (%.1fs)\n",
		run.RunID, run.Status, run.FinishedAt.Sub(run.StartedAt).Seconds())

	keys := make([]string, 0, len(run.Parameters))
	for k := range run.Parameters {
		if strings.HasPrefix(k, "rows_") || strings.HasPrefix(k, "invalid_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s = %s\n", k, run.Parameters[k])
	}
	if run.ErrorMessage != nil {
		fmt.Fprintf(out, "  error = %s\n", *run.ErrorMessage)
	}
}
