package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"barrio-etl/internal/domain"
)

// runsFlags holds the filter options for `etl runs`.
type runsFlags struct {
	limit    int
	status   string
	asJSON   bool
	showArgs bool
}

func (f *runsFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.limit, "limit", 20, "maximum number of runs to list")
	fs.StringVar(&f.status, "status", "", "filter by status (SUCCESS or FAILED)")
	fs.BoolVar(&f.asJSON, "json", false, "emit JSON instead of a table")
	fs.BoolVar(&f.showArgs, "params", false, "include run parameters in table output")
}

func newRunsCmd() *cobra.Command {
	flags := &runsFlags{}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline run records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			filter := domain.RunFilter{Limit: flags.limit}
			if flags.status != "" {
				filter.Status = &flags.status
			}
			runs, err := e.runs.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if flags.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			return printRunsTable(cmd, runs, flags.showArgs)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func printRunsTable(cmd *cobra.Command, runs []domain.ETLRun, withParams bool) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTATUS\tTRIGGER\tSTARTED\tDURATION\tERROR")
	for _, r := range runs {
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = *r.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID,
			r.Status,
			r.TriggerType,
			r.StartedAt.Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			errMsg,
		)
		if withParams {
			for k, v := range r.Parameters {
				fmt.Fprintf(w, "  %s\t%s\t\t\t\t\n", k, v)
			}
		}
	}
	return w.Flush()
}
