package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/schedule-engine/jobs"
	"github.com/warp/schedule-engine/overdue"
	"github.com/warp/schedule-engine/recurring"
)

func jobCommands(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run the batch jobs",
	}
	cmd.AddCommand(runJobCmd(a))
	cmd.AddCommand(serveJobsCmd(a))
	cmd.AddCommand(jobHistoryCmd(a))
	return cmd
}

func newJobs(a *app) []jobs.Job {
	gen := recurring.NewGenerator(a.store, a.cfg.LookAheadInstallments, a.cfg.BatchSize, a.log)
	agg := overdue.NewAggregator(a.store, a.log)
	return []jobs.Job{
		jobs.NewRecurringInstallmentsJob(gen),
		jobs.NewOverduePenaltiesJob(a.store, agg, jobs.PenaltySettings{
			WaitPeriodDays:     a.cfg.PenaltyWaitPeriod,
			GraceOnPostingDays: a.cfg.GraceOnPenaltyPosting,
			BackdatePenalties:  a.cfg.BackdatePenalties,
		}),
	}
}

func newRunner(a *app) *jobs.Runner {
	return jobs.NewRunner(a.cfg.Location(), a.store, a.cfg.BusinessDate, a.log)
}

func runJobCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := newRunner(a)
			for _, j := range newJobs(a) {
				runner.Register(j)
			}
			run, err := runner.RunNow(cmd.Context(), args[0])
			if run.ID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", run.ID, run.Status, run.Summary)
			}
			return err
		},
	}
}

func serveJobsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the jobs on their cron schedules until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := newRunner(a)
			specs := map[string]string{
				jobs.RecurringInstallmentsJobName: a.cfg.RecurringCron,
				jobs.OverduePenaltiesJobName:      a.cfg.PenaltyCron,
			}
			for _, j := range newJobs(a) {
				if err := runner.Schedule(specs[j.Name()], j); err != nil {
					return err
				}
			}
			runner.Start()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			a.log.Info("shutting down job runner")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			runner.Stop(ctx)
			return nil
		},
	}
}

func jobHistoryCmd(a *app) *cobra.Command {
	var (
		name  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent job runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.store.ListJobRuns(cmd.Context(), name, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tJOB\tBUSINESS DATE\tSTATUS\tSTARTED\tSUMMARY\tERROR")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Name, r.BusinessDate, r.Status, r.StartedAt.Format(time.RFC3339), r.Summary, r.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "only runs of this job")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}
