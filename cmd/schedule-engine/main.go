/*
main.go - Command-line entry point

PURPOSE:
  Operator CLI for the schedule engine: previews loan due dates and
  interest posting periods against the stored tenant calendar, manages
  holidays, and runs the batch jobs once or on their cron schedules.

COMMANDS:
  preview loan     --terms terms.json
  preview posting  --start --end --type [--fy-begin-month --posted --clip]
  holidays add|list|delete|import
  jobs run <name>  Run one job now (recurring-installments, overdue-penalties)
  jobs serve       Run jobs on SCHEDULE_RECURRING_CRON / SCHEDULE_PENALTY_CRON
  jobs history     Recent job runs

CONFIGURATION:
  SCHEDULE_* environment variables, see config/config.go. --db overrides
  SCHEDULE_DB_PATH; use ":memory:" for a throwaway database.

GRACEFUL SHUTDOWN:
  `jobs serve` stops scheduling on SIGINT/SIGTERM and waits up to 30s for
  running jobs before closing the database.

SEE ALSO:
  - jobs/runner.go: Cron runner
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/warp/schedule-engine/config"
	"github.com/warp/schedule-engine/store"
	"github.com/warp/schedule-engine/store/sqlite"
)

// app carries what every command needs once the root pre-run has loaded it.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store store.Store
}

func preRun(a *app, dbPath *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if *dbPath != "" {
			cfg.DBPath = *dbPath
		}
		a.cfg = cfg
		a.log = cfg.NewLogger(cmd.ErrOrStderr())

		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return err
		}
		a.store = db
		a.log.WithField("db", cfg.DBPath).Debug("store opened")
		return nil
	}
}

// close releases the store. Cobra skips post-run hooks when a command
// fails, so execute calls this after the command instead.
func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func newRootCmd() (*cobra.Command, *app) {
	var dbPath string
	a := &app{}

	root := &cobra.Command{
		Use:           "schedule-engine",
		Short:         "Loan and deposit schedule generation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides SCHEDULE_DB_PATH)")
	root.PersistentPreRunE = preRun(a, &dbPath)

	root.AddCommand(previewCommands(a))
	root.AddCommand(holidayCommands(a))
	root.AddCommand(jobCommands(a))
	return root, a
}

// execute runs root and closes the store whether or not the command succeeded.
func execute(root *cobra.Command, a *app) error {
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func main() {
	if err := execute(newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
