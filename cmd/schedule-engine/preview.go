package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/warp/schedule-engine/factory"
	"github.com/warp/schedule-engine/schedule"
)

func previewCommands(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview generated dates without writing anything",
	}
	cmd.AddCommand(previewLoanCmd(a))
	cmd.AddCommand(previewPostingCmd())
	return cmd
}

// =============================================================================
// LOAN DUE DATES
// =============================================================================

func previewLoanCmd(a *app) *cobra.Command {
	var termsPath string

	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Generate the due dates of a loan from a terms file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(termsPath)
			if err != nil {
				return errors.Wrap(err, "read terms file")
			}
			terms, meetings, err := factory.ParseTerms(data)
			if err != nil {
				return err
			}

			cal, err := a.cfg.CalendarContext(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			cal.Meetings = meetings

			periods, err := schedule.GenerateDueDates(terms, cal)
			if err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"periods":  len(periods),
				"holidays": cal.Holidays.Len(),
			}).Debug("loan schedule generated")
			return printPeriods(cmd, periods)
		},
	}
	cmd.Flags().StringVar(&termsPath, "terms", "", "JSON terms file")
	_ = cmd.MarkFlagRequired("terms")
	return cmd
}

func printPeriods(cmd *cobra.Command, periods []schedule.ScheduledPeriod) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tNO\tFROM\tSCHEDULED\tDUE\tNEXT\tDISBURSEMENT")
	for _, p := range periods {
		no, disbursement := fmt.Sprint(p.InstallmentNumber), ""
		if p.Tranche {
			no, disbursement = "-", p.DisbursementAmount.StringFixed(2)
		}
		due := p.ActualRepaymentDate.String()
		if p.Moved() {
			due += " *"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Sequence, no, p.PeriodStart, p.ScheduleDate, due, p.NextRepaymentPeriodDueDate, disbursement)
	}
	return w.Flush()
}

// =============================================================================
// INTEREST POSTING PERIODS
// =============================================================================

func previewPostingCmd() *cobra.Command {
	var (
		start, end, postingType string
		fyBeginMonth            int
		posted                  []string
		activationMonths        int
		clip                    bool
	)

	cmd := &cobra.Command{
		Use:   "posting",
		Short: "Split a date range into interest posting periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := schedule.ParseDate(start)
			if err != nil {
				return errors.Wrap(err, "--start")
			}
			to, err := schedule.ParseDate(end)
			if err != nil {
				return errors.Wrap(err, "--end")
			}
			var postedAsOn []schedule.Date
			for _, s := range posted {
				d, err := schedule.ParseDate(s)
				if err != nil {
					return errors.Wrap(err, "--posted")
				}
				postedAsOn = append(postedAsOn, d)
			}

			var opts []schedule.PostingOption
			if activationMonths > 0 {
				opts = append(opts, schedule.WithActivationPeriodMonths(activationMonths))
			}
			if clip {
				opts = append(opts, schedule.WithClipToEnd())
			}

			periods, err := schedule.DeterminePostingPeriods(from, to,
				schedule.PostingPeriodType(postingType), time.Month(fyBeginMonth), postedAsOn, opts...)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tSTART\tEND\tDAYS")
			for i, p := range periods {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i+1, p.Start, p.End, p.NumberOfDays())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&postingType, "type", string(schedule.PostingMonthly),
		"daily, monthly, quarterly, biannual, annual or activation_date")
	cmd.Flags().IntVar(&fyBeginMonth, "fy-begin-month", 1, "financial year start month (1-12)")
	cmd.Flags().StringSliceVar(&posted, "posted", nil, "dates interest was already posted on")
	cmd.Flags().IntVar(&activationMonths, "activation-months", 0, "period length for activation_date posting (1, 3, 6, 12)")
	cmd.Flags().BoolVar(&clip, "clip", false, "end the last period on --end")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
