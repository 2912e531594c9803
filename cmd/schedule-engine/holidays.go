package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/warp/schedule-engine/factory"
)

func holidayCommands(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Manage the tenant holiday calendar",
	}
	cmd.AddCommand(addHolidayCmd(a))
	cmd.AddCommand(listHolidaysCmd(a))
	cmd.AddCommand(deleteHolidayCmd(a))
	cmd.AddCommand(importCalendarCmd(a))
	return cmd
}

func addHolidayCmd(a *app) *cobra.Command {
	var hj factory.HolidayJSON

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a holiday",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := factory.HolidayFromJSON(hj)
			if err != nil {
				return err
			}
			saved, err := a.store.SaveHoliday(cmd.Context(), h)
			if err != nil {
				return err
			}
			a.log.WithField("holiday_id", saved.ID).Info("holiday saved")
			fmt.Fprintln(cmd.OutOrStdout(), saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&hj.ID, "id", "", "holiday ID (generated when empty)")
	cmd.Flags().StringVar(&hj.Name, "name", "", "holiday name")
	cmd.Flags().StringVar(&hj.From, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&hj.To, "to", "", "last day (defaults to --from)")
	cmd.Flags().StringVar(&hj.RescheduleType, "reschedule-type", "", "policy for due dates on this holiday")
	cmd.Flags().StringVar(&hj.RescheduleTo, "reschedule-to", "", "date for reschedule_to_specified_date")
	cmd.Flags().StringSliceVar(&hj.OfficeIDs, "office", nil, "offices the holiday applies to (all when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func listHolidaysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List holidays by start date",
		RunE: func(cmd *cobra.Command, args []string) error {
			holidays, err := a.store.ListHolidays(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFROM\tTO\tPOLICY\tRESCHEDULE TO\tOFFICES")
			for _, h := range holidays {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					h.ID, h.Name, h.From, h.To, h.RescheduleType, h.RescheduleTo, strings.Join(h.OfficeIDs, ","))
			}
			return w.Flush()
		},
	}
}

func deleteHolidayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a holiday",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.DeleteHoliday(cmd.Context(), args[0])
		},
	}
}

func importCalendarCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load working days and holidays from a JSON calendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrap(err, "read calendar file")
			}
			rule, holidays, err := factory.ParseCalendar(data)
			if err != nil {
				return err
			}
			if rule != nil {
				if err := a.store.SaveWorkingDays(cmd.Context(), *rule); err != nil {
					return err
				}
			}
			for _, h := range holidays {
				if _, err := a.store.SaveHoliday(cmd.Context(), h); err != nil {
					return err
				}
			}
			a.log.WithFields(logrus.Fields{
				"holidays":     len(holidays),
				"working_days": rule != nil,
			}).Info("calendar imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "JSON calendar file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
