package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/leave-engine/leave"
)

// reportFlags are shared by the availability and shortages commands.
type reportFlags struct {
	month    string
	location string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&f.location, "location", "", "Location id to filter by")
}

func (f *reportFlags) parseMonth() (leave.Month, error) {
	if f.month == "" {
		return leave.DateOf(time.Now()).MonthOf(), nil
	}
	m, err := leave.ParseMonth(f.month)
	if err != nil {
		return leave.Month{}, fmt.Errorf("invalid --month: %w", err)
	}
	return m, nil
}

func newAvailabilityCommand() *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Print the per-day staffing grid for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := flags.parseMonth()
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			backend, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			days, err := leave.NewAggregator(backend).Availability(cmd.Context(), month, flags.location)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTOTAL\tAVAILABLE\tPERCENT")
			for _, d := range days {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d%%\n", d.Date, d.TotalEmployees, d.AvailableStaff, d.Percentage)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}

func newShortagesCommand() *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "shortages",
		Short: "Print the days of a month at or below 50% staffing",
		Long: `Print up to five days of the month whose availability is at or
below 50%, earliest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := flags.parseMonth()
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			backend, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			shortages, err := leave.NewAggregator(backend).ShortageDays(cmd.Context(), month, flags.location)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(shortages) == 0 {
				fmt.Fprintf(out, "No shortages in %s\n", month)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tLOCATION\tAVAILABLE\tSHORT\tPERCENT")
			for _, s := range shortages {
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%d%%\n",
					s.Date, s.LocationName, s.AvailableStaff, s.TotalEmployees, s.EmployeesShort, s.Percentage)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}
