package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rxstock/m/internal/session"
)

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the pharmacy overview counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *session.Session) error {
				d := s.Dashboard()
				tw := table(cmd.OutOrStdout())
				fmt.Fprintf(tw, "Total medicines\t%d\n", d.TotalMedicines)
				fmt.Fprintf(tw, "Low stock\t%d\n", d.LowStock)
				fmt.Fprintf(tw, "Expiring soon\t%d\n", d.ExpiringSoon)
				fmt.Fprintf(tw, "Today's prescriptions\t%d\n", d.TodaysPrescriptions)
				fmt.Fprintf(tw, "Open alerts\t%d\n", d.OpenAlerts)
				return tw.Flush()
			})
		},
	}
}
