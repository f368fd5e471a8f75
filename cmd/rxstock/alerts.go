package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"rxstock/m/domain"
	"rxstock/m/internal/session"
)

var alertDimensions = []string{"status", "type", "priority"}

func alertsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and act on stock and expiry alerts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *session.Session) error {
				s.AlertView.SetQuery(queryFromFlags(cmd, alertDimensions...))
				return writeAlerts(cmd.OutOrStdout(), s.AlertView.Results())
			})
		},
	}
	listFlags(list, alertDimensions...)
	cmd.AddCommand(list)

	cmd.AddCommand(alertStatusCmd(a, "resolve", "Mark an alert resolved", domain.AlertResolved))
	cmd.AddCommand(alertStatusCmd(a, "start", "Mark an alert in progress", domain.AlertInProgress))

	return cmd
}

func alertStatusCmd(a *app, use, short string, status domain.AlertStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(s *session.Session) error {
				alert, err := s.Gateway.SetAlertStatus(cmd.Context(), id, status)
				if err != nil {
					return err
				}
				return writeAlerts(cmd.OutOrStdout(), []domain.Alert{alert})
			})
		},
	}
}

func writeAlerts(w io.Writer, alerts []domain.Alert) error {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tPRIORITY\tTYPE\tSTATUS\tTITLE\tCREATED")
	for _, a := range alerts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Priority, a.Type, a.Status, a.Title, a.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
