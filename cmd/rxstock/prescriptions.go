package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rxstock/m/domain"
	"rxstock/m/internal/session"
)

var prescriptionDimensions = []string{"status", "gender"}

func prescriptionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prescriptions",
		Short: "List and manage prescriptions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List prescriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *session.Session) error {
				s.PrescriptionView.SetQuery(queryFromFlags(cmd, prescriptionDimensions...))
				return writePrescriptions(cmd.OutOrStdout(), s.PrescriptionView.Results())
			})
		},
	}
	listFlags(list, prescriptionDimensions...)
	cmd.AddCommand(list)

	add := &cobra.Command{
		Use:   "add",
		Short: "Write a new prescription",
		Example: `  rxstock prescriptions add --patient "John Doe" --age 35 --gender male \
    --diagnosis "Acute Pharyngitis" --item "Amoxicillin 500mg|1 tablet|8 hourly|7 days"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := prescriptionInputFromFlags(cmd)
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(s *session.Session) error {
				p, err := s.Gateway.CreatePrescription(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writePrescriptions(cmd.OutOrStdout(), []domain.Prescription{p})
			})
		},
	}
	add.Flags().String("patient", "", "patient name")
	add.Flags().Int("age", 0, "patient age")
	add.Flags().String("gender", string(domain.GenderMale), "male, female or other")
	add.Flags().String("diagnosis", "", "diagnosis")
	add.Flags().StringArray("item", nil, `line item as "name|dosage|frequency|duration", repeatable`)
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a prescription completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(s *session.Session) error {
				p, err := s.Gateway.CompletePrescription(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writePrescriptions(cmd.OutOrStdout(), []domain.Prescription{p})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending prescription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(s *session.Session) error {
				p, err := s.Gateway.CancelPrescription(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writePrescriptions(cmd.OutOrStdout(), []domain.Prescription{p})
			})
		},
	})

	return cmd
}

func prescriptionInputFromFlags(cmd *cobra.Command) (domain.PrescriptionInput, error) {
	f := cmd.Flags()
	in := domain.PrescriptionInput{}
	in.PatientName, _ = f.GetString("patient")
	in.PatientAge, _ = f.GetInt("age")
	gender, _ := f.GetString("gender")
	in.PatientGender = domain.Gender(strings.ToLower(gender))
	in.Diagnosis, _ = f.GetString("diagnosis")

	items, _ := f.GetStringArray("item")
	for _, raw := range items {
		item, err := parseLineItem(raw)
		if err != nil {
			return in, err
		}
		in.AddItem(item)
	}
	return in, nil
}

func parseLineItem(raw string) (domain.LineItem, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 4 {
		return domain.LineItem{}, fmt.Errorf("line item %q: want name|dosage|frequency|duration", raw)
	}
	return domain.LineItem{
		Name:      strings.TrimSpace(parts[0]),
		Dosage:    strings.TrimSpace(parts[1]),
		Frequency: strings.TrimSpace(parts[2]),
		Duration:  strings.TrimSpace(parts[3]),
	}, nil
}

func writePrescriptions(w io.Writer, prescriptions []domain.Prescription) error {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tPATIENT\tAGE\tGENDER\tDIAGNOSIS\tSTATUS\tMEDICINES\tCREATED")
	for _, p := range prescriptions {
		names := make([]string, len(p.Items))
		for i, item := range p.Items {
			names[i] = item.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.PatientName, p.PatientAge, p.PatientGender, p.Diagnosis, p.Status,
			strings.Join(names, ", "), p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
