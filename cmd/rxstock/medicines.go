package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"rxstock/m/domain"
	"rxstock/m/internal/session"
)

var medicineDimensions = []string{"category", "manufacturer", "stock"}

func medicinesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "medicines",
		Aliases: []string{"inventory"},
		Short:   "List and manage medicines",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List medicines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *session.Session) error {
				s.MedicineView.SetQuery(queryFromFlags(cmd, medicineDimensions...))
				return writeMedicines(cmd.OutOrStdout(), s.MedicineView.Results())
			})
		},
	}
	listFlags(list, medicineDimensions...)
	cmd.AddCommand(list)

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a medicine",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := medicineInputFromFlags(cmd, domain.MedicineInput{})
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(s *session.Session) error {
				m, err := s.Gateway.CreateMedicine(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writeMedicines(cmd.OutOrStdout(), []domain.Medicine{m})
			})
		},
	}
	medicineFlags(add)
	cmd.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(s *session.Session) error {
				current, err := s.Medicines.Get(id)
				if err != nil {
					return fmt.Errorf("medicine %d: %w", id, err)
				}
				in, err := medicineInputFromFlags(cmd, current.Input())
				if err != nil {
					return err
				}
				m, err := s.Gateway.UpdateMedicine(cmd.Context(), id, in)
				if err != nil {
					return err
				}
				return writeMedicines(cmd.OutOrStdout(), []domain.Medicine{m})
			})
		},
	}
	medicineFlags(update)
	cmd.AddCommand(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a medicine after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			return a.withSession(cmd, func(s *session.Session) error {
				err := s.Gateway.DeleteMedicine(cmd.Context(), id, promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout(), yes))
				if errors.Is(err, domain.ErrNotConfirmed) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
				return err
			})
		},
	}
	del.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	cmd.AddCommand(del)

	return cmd
}

func medicineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "medicine name")
	f.String("description", "", "description")
	f.Int64("quantity", 0, "units in stock")
	f.String("price", "", "unit price, e.g. 12.50")
	f.String("expiry", "", "expiry date (YYYY-MM-DD)")
	f.String("manufacturer", "", "manufacturer")
	f.String("category", "", "category")
}

// medicineInputFromFlags overlays the flags the user set onto base.
func medicineInputFromFlags(cmd *cobra.Command, base domain.MedicineInput) (domain.MedicineInput, error) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("name", &base.Name)
	str("description", &base.Description)
	str("expiry", &base.ExpiryDate)
	str("manufacturer", &base.Manufacturer)
	str("category", &base.Category)
	if f.Changed("quantity") {
		qty, _ := f.GetInt64("quantity")
		base.Quantity = &qty
	}
	if f.Changed("price") {
		raw, _ := f.GetString("price")
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return base, fmt.Errorf("invalid price %q: %w", raw, err)
		}
		base.Price = &price
	}
	return base, nil
}

func writeMedicines(w io.Writer, medicines []domain.Medicine) error {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tMANUFACTURER\tQTY\tSTOCK\tPRICE\tEXPIRES")
	for _, m := range medicines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			m.ID, m.Name, m.Category, m.Manufacturer, m.Quantity, m.StockLevel(), m.Price.StringFixed(2), m.ExpiryDate)
	}
	return tw.Flush()
}
