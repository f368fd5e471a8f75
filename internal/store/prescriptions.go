package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rxstock/m/domain"
)

var prescriptionColumns = []string{"id", "patient_name", "patient_age", "patient_gender", "diagnosis", "status", "created_at", "completed_at"}

type lineItemRow struct {
	PrescriptionID int64 `db:"prescription_id"`
	Position       int   `db:"position"`
	domain.LineItem
}

// ListPrescriptions returns every prescription in id order with its line
// items.
func (r *Repository) ListPrescriptions(ctx context.Context) ([]domain.Prescription, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(prescriptionColumns...).From("prescriptions").OrderBy("id")
	query, args := sb.Build()

	prescriptions := []domain.Prescription{}
	if err := r.db.SelectContext(ctx, &prescriptions, query, args...); err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}
	if err := r.loadItems(ctx, prescriptions); err != nil {
		return nil, err
	}
	return prescriptions, nil
}

func (r *Repository) GetPrescription(ctx context.Context, id int64) (domain.Prescription, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(prescriptionColumns...).From("prescriptions").Where(sb.Equal("id", id))
	query, args := sb.Build()

	var p domain.Prescription
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		return p, fmt.Errorf("getting prescription %d: %w", id, notFound(err))
	}
	list := []domain.Prescription{p}
	if err := r.loadItems(ctx, list); err != nil {
		return p, err
	}
	return list[0], nil
}

func (r *Repository) loadItems(ctx context.Context, prescriptions []domain.Prescription) error {
	if len(prescriptions) == 0 {
		return nil
	}
	ids := make([]int64, len(prescriptions))
	for i, p := range prescriptions {
		ids[i] = p.ID
	}

	query, args, err := sqlx.In(`SELECT prescription_id, position, name, dosage, frequency, duration
                FROM prescription_items
                WHERE prescription_id IN (?)
                ORDER BY prescription_id, position`, ids)
	if err != nil {
		return fmt.Errorf("preparing line item query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []lineItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("loading line items: %w", err)
	}
	byPrescription := make(map[int64][]domain.LineItem)
	for _, row := range rows {
		byPrescription[row.PrescriptionID] = append(byPrescription[row.PrescriptionID], row.LineItem)
	}
	for i := range prescriptions {
		prescriptions[i].Items = byPrescription[prescriptions[i].ID]
		if prescriptions[i].Items == nil {
			prescriptions[i].Items = []domain.LineItem{}
		}
	}
	return nil
}

// CreatePrescription inserts p and its line items in one transaction.
func (r *Repository) CreatePrescription(ctx context.Context, p domain.Prescription) (domain.Prescription, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return p, fmt.Errorf("starting prescription transaction: %w", err)
	}
	defer tx.Rollback()

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto("prescriptions").
		Cols("patient_name", "patient_age", "patient_gender", "diagnosis", "status", "created_at", "completed_at").
		Values(p.PatientName, p.PatientAge, string(p.PatientGender), p.Diagnosis, string(p.Status), p.CreatedAt.UTC(), nullTime(p.CompletedAt))
	id, err := insertReturningID(ctx, tx, ib)
	if err != nil {
		return p, fmt.Errorf("creating prescription: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO prescription_items (prescription_id, position, name, dosage, frequency, duration) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return p, fmt.Errorf("preparing line item insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range p.Items {
		if _, err := stmt.ExecContext(ctx, id, i, item.Name, item.Dosage, item.Frequency, item.Duration); err != nil {
			return p, fmt.Errorf("inserting line item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return p, fmt.Errorf("committing prescription: %w", err)
	}
	return p.WithID(id), nil
}

// UpdatePrescriptionStatus stores the status and completion time of p.
func (r *Repository) UpdatePrescriptionStatus(ctx context.Context, p domain.Prescription) error {
	ub := r.flavor.NewUpdateBuilder()
	ub.Update("prescriptions").Set(
		ub.Assign("status", string(p.Status)),
		ub.Assign("completed_at", nullTime(p.CompletedAt)),
	).Where(ub.Equal("id", p.ID))
	query, args := ub.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	return expectOne(res, err, "updating prescription", p.ID)
}
