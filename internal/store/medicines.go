package store

import (
	"context"
	"fmt"

	"rxstock/m/domain"
)

var medicineColumns = []string{"id", "name", "description", "quantity", "price", "expiry_date", "manufacturer", "category"}

// ListMedicines returns every medicine in id order.
func (r *Repository) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(medicineColumns...).From("medicines").OrderBy("id")
	query, args := sb.Build()

	medicines := []domain.Medicine{}
	if err := r.db.SelectContext(ctx, &medicines, query, args...); err != nil {
		return nil, fmt.Errorf("listing medicines: %w", err)
	}
	return medicines, nil
}

func (r *Repository) GetMedicine(ctx context.Context, id int64) (domain.Medicine, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(medicineColumns...).From("medicines").Where(sb.Equal("id", id))
	query, args := sb.Build()

	var m domain.Medicine
	if err := r.db.GetContext(ctx, &m, query, args...); err != nil {
		return m, fmt.Errorf("getting medicine %d: %w", id, notFound(err))
	}
	return m, nil
}

// CreateMedicine inserts m and returns it with the assigned id.
func (r *Repository) CreateMedicine(ctx context.Context, m domain.Medicine) (domain.Medicine, error) {
	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto("medicines").
		Cols("name", "description", "quantity", "price", "expiry_date", "manufacturer", "category").
		Values(m.Name, m.Description, m.Quantity, m.Price.String(), m.ExpiryDate, m.Manufacturer, m.Category)

	id, err := insertReturningID(ctx, r.db, ib)
	if err != nil {
		return m, fmt.Errorf("creating medicine: %w", err)
	}
	return m.WithID(id), nil
}

// UpdateMedicine replaces every field of the stored medicine with m.
func (r *Repository) UpdateMedicine(ctx context.Context, m domain.Medicine) error {
	ub := r.flavor.NewUpdateBuilder()
	ub.Update("medicines").Set(
		ub.Assign("name", m.Name),
		ub.Assign("description", m.Description),
		ub.Assign("quantity", m.Quantity),
		ub.Assign("price", m.Price.String()),
		ub.Assign("expiry_date", m.ExpiryDate),
		ub.Assign("manufacturer", m.Manufacturer),
		ub.Assign("category", m.Category),
	).Where(ub.Equal("id", m.ID))
	query, args := ub.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	return expectOne(res, err, "updating medicine", m.ID)
}

func (r *Repository) DeleteMedicine(ctx context.Context, id int64) error {
	db := r.flavor.NewDeleteBuilder()
	db.DeleteFrom("medicines").Where(db.Equal("id", id))
	query, args := db.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	return expectOne(res, err, "deleting medicine", id)
}
