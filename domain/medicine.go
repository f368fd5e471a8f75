package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the quantity below which a medicine is shown as low stock.
const LowStockThreshold = 20

// PriceScale is the number of decimal places a price is stored with.
const PriceScale = 2

// DateLayout is the wire and storage format of expiry dates.
const DateLayout = "2006-01-02"

// Stock levels derived from quantity.
const (
	StockLow = "low"
	StockOK  = "ok"
)

type Medicine struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	Price        decimal.Decimal `db:"price" json:"price"`
	ExpiryDate   string          `db:"expiry_date" json:"expiry_date"`
	Manufacturer string          `db:"manufacturer" json:"manufacturer"`
	Category     string          `db:"category" json:"category"`
}

func (m Medicine) GetID() int64 { return m.ID }

func (m Medicine) WithID(id int64) Medicine {
	m.ID = id
	return m
}

// LowStock reports whether the quantity is under LowStockThreshold.
func (m Medicine) LowStock() bool {
	return m.Quantity < LowStockThreshold
}

func (m Medicine) StockLevel() string {
	if m.LowStock() {
		return StockLow
	}
	return StockOK
}

// Expiry parses ExpiryDate as a UTC calendar date.
func (m Medicine) Expiry() (time.Time, error) {
	return time.Parse(DateLayout, m.ExpiryDate)
}

// DaysUntilExpiry returns the number of calendar days from now's date to the
// expiry date. Negative values mean the medicine has already expired. The
// second result is false when the expiry date cannot be parsed.
func (m Medicine) DaysUntilExpiry(now time.Time) (int, bool) {
	expiry, err := m.Expiry()
	if err != nil {
		return 0, false
	}
	y, mo, d := now.Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return int(expiry.Sub(today).Hours() / 24), true
}

// ExpiresWithin reports whether the medicine expires within days of now,
// including medicines that have already expired.
func (m Medicine) ExpiresWithin(now time.Time, days int) bool {
	left, ok := m.DaysUntilExpiry(now)
	return ok && left <= days
}

func (m Medicine) SearchFields() []string {
	return []string{m.Name, m.Description}
}

func (m Medicine) FilterValue(dimension string) (string, bool) {
	switch dimension {
	case "category":
		return m.Category, true
	case "manufacturer":
		return m.Manufacturer, true
	case "stock":
		return m.StockLevel(), true
	}
	return "", false
}

// MedicineInput is the create and update payload for a medicine. Quantity
// and Price are pointers so that an omitted value can be told apart from zero.
type MedicineInput struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Quantity     *int64           `json:"quantity"`
	Price        *decimal.Decimal `json:"price"`
	ExpiryDate   string           `json:"expiry_date"`
	Manufacturer string           `json:"manufacturer"`
	Category     string           `json:"category"`
}

// Validate checks that every required field is present and well formed.
func (in MedicineInput) Validate() error {
	var v validation
	if strings.TrimSpace(in.Name) == "" {
		v.missing("name")
	}
	if strings.TrimSpace(in.Manufacturer) == "" {
		v.missing("manufacturer")
	}
	switch {
	case in.Quantity == nil:
		v.missing("quantity")
	case *in.Quantity < 0:
		v.invalid("quantity", "must not be negative")
	}
	switch {
	case in.Price == nil:
		v.missing("price")
	case in.Price.IsNegative():
		v.invalid("price", "must not be negative")
	case !in.Price.Equal(in.Price.Round(PriceScale)):
		v.invalid("price", "must have at most two decimal places")
	}
	switch {
	case strings.TrimSpace(in.ExpiryDate) == "":
		v.missing("expiry_date")
	default:
		if _, err := time.Parse(DateLayout, strings.TrimSpace(in.ExpiryDate)); err != nil {
			v.invalid("expiry_date", "must be a YYYY-MM-DD date")
		}
	}
	return v.err()
}

// Medicine builds the record described by a validated input. The ID is left
// for the store or the collaborator to assign.
func (in MedicineInput) Medicine() Medicine {
	m := Medicine{
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		ExpiryDate:   strings.TrimSpace(in.ExpiryDate),
		Manufacturer: strings.TrimSpace(in.Manufacturer),
		Category:     strings.TrimSpace(in.Category),
	}
	if in.Quantity != nil {
		m.Quantity = *in.Quantity
	}
	if in.Price != nil {
		m.Price = *in.Price
	}
	return m
}

// Input returns the payload that would recreate m.
func (m Medicine) Input() MedicineInput {
	qty, price := m.Quantity, m.Price
	return MedicineInput{
		Name:         m.Name,
		Description:  m.Description,
		Quantity:     &qty,
		Price:        &price,
		ExpiryDate:   m.ExpiryDate,
		Manufacturer: m.Manufacturer,
		Category:     m.Category,
	}
}
