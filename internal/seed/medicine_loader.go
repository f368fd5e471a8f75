package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rxstock/m/domain"
)

// Columns: name, description, quantity, price, expiry_date, manufacturer, category.
const csvColumns = 7

// LoadMedicines ingests the CSV catalog into an empty medicines table and
// returns how many rows it inserted. A table that already holds medicines is
// left alone.
func LoadMedicines(ctx context.Context, db *sqlx.DB, csvPath string, log zerolog.Logger) (int, error) {
	var existing int
	if err := db.GetContext(ctx, &existing, `SELECT COUNT(*) FROM medicines`); err != nil {
		return 0, fmt.Errorf("counting medicines: %w", err)
	}
	if existing > 0 {
		log.Debug().Int("existing", existing).Msg("medicine catalog already seeded")
		return 0, nil
	}

	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("unable to load medicine catalog %s: %w", csvPath, err)
	}
	defer file.Close()

	return loadMedicines(ctx, db, file, log)
}

func loadMedicines(ctx context.Context, db *sqlx.DB, r io.Reader, log zerolog.Logger) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("unable to read medicine header: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("unable to start medicine transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO medicines (name, description, quantity, price, expiry_date, manufacturer, category) VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("unable to prepare medicine insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("unable to read medicine row")
			continue
		}
		m, err := parseRow(record)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping medicine row")
			continue
		}

		if _, err := stmt.ExecContext(ctx, m.Name, m.Description, m.Quantity, m.Price.String(), m.ExpiryDate, m.Manufacturer, m.Category); err != nil {
			return 0, fmt.Errorf("unable to insert medicine %s: %w", m.Name, err)
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("unable to commit medicine seed: %w", err)
	}
	log.Info().Int("rows", rows).Msg("seeded medicine catalog")
	return rows, nil
}

func parseRow(record []string) (domain.Medicine, error) {
	if len(record) < csvColumns {
		return domain.Medicine{}, fmt.Errorf("expected %d columns, got %d", csvColumns, len(record))
	}
	in := domain.MedicineInput{
		Name:         record[0],
		Description:  record[1],
		ExpiryDate:   record[4],
		Manufacturer: record[5],
		Category:     record[6],
	}
	if qty, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64); err == nil {
		in.Quantity = &qty
	}
	if price, err := decimal.NewFromString(strings.TrimSpace(record[3])); err == nil {
		in.Price = &price
	}
	if err := in.Validate(); err != nil {
		return domain.Medicine{}, err
	}
	return in.Medicine(), nil
}
