package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the pharmacy schema for the database's driver.
func Run(ctx context.Context, db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "pgx" {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// INTEGER PRIMARY KEY without AUTOINCREMENT hands out max(id)+1.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            price TEXT NOT NULL,
            expiry_date TEXT NOT NULL,
            manufacturer TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT ''
        );`,
	`CREATE TABLE IF NOT EXISTS alerts (
            id INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('stock', 'expiry', 'restock')),
            priority TEXT NOT NULL CHECK (priority IN ('high', 'medium', 'low')),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'resolved')),
            item_id INTEGER NOT NULL DEFAULT 0,
            item_name TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            resolved_at DATETIME
        );`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_item_type ON alerts(item_id, type);`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
            id INTEGER PRIMARY KEY,
            patient_name TEXT NOT NULL,
            patient_age INTEGER NOT NULL CHECK (patient_age > 0),
            patient_gender TEXT NOT NULL CHECK (patient_gender IN ('male', 'female', 'other')),
            diagnosis TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'cancelled')),
            created_at DATETIME NOT NULL,
            completed_at DATETIME
        );`,
	`CREATE TABLE IF NOT EXISTS prescription_items (
            prescription_id INTEGER NOT NULL,
            position INTEGER NOT NULL,
            name TEXT NOT NULL,
            dosage TEXT NOT NULL,
            frequency TEXT NOT NULL,
            duration TEXT NOT NULL,
            PRIMARY KEY (prescription_id, position),
            FOREIGN KEY(prescription_id) REFERENCES prescriptions(id) ON DELETE CASCADE
        );`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS medicines (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            quantity BIGINT NOT NULL CHECK (quantity >= 0),
            price NUMERIC(12, 2) NOT NULL,
            expiry_date TEXT NOT NULL,
            manufacturer TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT ''
        );`,
	`CREATE TABLE IF NOT EXISTS alerts (
            id BIGSERIAL PRIMARY KEY,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('stock', 'expiry', 'restock')),
            priority TEXT NOT NULL CHECK (priority IN ('high', 'medium', 'low')),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'resolved')),
            item_id BIGINT NOT NULL DEFAULT 0,
            item_name TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            resolved_at TIMESTAMPTZ
        );`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_item_type ON alerts(item_id, type);`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
            id BIGSERIAL PRIMARY KEY,
            patient_name TEXT NOT NULL,
            patient_age INTEGER NOT NULL CHECK (patient_age > 0),
            patient_gender TEXT NOT NULL CHECK (patient_gender IN ('male', 'female', 'other')),
            diagnosis TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'cancelled')),
            created_at TIMESTAMPTZ NOT NULL,
            completed_at TIMESTAMPTZ
        );`,
	`CREATE TABLE IF NOT EXISTS prescription_items (
            prescription_id BIGINT NOT NULL REFERENCES prescriptions(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            name TEXT NOT NULL,
            dosage TEXT NOT NULL,
            frequency TEXT NOT NULL,
            duration TEXT NOT NULL,
            PRIMARY KEY (prescription_id, position)
        );`,
}
