package db

import (
	"context"
	"database/sql"
)

// Migration represents a single database migration
// Each migration should have a unique ID and an Up function
// that applies the migration.
type Migration struct {
	ID int
	Up func(db *sql.DB) error
}

// migrations is a slice of all migrations to be applied in order.
// Add new migrations to this slice as needed.
//
// Migrations are used to update the database schema or data when
// the application is upgraded. Each migration should have a unique ID
// and will only be applied once.
var migrations = []Migration{
	{
		ID: 1,
		Up: func(db *sql.DB) error {
			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_transactions_kind_date ON transactions(kind, date)",
				"CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category)",
				"CREATE INDEX IF NOT EXISTS idx_transactions_import ON transactions(import_id)",
			}
			for _, index := range indexes {
				if _, err := db.Exec(index); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

// ApplyMigrations applies all pending migrations to the database.
func ApplyMigrations(ctx context.Context, db *sql.DB, logger func(msg string, args ...interface{})) error {
	// Ensure the migrations table exists
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}

	// Apply pending migrations
	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		logger("Applying migration %d", m.ID)
		if err := m.Up(db); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx, `INSERT INTO migrations (id) VALUES (?)`, m.ID)
		if err != nil {
			return err
		}
		logger("Migration %d applied", m.ID)
	}

	return nil
}

// appliedMigrations reads applied IDs and releases the connection before any
// migration runs
func appliedMigrations(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	return applied, rows.Err()
}
