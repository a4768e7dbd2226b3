package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// legacyColumns are columns that databases created before user accounts
// existed may be missing. They are added before the migrations run because
// the migrations index transactions.user_id. Tables created by the
// migrations already have them.
var legacyColumns = []struct {
	table, column, ddl string
}{
	{"transactions", "user_id", "ALTER TABLE transactions ADD COLUMN user_id INTEGER REFERENCES users(id)"},
	{"budgets", "user_id", "ALTER TABLE budgets ADD COLUMN user_id INTEGER REFERENCES users(id)"},
	{"budgets", "created_at", "ALTER TABLE budgets ADD COLUMN created_at TEXT"},
}

// runMigrations applies the embedded migrations on conn. The migrate driver
// is not closed because that would close conn as well.
func runMigrations(conn *sql.DB) error {
	if err := addLegacyColumns(conn); err != nil {
		return err
	}

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// addLegacyColumns adds the missing legacy columns to tables that already
// exist. Missing tables are left to the migrations.
func addLegacyColumns(conn *sql.DB) error {
	for _, c := range legacyColumns {
		cols, err := tableColumns(conn, c.table)
		if err != nil {
			return err
		}
		if len(cols) == 0 || cols[c.column] {
			continue
		}
		if _, err := conn.Exec(c.ddl); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

// tableColumns returns the column names of table, or an empty set when the
// table does not exist.
func tableColumns(conn *sql.DB, table string) (map[string]bool, error) {
	rows, err := conn.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
