package internal

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func setupGoose() error {
	goose.SetBaseFS(migrations)
	return goose.SetDialect("postgres")
}

// RunMigrations applies every pending migration.
func RunMigrations(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.Up(db, migrationsDir)
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.Down(db, migrationsDir)
}

// MigrationVersion returns the version of the newest applied migration.
func MigrationVersion(db *sql.DB) (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	return v, nil
}
