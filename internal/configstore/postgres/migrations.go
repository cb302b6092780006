package postgres

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies every pending migration in migrations/ to dsn,
// using a goose-compatible database/sql connection opened through the
// pgx stdlib driver (goose does not speak pgxpool directly).
func RunMigrations(dsn string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("configstore/postgres: open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configstore/postgres: set goose dialect: %w", err)
	}

	logger.Info("configstore/postgres: applying migrations")
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("configstore/postgres: apply migrations: %w", err)
	}
	return nil
}
