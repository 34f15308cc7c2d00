package app

import (
	"context"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate runs goose against the configured database. command is a goose
// verb: up, down, status, version.
func (a *App) Migrate(ctx context.Context, command string, args ...string) error {
	if a.Config.Database.DSN == "" {
		return errors.New("database.dsn is required to migrate")
	}

	db, err := goose.OpenDBWithDriver("pgx", a.Config.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.RunContext(ctx, command, db, a.Config.Database.MigrationsPath, args...)
}
