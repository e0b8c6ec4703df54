package app

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationLockKey = "easyrent:schema_migrations"

// Migration is one embedded schema file.
type Migration struct {
	Version string
	SQL     string
}

// LoadMigrations returns the embedded migrations in version order.
func LoadMigrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		out = append(out, Migration{Version: version, SQL: string(body)})
	}
	return out, nil
}

// RunMigrations applies every embedded migration that is not yet recorded in
// schema_migrations. Each file runs in its own transaction.
func RunMigrations(ctx context.Context, db repositories.DB) (applied []string, err error) {
	migrations, err := LoadMigrations()
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	if _, err := db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version    TEXT PRIMARY KEY,
            applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		done, err := applyMigration(ctx, db, m)
		if err != nil {
			return applied, fmt.Errorf("migration %s: %w", m.Version, err)
		}
		if done {
			utils.Logger.Infof("Applied migration %s", m.Version)
			applied = append(applied, m.Version)
		}
	}
	return applied, nil
}

func applyMigration(ctx context.Context, db repositories.DB, m Migration) (applied bool, err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Serializes concurrent replicas starting at the same time.
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, migrationLockKey); err != nil {
		return false, err
	}

	var exists bool
	if err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version=$1)`, m.Version,
	).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, tx.Rollback(ctx)
	}

	if _, err = tx.Exec(ctx, m.SQL); err != nil {
		return false, err
	}
	if _, err = tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
