package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DefaultSQLiteDSN is used when no DSN is configured for the sqlite driver.
const DefaultSQLiteDSN = "ebillmanager.db"

//go:embed migrations
var embedMigrations embed.FS

// target is where a storage driver's schema lives and how to reach it.
type target struct {
	dialect   string
	dir       string
	sqlDriver string
	dsn       string
}

func resolve(driver, dsn string) (target, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		if dsn == "" {
			dsn = DefaultSQLiteDSN
		}
		return target{dialect: "sqlite3", dir: "migrations/sqlite", sqlDriver: "sqlite", dsn: dsn}, nil
	case "postgres", "pgx", "postgrespool":
		if dsn == "" {
			return target{}, fmt.Errorf("postgres migrations need a DSN")
		}
		return target{dialect: "postgres", dir: "migrations/postgres", sqlDriver: "pgx", dsn: dsn}, nil
	default:
		return target{}, fmt.Errorf("unsupported driver for goose: %s", driver)
	}
}

func run(driver, dsn string, fn func(db *sql.DB, dir string) error) error {
	t, err := resolve(driver, dsn)
	if err != nil {
		return err
	}
	goose.SetBaseFS(embedMigrations)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect(t.dialect); err != nil {
		return err
	}

	db, err := sql.Open(t.sqlDriver, t.dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.sqlDriver, err)
	}
	defer db.Close()
	return fn(db, t.dir)
}

// Up applies every pending migration for the driver's dialect.
func Up(ctx context.Context, driver, dsn string) error {
	return run(driver, dsn, func(db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, driver, dsn string) error {
	return run(driver, dsn, func(db *sql.DB, dir string) error {
		return goose.DownContext(ctx, db, dir)
	})
}

// Status logs the applied or pending state of each migration.
func Status(ctx context.Context, driver, dsn string) error {
	return run(driver, dsn, func(db *sql.DB, dir string) error {
		return goose.StatusContext(ctx, db, dir)
	})
}
