package postgres

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// applicationName identifies planner connections in pg_stat_activity
const applicationName = "shift-planner"

// migrationLockID is the advisory lock held while migrating, so that a server
// and a CLI run starting together do not apply the same migration twice
const migrationLockID int64 = 0x5348494654

var migrationName = regexp.MustCompile(`^(\d+)_[a-z0-9_]+\.sql$`)

// DB provides database operations using PostgreSQL
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL database connection
func NewDB(ctx context.Context, connString string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Migration is one embedded schema change
type Migration struct {
	// Version is the numeric file prefix, e.g. "001"
	Version  string
	Filename string
	SQL      string

	// Checksum is the hex SHA-256 of SQL
	Checksum string
}

// loadMigrations reads the migration files in version order
func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	versions := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		match := migrationName.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("migration %s is not named NNN_description.sql", entry.Name())
		}
		if other, dup := versions[match[1]]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %s", other, entry.Name(), match[1])
		}
		versions[match[1]] = entry.Name()

		content, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:  match[1],
			Filename: entry.Name(),
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})
	return migrations, nil
}

// pendingMigrations returns the migrations not yet applied. An applied migration
// whose file changed, or which this build does not know, is an error.
func pendingMigrations(all []Migration, applied map[string]string) ([]Migration, error) {
	known := make(map[string]bool, len(all))
	var pending []Migration

	for _, m := range all {
		known[m.Version] = true
		checksum, ok := applied[m.Version]
		switch {
		case !ok:
			pending = append(pending, m)
		case checksum != m.Checksum:
			return nil, fmt.Errorf("migration %s was changed after it was applied (checksum %s, recorded %s)",
				m.Filename, m.Checksum[:12], shortChecksum(checksum))
		}
	}

	for version := range applied {
		if !known[version] {
			return nil, fmt.Errorf("database has migration %s applied, which this build does not know", version)
		}
	}

	return pending, nil
}

func shortChecksum(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

// RunMigrations executes all pending SQL migration files in version order.
// Applied migrations are tracked with their checksum in schema_migrations.
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([2]string, error) {
		var rec [2]string
		err := row.Scan(&rec[0], &rec[1])
		return rec, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan applied migrations: %w", err)
	}
	checksums := make(map[string]string, len(applied))
	for _, rec := range applied {
		checksums[rec[0]] = rec[1]
	}

	pending, err := pendingMigrations(migrations, checksums)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := applyMigration(ctx, conn.Conn(), m); err != nil {
			return err
		}
	}

	return nil
}

// applyMigration runs one migration and records it in the same transaction
func applyMigration(ctx context.Context, conn *pgx.Conn, m Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.Filename, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.Filename, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)`,
		m.Version, m.Filename, m.Checksum)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Filename, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.Filename, err)
	}
	return nil
}
