package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DefaultMigrations returns the migration units shipped with the binary.
func DefaultMigrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// The embedded tree always contains migrations/.
		panic(err)
	}
	return sub
}

// DBTX is the subset of pgx connection behavior the migrator needs. Both
// *pgx.Conn and *pgxpool.Pool satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Migrator brings a database up to the expected schema version. It discovers
// migration units from a directory listing of "<version>_<name>.sql" files,
// applies pending units in ascending version order and records each applied
// unit in the schema_version table. Re-running is safe: already-applied
// versions are skipped.
//
// The migrator is meant to run once at process startup, single-threaded, on a
// single connection, before any memory traffic. Concurrent runs from multiple
// instances are not coordinated.
type Migrator struct {
	db   DBTX
	fsys fs.FS
	log  *logrus.Logger
}

// NewMigrator creates a migrator over an open connection and a migration
// unit filesystem.
func NewMigrator(db DBTX, fsys fs.FS, log *logrus.Logger) *Migrator {
	return &Migrator{
		db:   db,
		fsys: fsys,
		log:  log,
	}
}

type migrationUnit struct {
	version  int
	name     string
	filename string
}

// Run executes all pending migration units. A SQL error while applying a unit
// aborts the whole run and is fatal to startup. A unit's script and its
// schema_version insert are separate statements, so a partially applied unit
// can leave schema changes that schema_version does not reflect.
func (m *Migrator) Run(ctx context.Context) error {
	m.log.Info("Starting database schema migration")

	_, err := m.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_version table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	units, err := m.discoverUnits()
	if err != nil {
		return err
	}

	pending := 0
	for _, unit := range units {
		if _, ok := applied[unit.version]; ok {
			continue
		}

		body, err := fs.ReadFile(m.fsys, unit.filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", unit.filename, err)
		}

		if _, err := m.db.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", unit.version, unit.name, err)
		}

		_, err = m.db.Exec(ctx,
			"INSERT INTO schema_version (version, name) VALUES ($1, $2)",
			unit.version, unit.name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", unit.version, err)
		}

		applied[unit.version] = struct{}{}
		pending++
		m.log.WithFields(logrus.Fields{
			"version": unit.version,
			"name":    unit.name,
		}).Info("Migration applied")
	}

	m.log.WithField("applied", pending).Info("Database schema migration completed")
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]struct{}, error) {
	rows, err := m.db.Query(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]struct{})
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return applied, nil
}

// discoverUnits lists migration unit files and orders them ascending by
// version. Files whose name does not start with an integer version prefix are
// skipped with a warning, not fatal.
func (m *Migrator) discoverUnits() ([]migrationUnit, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var units []migrationUnit
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, ok := parseVersion(entry.Name())
		if !ok {
			m.log.WithField("file", entry.Name()).Warn("Skipping migration file without version prefix")
			continue
		}

		units = append(units, migrationUnit{
			version:  version,
			name:     strings.TrimSuffix(entry.Name(), ".sql"),
			filename: entry.Name(),
		})
	}

	sort.Slice(units, func(i, j int) bool { return units[i].version < units[j].version })
	return units, nil
}

// parseVersion extracts the positive integer version from the filename prefix
// before the first underscore.
func parseVersion(filename string) (int, bool) {
	prefix, _, found := strings.Cut(filename, "_")
	if !found {
		return 0, false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, false
	}
	return version, true
}
