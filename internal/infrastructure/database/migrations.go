package database

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"academic-scheduler/migrations"
	"academic-scheduler/pkg/logger"

	"gorm.io/gorm"
)

// migrationLockID serializes schema changes between replicas starting together.
const migrationLockID = 727_310_001

// ErrMigrationChanged is returned when an applied migration file was edited afterwards.
var ErrMigrationChanged = errors.New("applied migration was modified")

type Migration struct {
	ID          string
	Description string
	SQL         string
	Checksum    string
	AppliedAt   *time.Time
}

type MigrationRunner struct {
	db     *gorm.DB
	source fs.FS
}

// NewMigrationRunner reads migrations from dir, or from the copies embedded in the
// binary when dir is empty or missing.
func NewMigrationRunner(db *gorm.DB, dir string) *MigrationRunner {
	return &MigrationRunner{db: db, source: migrationSource(dir)}
}

// NewMigrationRunnerFS reads migrations from the root of source.
func NewMigrationRunnerFS(db *gorm.DB, source fs.FS) *MigrationRunner {
	return &MigrationRunner{db: db, source: source}
}

func migrationSource(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
		logger.Warn("Migrations directory %s not found, using embedded migrations", dir)
	}
	return migrations.FS
}

func (mr *MigrationRunner) createMigrationsTable(tx *gorm.DB) error {
	return tx.Exec(`
	CREATE EXTENSION IF NOT EXISTS pgcrypto;
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id VARCHAR(255) PRIMARY KEY,
		description TEXT NOT NULL,
		checksum VARCHAR(64) NOT NULL DEFAULT '',
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	ALTER TABLE schema_migrations ADD COLUMN IF NOT EXISTS checksum VARCHAR(64) NOT NULL DEFAULT '';`).Error
}

type appliedMigration struct {
	ID        string
	Checksum  string
	AppliedAt time.Time
}

func (mr *MigrationRunner) appliedMigrations(tx *gorm.DB) (map[string]appliedMigration, error) {
	var rows []appliedMigration
	if err := tx.Raw("SELECT id, checksum, applied_at FROM schema_migrations ORDER BY id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	applied := make(map[string]appliedMigration, len(rows))
	for _, row := range rows {
		applied[row.ID] = row
	}
	return applied, nil
}

// loadMigrations returns every *.sql file at the root of the source, ordered by id.
func (mr *MigrationRunner) loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(mr.source, ".")
	if err != nil {
		return nil, err
	}

	var list []Migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		migration, err := mr.readMigrationFile(entry.Name())
		if err != nil {
			return nil, err
		}
		if other, ok := seen[migration.ID]; ok {
			return nil, fmt.Errorf("migrations %s and %s share id %s", other, entry.Name(), migration.ID)
		}
		seen[migration.ID] = entry.Name()
		list = append(list, *migration)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (mr *MigrationRunner) readMigrationFile(name string) (*Migration, error) {
	content, err := fs.ReadFile(mr.source, name)
	if err != nil {
		return nil, err
	}

	filename := path.Base(name)
	id, rest, ok := strings.Cut(filename, "_")
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid migration filename format: %s", filename)
	}
	if strings.TrimLeft(id, "0123456789") != "" {
		return nil, fmt.Errorf("migration id must be numeric: %s", filename)
	}

	sum := sha256.Sum256(content)
	return &Migration{
		ID:          id,
		Description: strings.ReplaceAll(strings.TrimSuffix(rest, ".sql"), "_", " "),
		SQL:         string(content),
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// RunMigrations applies pending migrations in one transaction under an advisory lock.
// An applied migration whose file changed aborts the run with ErrMigrationChanged.
func (mr *MigrationRunner) RunMigrations() error {
	pending, err := mr.loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	applied := 0
	err = mr.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockID).Error; err != nil {
			return fmt.Errorf("failed to lock migrations: %w", err)
		}
		if err := mr.createMigrationsTable(tx); err != nil {
			return fmt.Errorf("failed to create migrations table: %w", err)
		}

		done, err := mr.appliedMigrations(tx)
		if err != nil {
			return fmt.Errorf("failed to get applied migrations: %w", err)
		}

		for _, migration := range pending {
			if prior, ok := done[migration.ID]; ok {
				if prior.Checksum != "" && prior.Checksum != migration.Checksum {
					return fmt.Errorf("migration %s: %w", migration.ID, ErrMigrationChanged)
				}
				continue
			}

			if err := tx.Exec(migration.SQL).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", migration.ID, err)
			}
			if err := tx.Exec("INSERT INTO schema_migrations (id, description, checksum) VALUES (?, ?, ?)",
				migration.ID, migration.Description, migration.Checksum).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", migration.ID, err)
			}

			logger.WithField("migration", migration.ID).Info("Applied migration: " + migration.Description)
			applied++
		}
		return nil
	})
	if err != nil {
		return err
	}

	if applied == 0 {
		logger.Info("No pending migrations to apply")
	} else {
		logger.Info("Successfully applied %d migrations", applied)
	}
	return nil
}

// GetMigrationStatus lists every known migration with its applied time, if any.
func (mr *MigrationRunner) GetMigrationStatus() ([]Migration, error) {
	list, err := mr.loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := mr.createMigrationsTable(mr.db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	done, err := mr.appliedMigrations(mr.db)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for i := range list {
		if prior, ok := done[list[i].ID]; ok {
			appliedAt := prior.AppliedAt
			list[i].AppliedAt = &appliedAt
		}
	}
	return list, nil
}
