package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMigrationRunner_LoadsFilesInOrder(t *testing.T) {
	source := fstest.MapFS{
		"002_add_makeup_tables.sql":  {Data: []byte("SELECT 2;")},
		"001_create_core_schema.sql": {Data: []byte("SELECT 1;")},
		"README.md":                  {Data: []byte("not a migration")},
		"archive/000_old.sql":        {Data: []byte("SELECT 0;")},
	}

	list, err := NewMigrationRunnerFS(nil, source).loadMigrations()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 migrations, got %d", len(list))
	}

	first := list[0]
	if first.ID != "001" {
		t.Errorf("Expected first migration 001, got %s", first.ID)
	}
	if first.Description != "create core schema" {
		t.Errorf("Expected description 'create core schema', got '%s'", first.Description)
	}
	if first.SQL != "SELECT 1;" {
		t.Errorf("Unexpected SQL %q", first.SQL)
	}
	if len(first.Checksum) != 64 || first.Checksum == list[1].Checksum {
		t.Errorf("Expected distinct sha256 checksums, got %q and %q", first.Checksum, list[1].Checksum)
	}
}

func TestMigrationRunner_RejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"no id prefix":   {"schema.sql": {Data: []byte("SELECT 1;")}},
		"non-numeric id": {"abc_schema.sql": {Data: []byte("SELECT 1;")}},
		"duplicate id": {
			"001_a.sql": {Data: []byte("SELECT 1;")},
			"001_b.sql": {Data: []byte("SELECT 2;")},
		},
	}

	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewMigrationRunnerFS(nil, source).loadMigrations(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestMigrationRunner_EmbeddedFallback(t *testing.T) {
	runner := NewMigrationRunner(nil, filepath.Join(t.TempDir(), "missing"))
	list, err := runner.loadMigrations()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(list) == 0 || list[0].ID != "001" {
		t.Fatalf("Expected the embedded migrations starting at 001, got %+v", list)
	}
}

func TestErrorClassification(t *testing.T) {
	serialization := fmtWrap(&pgconn.PgError{Code: "40001"})
	unique := fmtWrap(&pgconn.PgError{Code: "23505"})
	other := errors.New("boom")

	if !IsRetryable(serialization) {
		t.Error("Expected serialization failure to be retryable")
	}
	if IsRetryable(unique) || IsRetryable(other) {
		t.Error("Expected only serialization failures to be retryable")
	}
	if !IsUniqueViolation(unique) {
		t.Error("Expected unique violation to be detected")
	}
	if IsUniqueViolation(serialization) {
		t.Error("Expected serialization failure not to be a unique violation")
	}
}

func fmtWrap(err error) error {
	return fmt.Errorf("commit: %w", err)
}
