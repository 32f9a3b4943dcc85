package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mashael7430-ux/MPADCS/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestMigrationsContainConstraints(t *testing.T) {
	cases := []struct {
		glob   string
		checks []string
	}{
		{
			glob: "*_create_medications.sql",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS medications",
				"CHECK (current_stock >= 0)",
				"CREATE UNIQUE INDEX IF NOT EXISTS ux_medications_ref_number",
				"DROP TABLE IF EXISTS medications",
			},
		},
		{
			glob: "*_create_administration_log.sql",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS administration_log",
				"FOREIGN KEY (medication_id) REFERENCES medications(id)",
				"CHECK (quantity_given > 0)",
			},
		},
		{
			glob: "*_create_supply_requests.sql",
			checks: []string{
				"CREATE UNIQUE INDEX IF NOT EXISTS ux_supply_requests_reference",
				"fulfilled_by <> requested_by",
				"FOREIGN KEY (request_id) REFERENCES supply_requests(id) ON DELETE CASCADE",
			},
		},
		{
			glob: "*_create_disposal_records.sql",
			checks: []string{
				"CREATE UNIQUE INDEX IF NOT EXISTS ux_disposal_records_reference",
				"approved_by <> initiated_by",
				"applied_quantity <= quantity",
			},
		},
		{
			glob: "*_create_staff.sql",
			checks: []string{
				"CREATE UNIQUE INDEX IF NOT EXISTS ux_staff_staff_number",
			},
		},
		{
			glob: "*_create_outbox.sql",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS outbox_events",
				"CREATE TABLE IF NOT EXISTS outbox_dlq",
				"WHERE published_at IS NULL",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.glob, func(t *testing.T) {
			matches, err := filepath.Glob(filepath.Join("migrations", tc.glob))
			if err != nil {
				t.Fatalf("glob migrations: %v", err)
			}
			if len(matches) != 1 {
				t.Fatalf("expected one migration for %s, found %d", tc.glob, len(matches))
			}
			data, err := os.ReadFile(matches[0])
			if err != nil {
				t.Fatalf("read migration file: %v", err)
			}
			content := string(data)
			for _, sub := range tc.checks {
				if !strings.Contains(content, sub) {
					t.Errorf("missing expected statement %q", sub)
				}
			}
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Ward Column!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_ward_column.sql") {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}

	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected error for name that sanitizes to empty")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestValidateDirRequiresDownSection(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "20260101000000_init.sql")
	if err := os.WriteFile(name, []byte("-- +goose Up\nSELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected missing down section error")
	}
}
