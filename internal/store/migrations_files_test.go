package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var migrationsDir = filepath.Join("..", "..", "db", "migrations")

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, direction := match[1], match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		if byVersion[version][direction] {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		byVersion[version][direction] = true
	}

	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}
	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

func TestSubmissionImmutabilityMigrationUsesBlockingTriggers(t *testing.T) {
	sqlBytes, err := os.ReadFile(filepath.Join(migrationsDir, "0002_contact_submissions_immutability.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)

	for _, snippet := range []string{
		"contact_submissions_immutable_guard",
		"RAISE EXCEPTION",
		"ERRCODE = '55000'",
		"CREATE TRIGGER trg_contact_submissions_block_update",
		"CREATE TRIGGER trg_contact_submissions_block_delete",
	} {
		if !strings.Contains(sqlText, snippet) {
			t.Fatalf("expected migration to contain %q", snippet)
		}
	}
	if strings.Contains(sqlText, "DO INSTEAD NOTHING") {
		t.Fatal("expected hard-fail immutability guard, found silent DO INSTEAD NOTHING rule")
	}
}

func TestPendingMigrationsAreOrderedUpFiles(t *testing.T) {
	files, err := PendingMigrations(migrationsDir)
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	want := []string{
		"0001_contact_submissions.up.sql",
		"0002_contact_submissions_immutability.up.sql",
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Fatalf("PendingMigrations() = %v, want %v", files, want)
	}
}
