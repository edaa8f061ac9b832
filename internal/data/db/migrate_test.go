package db

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/learnhub-backend/internal/domain"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

func sqliteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "migrate.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newGormLogger(logger.NewNop())})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { closeDB(db) })
	return db
}

func TestAutoMigrateAllCreatesTables(t *testing.T) {
	db := sqliteDB(t)
	if err := AutoMigrateAll(db); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	for _, m := range domain.Models() {
		if !db.Migrator().HasTable(m) {
			t.Fatalf("table for %T missing", m)
		}
	}
}

func TestEnsureBadgePoliciesRejectsBadRoleName(t *testing.T) {
	db := sqliteDB(t)
	for _, role := range []string{"", "app;DROP TABLE course", "1app", "app role"} {
		if err := EnsureBadgePolicies(db, role); err == nil {
			t.Fatalf("role %q: want error", role)
		}
	}
}

func TestServiceSkipsPoliciesWithSingleRole(t *testing.T) {
	db := sqliteDB(t)
	svc := &PostgresService{primary: db, privileged: db, log: logger.NewNop()}
	if svc.SplitRoles() {
		t.Fatalf("one handle must not report split roles")
	}
	// policy DDL is postgres-only; reaching it on sqlite would fail
	if err := svc.AutoMigrateAll(true, "learnhub_app"); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
}
