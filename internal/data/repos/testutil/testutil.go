package testutil

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/yungbote/learnhub-backend/internal/domain"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a migrated, file-backed sqlite database private to tb.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), fmt.Sprintf("learnhub_%s.db", uuid.NewString()))
	db := open(tb, "file:"+path+"?_busy_timeout=5000")
	if err := db.AutoMigrate(types.Models()...); err != nil {
		tb.Fatalf("automigrate: %v", err)
	}
	return db
}

// Peer opens a second handle on the same database file as db. Callbacks
// registered on the peer do not affect db, which lets tests model a
// policy-enforced primary next to a privileged handle.
func Peer(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	d, ok := db.Dialector.(*sqlite.Dialector)
	if !ok {
		tb.Fatalf("peer: unsupported dialector %T", db.Dialector)
	}
	return open(tb, d.DSN)
}

func open(tb testing.TB, dsn string) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError:                           true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
