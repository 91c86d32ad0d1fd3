// Package dbtest opens throwaway migrated databases for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/ran-crm/crm/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns an in-memory sqlite database with foreign keys on. It also
// points db.DB at it for the duration of the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())

	config := db.Config()
	config.Logger = logger.Default.LogMode(logger.Silent)

	gdb, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// a single connection keeps the shared in-memory database alive
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	previous := db.DB
	db.DB = gdb

	t.Cleanup(func() {
		db.DB = previous
		_ = sqlDB.Close()
	})

	return gdb
}
