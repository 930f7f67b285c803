package persistence

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

// openTestDB opens a migrated sqlite database in a temp dir.
func openTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := Open("sqlite", filepath.Join(tb.TempDir(), "pedimento.db"), logger.Nop())
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
