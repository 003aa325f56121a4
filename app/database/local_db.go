package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitializeLocal opens a local SQLite database (CGO-free driver) instead of
// a remote PostgreSQL server. The rest of the application is unaware of which
// backend is active: both paths hand out the same *gorm.DB and the business
// rules are enforced once, in the services layer.
func InitializeLocal(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	local, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to local database: %w", err)
	}

	// SQLite serializes writers on a single connection; keeping the pool at
	// one avoids "database is locked" errors under concurrent transactions.
	sqlDB, err := local.DB()
	if err != nil {
		return fmt.Errorf("failed to access local connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(local); err != nil {
		return fmt.Errorf("failed to run local migrations: %w", err)
	}

	db = local
	log.Printf("Local database opened at %s", dbPath)
	return nil
}
