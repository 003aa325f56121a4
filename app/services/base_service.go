package services

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// storeMu serializes every mutating operation against the shared
// ledger/menu/table/order consistency domain. The ledger, quotas and tables
// form one logical-writer domain: two concurrent placements against the same
// ingredient must never both pass a stale sufficiency check. Row locks
// (clause.Locking) cover the PostgreSQL backend; this mutex covers the
// in-process SQLite backend and keeps check-then-act sequences linearized
// within one process.
var storeMu sync.Mutex

// lockForUpdate returns the row-locking clause for reads inside mutating
// transactions. SQLite ignores it; PostgreSQL takes FOR UPDATE locks.
func lockForUpdate() clause.Expression {
	return clause.Locking{Strength: "UPDATE"}
}

// BaseService provides common functionality for all services
type BaseService struct {
	db *gorm.DB
}

// NewBaseService creates a new base service instance
func NewBaseService(db *gorm.DB) *BaseService {
	return &BaseService{db: db}
}

// GetDB returns the database connection
func (b *BaseService) GetDB() *gorm.DB {
	return b.db
}

// SetDB sets the database connection (useful for testing)
func (b *BaseService) SetDB(db *gorm.DB) {
	b.db = db
}

// EnsureDB checks if database is initialized and returns an error if not
func (b *BaseService) EnsureDB() error {
	if b.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return nil
}

// WithTransaction executes a function within a database transaction
func (b *BaseService) WithTransaction(fn func(tx *gorm.DB) error) error {
	if err := b.EnsureDB(); err != nil {
		return err
	}
	return b.db.Transaction(fn)
}
