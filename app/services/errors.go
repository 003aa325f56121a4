package services

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ValidationError reports a request rejected before any side effect
// (unknown table, empty order, illegal transition, and so on).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientQuotaError reports an order line exceeding a menu item's
// remaining daily quota. No side effects have occurred.
type InsufficientQuotaError struct {
	MenuItem  string
	Requested int
	Available int
}

func (e *InsufficientQuotaError) Error() string {
	return fmt.Sprintf("insufficient menu quota for %q: requested %d, %d left",
		e.MenuItem, e.Requested, e.Available)
}

// InsufficientStockError reports aggregated ingredient demand exceeding the
// ledger quantity. No side effects have occurred.
type InsufficientStockError struct {
	Ingredient string
	Requested  int
	Available  int
}

// Shortfall is the number of missing units
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient ingredient %q: requested %d, available %d (short %d)",
		e.Ingredient, e.Requested, e.Available, e.Shortfall())
}

const maxTxRetries = 3

// isConflict reports whether err looks like a concurrent-write collision
// worth retrying: SQLite writer contention or a PostgreSQL serialization
// failure / deadlock.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{
		"database is locked",
		"database table is locked",
		"could not serialize access",
		"deadlock detected",
		"SQLITE_BUSY",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// withConflictRetry runs fn in a transaction, retrying a bounded number of
// times on write collisions so the caller never sees a half-applied state.
func withConflictRetry(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = db.Transaction(fn)
		if !isConflict(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return fmt.Errorf("transaction conflict persisted after %d attempts: %w", maxTxRetries, err)
}
