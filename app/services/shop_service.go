package services

import (
	"RestoApp/app/models"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// ShopService manages the business day: one open session at a time, opening
// quotas pushed into the menu, closing totals aggregated from the orders
// created during the session.
type ShopService struct {
	db              *gorm.DB
	availabilitySvc *AvailabilityService
	sheetsSvc       *SheetsService
}

// NewShopService creates a new shop service
func NewShopService(db *gorm.DB) *ShopService {
	return &ShopService{
		db:              db,
		availabilitySvc: NewAvailabilityService(db),
	}
}

// SetSheetsService enables automatic session export on close
func (s *ShopService) SetSheetsService(sheetsSvc *SheetsService) {
	s.sheetsSvc = sheetsSvc
}

// OpenShop starts a new session and applies the opening quotas to the menu.
// Quotas map menu item IDs to the number of units the kitchen will sell
// today; a negative value means unlimited, an absent item is off today's
// menu. Fails if a session is already open.
func (s *ShopService) OpenShop(openedBy string, quotas map[uint]int) (*models.StoreSession, error) {
	storeMu.Lock()
	defer storeMu.Unlock()

	var session *models.StoreSession
	err := withConflictRetry(s.db, func(tx *gorm.DB) error {
		var open models.StoreSession
		err := tx.Clauses(lockForUpdate()).
			Where("status = ?", models.SessionOpen).
			First(&open).Error
		if err == nil {
			return validationErrorf("shop is already open (session %d, opened %s)",
				open.ID, open.OpenedAt.Format(time.RFC3339))
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		session = &models.StoreSession{
			Status:   models.SessionOpen,
			OpenedAt: time.Now().UTC(),
			OpenedBy: openedBy,
		}
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		return s.availabilitySvc.ApplyOpeningQuotas(tx, quotas)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Shop opened by %s (session %d, %d quoted items)", openedBy, session.ID, len(quotas))
	return session, nil
}

// CloseShop closes the open session and freezes its totals: sales and order
// count from completed orders, cancellation count from cancelled ones, both
// bucketed by the session's open interval.
func (s *ShopService) CloseShop(closedBy string) (*models.StoreSession, error) {
	storeMu.Lock()
	defer storeMu.Unlock()

	var session models.StoreSession
	err := withConflictRetry(s.db, func(tx *gorm.DB) error {
		err := tx.Clauses(lockForUpdate()).
			Where("status = ?", models.SessionOpen).
			First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErrorf("shop is not open")
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()

		type totals struct {
			Count int
			Sum   float64
		}
		var completed totals
		if err := tx.Model(&models.Order{}).
			Select("COUNT(*) as count, COALESCE(SUM(total_amount), 0) as sum").
			Where("status = ? AND created_at >= ? AND created_at <= ?",
				models.OrderStatusCompleted, session.OpenedAt, now).
			Scan(&completed).Error; err != nil {
			return err
		}

		var cancelled int64
		if err := tx.Model(&models.Order{}).
			Where("status = ? AND created_at >= ? AND created_at <= ?",
				models.OrderStatusCancelled, session.OpenedAt, now).
			Count(&cancelled).Error; err != nil {
			return err
		}

		session.Status = models.SessionClosed
		session.ClosedAt = &now
		session.ClosedBy = closedBy
		session.TotalSales = completed.Sum
		session.OrderCount = completed.Count
		session.CancelledCount = int(cancelled)

		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Shop closed by %s: %d orders, %.2f sales, %d cancelled",
		closedBy, session.OrderCount, session.TotalSales, session.CancelledCount)

	// Export runs best-effort in the background; a failed sync never blocks
	// the close.
	if s.sheetsSvc != nil {
		go func(sessionID uint) {
			if err := s.sheetsSvc.SyncSession(sessionID); err != nil {
				log.Printf("Sheets export failed for session %d: %v", sessionID, err)
			}
		}(session.ID)
	}

	return &session, nil
}

// GetCurrentSession returns the open session, or nil when the shop is closed
func (s *ShopService) GetCurrentSession() (*models.StoreSession, error) {
	var session models.StoreSession
	err := s.db.Where("status = ?", models.SessionOpen).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// IsOpen reports whether a session is currently open
func (s *ShopService) IsOpen() (bool, error) {
	session, err := s.GetCurrentSession()
	return session != nil, err
}

// GetSessionHistory returns closed sessions, most recent first
func (s *ShopService) GetSessionHistory(limit int) ([]models.StoreSession, error) {
	var sessions []models.StoreSession
	query := s.db.Where("status = ?", models.SessionClosed).Order("opened_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&sessions).Error
	return sessions, err
}
