package models

import (
	"time"
)

// Session status values
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// StoreSession brackets one trading day between shop-open and shop-close.
// Totals are aggregated from Order records at close time.
type StoreSession struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Status         string     `gorm:"default:open" json:"status"` // "open", "closed"
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	OpenedBy       string     `json:"opened_by"`
	ClosedBy       string     `json:"closed_by"`
	TotalSales     float64    `json:"total_sales"`
	OrderCount     int        `json:"order_count"`
	CancelledCount int        `json:"cancelled_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SheetsConfig holds the Google Sheets export settings for session reports
type SheetsConfig struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	IsEnabled      bool       `gorm:"default:false" json:"is_enabled"`
	SpreadsheetID  string     `json:"spreadsheet_id"`
	SheetName      string     `gorm:"default:Sessions" json:"sheet_name"`
	PrivateKey     string     `gorm:"type:text" json:"-"` // Service account JSON key
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus string     `json:"last_sync_status"`
	LastSyncError  string     `json:"last_sync_error"`
	TotalSyncs     int        `json:"total_syncs"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (StoreSession) TableName() string {
	return "store_sessions"
}

func (SheetsConfig) TableName() string {
	return "sheets_configs"
}
