package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RestoApp/app/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"gorm.io/gorm"
)

// SheetsService exports closed-session reports to a Google spreadsheet via a
// service account.
type SheetsService struct {
	db *gorm.DB
}

// NewSheetsService creates a new sheets service
func NewSheetsService(db *gorm.DB) *SheetsService {
	return &SheetsService{db: db}
}

// GetConfig retrieves the sheets configuration, creating a disabled default
// on first access
func (s *SheetsService) GetConfig() (*models.SheetsConfig, error) {
	var config models.SheetsConfig
	result := s.db.First(&config)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			config = models.SheetsConfig{
				IsEnabled:      false,
				SheetName:      "Sessions",
				LastSyncStatus: "pending",
			}
			if err := s.db.Create(&config).Error; err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to get config: %w", result.Error)
		}
	}

	return &config, nil
}

// SaveConfig saves the sheets configuration
func (s *SheetsService) SaveConfig(config *models.SheetsConfig) error {
	if config.ID == 0 {
		return s.db.Create(config).Error
	}
	return s.db.Save(config).Error
}

// TestConnection verifies the service account can reach the spreadsheet
func (s *SheetsService) TestConnection(config *models.SheetsConfig) error {
	if config.PrivateKey == "" || config.SpreadsheetID == "" {
		return fmt.Errorf("missing credentials or spreadsheet ID")
	}

	ctx := context.Background()

	creds, err := google.CredentialsFromJSON(ctx, []byte(config.PrivateKey), sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("invalid service account credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return fmt.Errorf("unable to create sheets service: %w", err)
	}

	_, err = srv.Spreadsheets.Get(config.SpreadsheetID).Do()
	if err != nil {
		return fmt.Errorf("unable to access spreadsheet: %w", err)
	}

	return nil
}

// ItemDetail is one menu item's sales line inside a session report
type ItemDetail struct {
	ItemName string  `json:"item_name"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

// SessionReport is one exported row, one per closed session
type SessionReport struct {
	SessionID      uint         `json:"session_id"`
	OpenedAt       string       `json:"opened_at"`
	ClosedAt       string       `json:"closed_at"`
	TotalSales     float64      `json:"total_sales"`
	OrderCount     int          `json:"order_count"`
	CancelledCount int          `json:"cancelled_count"`
	AverageTicket  float64      `json:"average_ticket"`
	ItemDetails    []ItemDetail `json:"item_details"`
}

// BuildSessionReport assembles the export row for a closed session,
// breaking sales down per menu item from the completed orders in the
// session interval.
func (s *SheetsService) BuildSessionReport(sessionID uint) (*SessionReport, error) {
	var session models.StoreSession
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.Status != models.SessionClosed {
		return nil, fmt.Errorf("session %d is still open", sessionID)
	}

	report := &SessionReport{
		SessionID:      session.ID,
		OpenedAt:       session.OpenedAt.Format(time.RFC3339),
		TotalSales:     session.TotalSales,
		OrderCount:     session.OrderCount,
		CancelledCount: session.CancelledCount,
	}
	if session.ClosedAt != nil {
		report.ClosedAt = session.ClosedAt.Format(time.RFC3339)
	}
	if session.OrderCount > 0 {
		report.AverageTicket = session.TotalSales / float64(session.OrderCount)
	}

	closedAt := time.Now().UTC()
	if session.ClosedAt != nil {
		closedAt = *session.ClosedAt
	}

	var orders []models.Order
	if err := s.db.Preload("Items").
		Where("status = ? AND created_at >= ? AND created_at <= ?",
			models.OrderStatusCompleted, session.OpenedAt, closedAt).
		Find(&orders).Error; err != nil {
		return nil, err
	}

	byName := make(map[string]*ItemDetail)
	var nameOrder []string
	for _, order := range orders {
		for _, line := range order.Items {
			detail, ok := byName[line.Name]
			if !ok {
				detail = &ItemDetail{ItemName: line.Name}
				byName[line.Name] = detail
				nameOrder = append(nameOrder, line.Name)
			}
			detail.Quantity += line.Quantity
			detail.Total += line.Price * float64(line.Quantity)
		}
	}
	for _, name := range nameOrder {
		report.ItemDetails = append(report.ItemDetails, *byName[name])
	}

	return report, nil
}

// SendReport appends or updates the session's row in the spreadsheet
func (s *SheetsService) SendReport(config *models.SheetsConfig, report *SessionReport) error {
	if !config.IsEnabled {
		return fmt.Errorf("sheets export is disabled")
	}
	if config.PrivateKey == "" || config.SpreadsheetID == "" {
		return fmt.Errorf("missing credentials or spreadsheet ID")
	}

	ctx := context.Background()

	creds, err := google.CredentialsFromJSON(ctx, []byte(config.PrivateKey), sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return fmt.Errorf("unable to create sheets service: %w", err)
	}

	if err := s.ensureHeaders(srv, config); err != nil {
		return fmt.Errorf("failed to ensure headers: %w", err)
	}

	detailsJSON, err := json.Marshal(report.ItemDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal item details: %w", err)
	}

	row := []interface{}{
		report.SessionID,
		report.OpenedAt,
		report.ClosedAt,
		report.TotalSales,
		report.OrderCount,
		report.CancelledCount,
		report.AverageTicket,
		string(detailsJSON),
	}

	rowIndex, err := s.findExistingRowIndex(srv, config, report.SessionID)
	if err != nil {
		return fmt.Errorf("failed to check existing row: %w", err)
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	if rowIndex > 0 {
		sheetRange := fmt.Sprintf("%s!A%d:H%d", config.SheetName, rowIndex, rowIndex)
		_, err = srv.Spreadsheets.Values.Update(config.SpreadsheetID, sheetRange, valueRange).
			ValueInputOption("USER_ENTERED").
			Do()
		if err != nil {
			return fmt.Errorf("unable to update data: %w", err)
		}
	} else {
		sheetRange := fmt.Sprintf("%s!A:H", config.SheetName)
		_, err = srv.Spreadsheets.Values.Append(config.SpreadsheetID, sheetRange, valueRange).
			ValueInputOption("USER_ENTERED").
			Do()
		if err != nil {
			return fmt.Errorf("unable to append data: %w", err)
		}
	}

	now := time.Now()
	config.LastSyncAt = &now
	config.LastSyncStatus = "success"
	config.LastSyncError = ""
	config.TotalSyncs++
	s.db.Save(config)

	return nil
}

// findExistingRowIndex returns the 1-based row holding sessionID, or 0
func (s *SheetsService) findExistingRowIndex(srv *sheets.Service, config *models.SheetsConfig, sessionID uint) (int, error) {
	sheetRange := fmt.Sprintf("%s!A:A", config.SheetName)
	resp, err := srv.Spreadsheets.Values.Get(config.SpreadsheetID, sheetRange).Do()
	if err != nil {
		return 0, err
	}

	want := fmt.Sprintf("%d", sessionID)
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprintf("%v", row[0]) == want {
			return i + 1, nil
		}
	}
	return 0, nil
}

// ensureHeaders writes the header row when the sheet is empty
func (s *SheetsService) ensureHeaders(srv *sheets.Service, config *models.SheetsConfig) error {
	sheetRange := fmt.Sprintf("%s!A1:H1", config.SheetName)
	resp, err := srv.Spreadsheets.Values.Get(config.SpreadsheetID, sheetRange).Do()
	if err != nil {
		return err
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) < 8 {
		headers := []interface{}{
			"session_id",
			"opened_at",
			"closed_at",
			"total_sales",
			"order_count",
			"cancelled_count",
			"average_ticket",
			"item_details",
		}

		valueRange := &sheets.ValueRange{
			Values: [][]interface{}{headers},
		}

		_, err := srv.Spreadsheets.Values.Update(config.SpreadsheetID, sheetRange, valueRange).
			ValueInputOption("USER_ENTERED").
			Do()
		return err
	}

	return nil
}

// SyncSession exports one closed session, recording the outcome on the
// config row
func (s *SheetsService) SyncSession(sessionID uint) error {
	config, err := s.GetConfig()
	if err != nil {
		return err
	}
	if !config.IsEnabled {
		return fmt.Errorf("sheets export is disabled")
	}

	report, err := s.BuildSessionReport(sessionID)
	if err != nil {
		s.markSyncError(config, err)
		return fmt.Errorf("failed to build report: %w", err)
	}

	if err := s.SendReport(config, report); err != nil {
		s.markSyncError(config, err)
		return fmt.Errorf("failed to send report: %w", err)
	}

	return nil
}

func (s *SheetsService) markSyncError(config *models.SheetsConfig, err error) {
	now := time.Now()
	config.LastSyncAt = &now
	config.LastSyncStatus = "error"
	config.LastSyncError = err.Error()
	s.db.Save(config)
}
