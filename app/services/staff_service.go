package services

import (
	"RestoApp/app/models"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// StaffService handles staff accounts and authentication
type StaffService struct {
	db *gorm.DB
}

// NewStaffService creates a new staff service
func NewStaffService(db *gorm.DB) *StaffService {
	return &StaffService{db: db}
}

// GetStaff gets all staff members (active and inactive)
func (s *StaffService) GetStaff() ([]models.Staff, error) {
	var staff []models.Staff
	err := s.db.Find(&staff).Error
	return staff, err
}

// GetStaffMember gets a staff member by ID
func (s *StaffService) GetStaffMember(id uint) (*models.Staff, error) {
	var member models.Staff
	err := s.db.First(&member, id).Error
	return &member, err
}

// CreateStaffMember creates a new staff member with hashed credentials
func (s *StaffService) CreateStaffMember(member *models.Staff, password string, pin string) error {
	if member.Username == "" {
		return validationErrorf("username is required")
	}
	if len(password) < 4 {
		return validationErrorf("password must be at least 4 characters")
	}
	if len(pin) < 4 {
		return validationErrorf("PIN must be at least 4 digits")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	member.Password = string(hashedPassword)

	hashedPIN, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}
	member.PIN = string(hashedPIN)

	return s.db.Create(member).Error
}

// UpdateStaffMember updates name, role and phone; credentials have their
// own update paths.
func (s *StaffService) UpdateStaffMember(id uint, name, role, phone string) error {
	result := s.db.Model(&models.Staff{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":  name,
			"role":  role,
			"phone": phone,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return validationErrorf("staff member %d does not exist", id)
	}
	return nil
}

// UpdatePassword replaces a staff member's password
func (s *StaffService) UpdatePassword(id uint, newPassword string) error {
	if len(newPassword) < 4 {
		return validationErrorf("password must be at least 4 characters")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Model(&models.Staff{}).Where("id = ?", id).
		Update("password", string(hashedPassword)).Error
}

// UpdatePIN replaces a staff member's PIN
func (s *StaffService) UpdatePIN(id uint, newPIN string) error {
	if len(newPIN) < 4 {
		return validationErrorf("PIN must be at least 4 digits")
	}
	hashedPIN, err := bcrypt.GenerateFromPassword([]byte(newPIN), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Model(&models.Staff{}).Where("id = ?", id).
		Update("pin", string(hashedPIN)).Error
}

// DeactivateStaffMember disables login without deleting the account
func (s *StaffService) DeactivateStaffMember(id uint) error {
	return s.db.Model(&models.Staff{}).Where("id = ?", id).
		Update("is_active", false).Error
}

// Authenticate authenticates a staff member by username and password
func (s *StaffService) Authenticate(username, password string) (*models.Staff, error) {
	var member models.Staff
	if err := s.db.Where("username = ? AND is_active = ?", username, true).
		First(&member).Error; err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	member.LastLoginAt = &now
	s.db.Save(&member)

	return &member, nil
}

// AuthenticateByPIN authenticates a staff member by PIN. PINs are hashed, so
// every active account is checked.
func (s *StaffService) AuthenticateByPIN(pin string) (*models.Staff, error) {
	var staff []models.Staff
	if err := s.db.Where("is_active = ?", true).Find(&staff).Error; err != nil {
		return nil, err
	}

	for i := range staff {
		if err := bcrypt.CompareHashAndPassword([]byte(staff[i].PIN), []byte(pin)); err == nil {
			now := time.Now()
			staff[i].LastLoginAt = &now
			s.db.Save(&staff[i])
			return &staff[i], nil
		}
	}

	return nil, fmt.Errorf("invalid PIN")
}
