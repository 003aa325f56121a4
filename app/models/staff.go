package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff represents a staff member/user of the system
type Staff struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Username    string         `gorm:"unique;not null" json:"username"`
	Password    string         `json:"-"` // Hashed password
	PIN         string         `json:"-"` // Quick access PIN, hashed
	Role        string         `json:"role"` // "admin", "cashier", "server", "chef"
	Phone       string         `json:"phone"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Staff) TableName() string {
	return "staff"
}
