package models

import (
	"time"

	"gorm.io/gorm"
)

// IngredientCategory groups ingredients for purchasing reports
type IngredientCategory string

const (
	CategoryProduce  IngredientCategory = "produce"
	CategoryMeat     IngredientCategory = "meat"
	CategorySeafood  IngredientCategory = "seafood"
	CategoryDairy    IngredientCategory = "dairy"
	CategoryDry      IngredientCategory = "dry"
	CategoryBeverage IngredientCategory = "beverage"
	CategoryOther    IngredientCategory = "other"
)

// Ingredient is an entry in the stock ledger
type Ingredient struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	Name      string             `gorm:"uniqueIndex;not null" json:"name"`
	Quantity  int                `gorm:"default:0" json:"quantity"` // Unit count, never negative
	Category  IngredientCategory `gorm:"default:other" json:"category"`
	Unit      string             `gorm:"default:units" json:"unit"` // Display only
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	DeletedAt gorm.DeletedAt     `gorm:"index" json:"-"`
}

// UnlimitedDailyStock marks a menu item exempt from quota tracking
const UnlimitedDailyStock = -1

// MenuItem represents a sellable item on the menu
type MenuItem struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	Name        string               `gorm:"not null;index" json:"name"`
	Price       float64              `gorm:"not null" json:"price"`
	Category    string               `json:"category"`
	IsAvailable bool                 `gorm:"default:true" json:"is_available"`
	DailyStock  int                  `gorm:"default:-1" json:"daily_stock"` // -1 = unlimited, else remaining count for the session
	Ingredients []MenuItemIngredient `gorm:"foreignKey:MenuItemID" json:"ingredients,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	DeletedAt   gorm.DeletedAt       `gorm:"index" json:"-"`
}

// Unlimited reports whether the item is exempt from quota tracking
func (m *MenuItem) Unlimited() bool {
	return m.DailyStock == UnlimitedDailyStock
}

// MenuItemIngredient links a menu item to one ledger ingredient.
// Exactly one ledger unit is consumed per row per ordered unit; recipe
// proportions are not modeled.
type MenuItemIngredient struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MenuItemID   uint      `gorm:"not null;index" json:"menu_item_id"`
	IngredientID uint      `gorm:"not null;index" json:"ingredient_id"`
	Position     int       `gorm:"default:0" json:"position"`
	CreatedAt    time.Time `json:"created_at"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}

// IngredientMovement tracks every ledger debit and credit
type IngredientMovement struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	IngredientID uint      `gorm:"not null;index" json:"ingredient_id"`
	Type         string    `gorm:"not null" json:"type"` // restock, sale, cancellation, adjustment
	Quantity     int       `gorm:"not null" json:"quantity"`
	PreviousQty  int       `json:"previous_qty"`
	NewQty       int       `json:"new_qty"`
	Reference    string    `json:"reference"` // Order number, restock reason, etc.
	StaffID      *uint     `json:"staff_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	Staff      *Staff      `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
}

func (Ingredient) TableName() string {
	return "ingredients"
}

func (MenuItemIngredient) TableName() string {
	return "menu_item_ingredients"
}

func (IngredientMovement) TableName() string {
	return "ingredient_movements"
}
