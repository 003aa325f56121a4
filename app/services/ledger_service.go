package services

import (
	"RestoApp/app/models"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// LedgerService is the authoritative store of ingredient quantities. Debits
// enforce non-negativity; credits re-project menu availability inside the
// same transaction.
type LedgerService struct {
	*BaseService
	availabilitySvc *AvailabilityService
}

// NewLedgerService creates a new ledger service
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		BaseService:     NewBaseService(db),
		availabilitySvc: NewAvailabilityService(db),
	}
}

// CRUD operations for ingredients

// GetAllIngredients retrieves all ingredients
func (s *LedgerService) GetAllIngredients() ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	err := s.db.Order("name ASC").Find(&ingredients).Error
	return ingredients, err
}

// GetIngredient retrieves a single ingredient by ID
func (s *LedgerService) GetIngredient(id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := s.db.First(&ingredient, id).Error
	return &ingredient, err
}

// CreateIngredient creates a new ingredient, recording the opening quantity
// as a movement
func (s *LedgerService) CreateIngredient(ingredient *models.Ingredient) error {
	if ingredient.Quantity < 0 {
		return validationErrorf("ingredient %q cannot start with negative quantity", ingredient.Name)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ingredient).Error; err != nil {
			return err
		}

		if ingredient.Quantity > 0 {
			movement := models.IngredientMovement{
				IngredientID: ingredient.ID,
				Type:         "adjustment",
				Quantity:     ingredient.Quantity,
				PreviousQty:  0,
				NewQty:       ingredient.Quantity,
				Reference:    "Initial stock",
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// UpdateIngredient updates name, category and unit. Quantity changes go
// through CreditIngredient/DebitIngredient so every change leaves a
// movement row. Recipes reference ingredients by ID, so renaming is safe.
func (s *LedgerService) UpdateIngredient(ingredient *models.Ingredient) error {
	return s.db.Model(&models.Ingredient{}).
		Where("id = ?", ingredient.ID).
		Updates(map[string]interface{}{
			"name":     ingredient.Name,
			"category": ingredient.Category,
			"unit":     ingredient.Unit,
		}).Error
}

// DeleteIngredient removes an ingredient from the ledger. Recipe rows that
// reference it are kept: a dangling reference projects as zero stock, which
// forces the affected menu items unavailable rather than silently shrinking
// their recipes.
func (s *LedgerService) DeleteIngredient(id uint) error {
	return s.db.Delete(&models.Ingredient{}, id).Error
}

// Ledger contract

// Quantity returns the current ledger quantity for an ingredient name
func (s *LedgerService) Quantity(name string) (int, error) {
	var ingredient models.Ingredient
	err := s.db.Where("name = ?", name).First(&ingredient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, validationErrorf("ingredient %q not found", name)
	}
	if err != nil {
		return 0, err
	}
	return ingredient.Quantity, nil
}

// CreditIngredient adds stock for an ingredient and re-projects quotas for
// every menu item referencing it, within one transaction. Credit never fails
// for an existing ingredient.
func (s *LedgerService) CreditIngredient(name string, amount int, reference string, staffID uint) error {
	if amount <= 0 {
		return validationErrorf("credit amount must be positive, got %d", amount)
	}

	storeMu.Lock()
	defer storeMu.Unlock()

	return withConflictRetry(s.db, func(tx *gorm.DB) error {
		var ingredient models.Ingredient
		err := tx.Clauses(lockForUpdate()).Where("name = ?", name).First(&ingredient).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErrorf("ingredient %q not found", name)
		}
		if err != nil {
			return err
		}

		previous := ingredient.Quantity
		ingredient.Quantity += amount
		if err := tx.Save(&ingredient).Error; err != nil {
			return err
		}

		if err := recordMovement(tx, &ingredient, "restock", amount, previous, reference, staffID); err != nil {
			return err
		}

		// Restocking may raise daily quotas; the projection is part of the
		// same transaction so observers never see stock without the quota.
		if err := s.availabilitySvc.RecomputeForIngredient(tx, ingredient.ID); err != nil {
			return err
		}

		log.Printf("Ledger: credited %d x %q (%d -> %d)", amount, name, previous, ingredient.Quantity)
		return nil
	})
}

// DebitIngredient removes stock for an ingredient, failing without side
// effects when the ledger cannot cover the amount.
func (s *LedgerService) DebitIngredient(name string, amount int, reference string, staffID uint) error {
	if amount <= 0 {
		return validationErrorf("debit amount must be positive, got %d", amount)
	}

	storeMu.Lock()
	defer storeMu.Unlock()

	return withConflictRetry(s.db, func(tx *gorm.DB) error {
		var ingredient models.Ingredient
		err := tx.Clauses(lockForUpdate()).Where("name = ?", name).First(&ingredient).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErrorf("ingredient %q not found", name)
		}
		if err != nil {
			return err
		}

		if amount > ingredient.Quantity {
			return &InsufficientStockError{
				Ingredient: ingredient.Name,
				Requested:  amount,
				Available:  ingredient.Quantity,
			}
		}

		previous := ingredient.Quantity
		ingredient.Quantity -= amount
		if err := tx.Save(&ingredient).Error; err != nil {
			return err
		}

		return recordMovement(tx, &ingredient, "adjustment", -amount, previous, reference, staffID)
	})
}

// GetIngredientMovements retrieves all movements for an ingredient
func (s *LedgerService) GetIngredientMovements(ingredientID uint) ([]models.IngredientMovement, error) {
	var movements []models.IngredientMovement
	err := s.db.Preload("Staff").
		Where("ingredient_id = ?", ingredientID).
		Order("created_at DESC").
		Find(&movements).Error
	return movements, err
}

// GetLowStockIngredients gets ingredients at or below the given threshold,
// for purchasing reports
func (s *LedgerService) GetLowStockIngredients(threshold int) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	err := s.db.Where("quantity <= ?", threshold).
		Order("quantity ASC").
		Find(&ingredients).Error
	return ingredients, err
}

func recordMovement(tx *gorm.DB, ingredient *models.Ingredient, movementType string, delta, previous int, reference string, staffID uint) error {
	movement := models.IngredientMovement{
		IngredientID: ingredient.ID,
		Type:         movementType,
		Quantity:     delta,
		PreviousQty:  previous,
		NewQty:       ingredient.Quantity,
		Reference:    reference,
	}
	if staffID != 0 {
		movement.StaffID = &staffID
	}
	if err := tx.Create(&movement).Error; err != nil {
		return fmt.Errorf("failed to record ledger movement: %w", err)
	}
	return nil
}
