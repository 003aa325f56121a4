package services

import (
	"RestoApp/app/models"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// MenuService handles menu item management and recipe authoring. Recipes are
// resolved from ingredient names to ledger IDs when authored, so renaming an
// ingredient later does not orphan any recipe.
type MenuService struct {
	*BaseService
}

// NewMenuService creates a new menu service
func NewMenuService(db *gorm.DB) *MenuService {
	return &MenuService{BaseService: NewBaseService(db)}
}

// GetMenuItems retrieves all menu items with their recipes
func (s *MenuService) GetMenuItems() ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.db.Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
		return db.Order("menu_item_ingredients.position ASC")
	}).Preload("Ingredients.Ingredient").
		Order("category, name").
		Find(&items).Error
	return items, err
}

// GetMenuItem retrieves a single menu item by ID
func (s *MenuService) GetMenuItem(id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
		return db.Order("menu_item_ingredients.position ASC")
	}).Preload("Ingredients.Ingredient").
		First(&item, id).Error
	return &item, err
}

// GetAvailableMenuItems retrieves items currently offered for sale. The
// availability flag is advisory for display; order placement re-checks
// quota and ledger state transactionally.
func (s *MenuService) GetAvailableMenuItems() ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.db.Where("is_available = ?", true).
		Order("category, name").
		Find(&items).Error
	return items, err
}

// CreateMenuItem creates a menu item together with its recipe. Ingredient
// names are resolved against the ledger once, here; unknown names reject the
// whole creation.
func (s *MenuService) CreateMenuItem(item *models.MenuItem, ingredientNames []string) error {
	if item.Price < 0 {
		return validationErrorf("menu item %q cannot have a negative price", item.Name)
	}
	if item.DailyStock < models.UnlimitedDailyStock {
		return validationErrorf("menu item %q has invalid daily stock %d", item.Name, item.DailyStock)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return s.createRecipe(tx, item.ID, ingredientNames)
	})
}

// UpdateMenuItem updates menu item fields other than quota; DailyStock is
// owned by the projector and the order engine
func (s *MenuService) UpdateMenuItem(item *models.MenuItem) error {
	if item.Price < 0 {
		return validationErrorf("menu item %q cannot have a negative price", item.Name)
	}
	return s.db.Model(&models.MenuItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":     item.Name,
			"price":    item.Price,
			"category": item.Category,
		}).Error
}

// SetItemAvailability flips the operator-controlled availability gate
func (s *MenuService) SetItemAvailability(id uint, available bool) error {
	result := s.db.Model(&models.MenuItem{}).
		Where("id = ?", id).
		Update("is_available", available)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return validationErrorf("menu item %d not found", id)
	}
	return nil
}

// SetRecipe replaces the recipe of a menu item
func (s *MenuService) SetRecipe(menuItemID uint, ingredientNames []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := tx.First(&item, menuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationErrorf("menu item %d not found", menuItemID)
			}
			return err
		}

		if err := tx.Where("menu_item_id = ?", menuItemID).
			Delete(&models.MenuItemIngredient{}).Error; err != nil {
			return err
		}

		return s.createRecipe(tx, menuItemID, ingredientNames)
	})
}

// DeleteMenuItem deletes a menu item and its recipe rows. Existing orders
// keep their snapshots; cancellation of such orders restores only what still
// exists in the catalog.
func (s *MenuService) DeleteMenuItem(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_item_id = ?", id).
			Delete(&models.MenuItemIngredient{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MenuItem{}, id).Error
	})
}

func (s *MenuService) createRecipe(tx *gorm.DB, menuItemID uint, ingredientNames []string) error {
	for i, name := range ingredientNames {
		var ingredient models.Ingredient
		err := tx.Where("name = ?", name).First(&ingredient).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErrorf("recipe references unknown ingredient %q", name)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve ingredient %q: %w", name, err)
		}

		row := models.MenuItemIngredient{
			MenuItemID:   menuItemID,
			IngredientID: ingredient.ID,
			Position:     i,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
