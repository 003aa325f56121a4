package services

import (
	"RestoApp/app/models"
	"errors"
	"log"

	"gorm.io/gorm"
)

// AvailabilityService recomputes menu item daily quotas from the stock
// ledger. Quotas only move upward reactively: restocking raises them,
// placements lower them through explicit debits.
type AvailabilityService struct {
	db *gorm.DB
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db}
}

// MaxPossible computes how many units of a menu item the current ledger can
// supply: the minimum ledger quantity across the item's recipe rows. A recipe
// row whose ingredient no longer exists counts as zero, forcing
// unavailability. The second return value reports whether the item has a
// recipe at all; items without one are not ingredient-constrained.
func (s *AvailabilityService) MaxPossible(tx *gorm.DB, menuItemID uint) (int, bool, error) {
	var recipe []models.MenuItemIngredient
	if err := tx.Where("menu_item_id = ?", menuItemID).
		Order("position ASC").
		Find(&recipe).Error; err != nil {
		return 0, false, err
	}

	if len(recipe) == 0 {
		return 0, false, nil
	}

	max := -1
	for _, row := range recipe {
		var ingredient models.Ingredient
		err := tx.First(&ingredient, row.IngredientID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, true, nil
		}
		if err != nil {
			return 0, true, err
		}
		if max == -1 || ingredient.Quantity < max {
			max = ingredient.Quantity
		}
	}

	return max, true, nil
}

// RecomputeForIngredient re-projects quotas for every menu item whose recipe
// references the given ingredient. Called after a ledger credit; quotas are
// only raised, never lowered, and availability flips on when the new maximum
// is positive. Unlimited items are exempt.
func (s *AvailabilityService) RecomputeForIngredient(tx *gorm.DB, ingredientID uint) error {
	var refs []models.MenuItemIngredient
	if err := tx.Where("ingredient_id = ?", ingredientID).Find(&refs).Error; err != nil {
		return err
	}

	seen := make(map[uint]bool)
	for _, ref := range refs {
		if seen[ref.MenuItemID] {
			continue
		}
		seen[ref.MenuItemID] = true

		var item models.MenuItem
		err := tx.First(&item, ref.MenuItemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if item.Unlimited() {
			continue
		}

		maxPossible, _, err := s.MaxPossible(tx, item.ID)
		if err != nil {
			return err
		}

		if maxPossible > item.DailyStock {
			item.DailyStock = maxPossible
			item.IsAvailable = maxPossible > 0
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
			log.Printf("Availability: raised %q daily stock to %d after restock", item.Name, maxPossible)
		}
	}

	return nil
}

// ApplyOpeningQuotas sets every menu item's quota and availability for a new
// trading session. quotas maps menu item ID to the operator-requested count:
// a negative value means unlimited, a non-negative value is capped by what
// the ledger can actually supply. Items absent from the map were not marked
// available by the operator and are switched off.
func (s *AvailabilityService) ApplyOpeningQuotas(tx *gorm.DB, quotas map[uint]int) error {
	var items []models.MenuItem
	if err := tx.Find(&items).Error; err != nil {
		return err
	}

	for i := range items {
		item := &items[i]

		requested, marked := quotas[item.ID]
		if !marked {
			item.IsAvailable = false
			if err := tx.Save(item).Error; err != nil {
				return err
			}
			continue
		}

		if requested < 0 {
			item.DailyStock = models.UnlimitedDailyStock
			item.IsAvailable = true
			if err := tx.Save(item).Error; err != nil {
				return err
			}
			continue
		}

		maxPossible, hasRecipe, err := s.MaxPossible(tx, item.ID)
		if err != nil {
			return err
		}

		quota := requested
		if hasRecipe && maxPossible < quota {
			quota = maxPossible
		}

		item.DailyStock = quota
		item.IsAvailable = quota > 0
		if err := tx.Save(item).Error; err != nil {
			return err
		}
	}

	return nil
}
