package services

import (
	"testing"

	"RestoApp/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIngredientRecordsInitialStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)

	ingredient := &models.Ingredient{Name: "duck", Quantity: 10}
	require.NoError(t, svc.CreateIngredient(ingredient))

	qty, err := svc.Quantity("duck")
	require.NoError(t, err)
	assert.Equal(t, 10, qty)

	movements, err := svc.GetIngredientMovements(ingredient.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "adjustment", movements[0].Type)
	assert.Equal(t, 10, movements[0].Quantity)
	assert.Equal(t, "Initial stock", movements[0].Reference)
}

func TestCreateIngredientRejectsNegativeQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)

	err := svc.CreateIngredient(&models.Ingredient{Name: "rice", Quantity: -1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreditIngredient(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ingredient := seedIngredient(t, db, "rice", 5)

	require.NoError(t, svc.CreditIngredient("rice", 20, "weekly delivery", 0))

	qty, err := svc.Quantity("rice")
	require.NoError(t, err)
	assert.Equal(t, 25, qty)

	movements, err := svc.GetIngredientMovements(ingredient.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "restock", movements[0].Type)
	assert.Equal(t, 20, movements[0].Quantity)
	assert.Equal(t, 5, movements[0].PreviousQty)
	assert.Equal(t, 25, movements[0].NewQty)
}

func TestCreditUnknownIngredient(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)

	err := svc.CreditIngredient("phantom", 5, "", 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDebitIngredientInsufficient(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	seedIngredient(t, db, "duck", 3)

	err := svc.DebitIngredient("duck", 5, "spoilage", 0)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "duck", stockErr.Ingredient)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 2, stockErr.Shortfall())

	// Rejected debit leaves the ledger untouched.
	qty, err := svc.Quantity("duck")
	require.NoError(t, err)
	assert.Equal(t, 3, qty)
}

func TestDebitIngredient(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ingredient := seedIngredient(t, db, "duck", 10)

	require.NoError(t, svc.DebitIngredient("duck", 4, "spoilage", 0))

	qty, err := svc.Quantity("duck")
	require.NoError(t, err)
	assert.Equal(t, 6, qty)

	movements, err := svc.GetIngredientMovements(ingredient.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, -4, movements[0].Quantity)
}

func TestGetLowStockIngredients(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	seedIngredient(t, db, "duck", 2)
	seedIngredient(t, db, "rice", 50)
	seedIngredient(t, db, "scallion", 5)

	low, err := svc.GetLowStockIngredients(5)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "duck", low[0].Name)
	assert.Equal(t, "scallion", low[1].Name)
}

func TestDeleteIngredientKeepsRecipeRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ingredient := seedIngredient(t, db, "duck", 10)
	item := seedMenuItem(t, db, "Duck Rice", 12.0, 5, "duck")

	require.NoError(t, svc.DeleteIngredient(ingredient.ID))

	var rows []models.MenuItemIngredient
	require.NoError(t, db.Where("menu_item_id = ?", item.ID).Find(&rows).Error)
	require.Len(t, rows, 1)

	// The dangling reference projects as zero supply.
	maxPossible, hasRecipe, err := NewAvailabilityService(db).MaxPossible(db, item.ID)
	require.NoError(t, err)
	assert.True(t, hasRecipe)
	assert.Equal(t, 0, maxPossible)
}
