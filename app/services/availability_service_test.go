package services

import (
	"testing"

	"RestoApp/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxPossibleIsMinimumAcrossRecipe(t *testing.T) {
	db := newTestDB(t)
	svc := NewAvailabilityService(db)
	seedIngredient(t, db, "duck", 3)
	seedIngredient(t, db, "rice", 50)
	item := seedMenuItem(t, db, "Duck Rice", 12.0, models.UnlimitedDailyStock, "duck", "rice")

	maxPossible, hasRecipe, err := svc.MaxPossible(db, item.ID)
	require.NoError(t, err)
	assert.True(t, hasRecipe)
	assert.Equal(t, 3, maxPossible)
}

func TestMaxPossibleNoRecipe(t *testing.T) {
	db := newTestDB(t)
	svc := NewAvailabilityService(db)
	item := seedMenuItem(t, db, "Iced Tea", 3.0, models.UnlimitedDailyStock)

	maxPossible, hasRecipe, err := svc.MaxPossible(db, item.ID)
	require.NoError(t, err)
	assert.False(t, hasRecipe)
	assert.Equal(t, 0, maxPossible)
}

func TestRestockRaisesQuota(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	seedIngredient(t, db, "duck", 0)
	item := seedMenuItem(t, db, "Duck Rice", 12.0, models.UnlimitedDailyStock, "duck")
	require.NoError(t, db.Model(item).
		Updates(map[string]interface{}{"daily_stock": 0, "is_available": false}).Error)

	require.NoError(t, ledger.CreditIngredient("duck", 8, "delivery", 0))

	var reloaded models.MenuItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 8, reloaded.DailyStock)
	assert.True(t, reloaded.IsAvailable)
}

func TestRestockNeverLowersQuota(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	seedIngredient(t, db, "duck", 2)
	// Operator promised more than the ledger holds; restocking below that
	// level must not pull the quota down.
	item := seedMenuItem(t, db, "Duck Rice", 12.0, 10, "duck")

	require.NoError(t, ledger.CreditIngredient("duck", 1, "delivery", 0))

	var reloaded models.MenuItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 10, reloaded.DailyStock)
}

func TestRestockSkipsUnlimitedItems(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	seedIngredient(t, db, "rice", 5)
	item := seedMenuItem(t, db, "Plain Rice", 2.0, models.UnlimitedDailyStock, "rice")

	require.NoError(t, ledger.CreditIngredient("rice", 100, "delivery", 0))

	var reloaded models.MenuItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, models.UnlimitedDailyStock, reloaded.DailyStock)
}

func TestApplyOpeningQuotasCapsAtSupply(t *testing.T) {
	db := newTestDB(t)
	svc := NewAvailabilityService(db)
	seedIngredient(t, db, "duck", 4)
	item := seedMenuItem(t, db, "Duck Rice", 12.0, models.UnlimitedDailyStock, "duck")

	quotas := map[uint]int{item.ID: 10}
	require.NoError(t, svc.ApplyOpeningQuotas(db, quotas))

	var reloaded models.MenuItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 4, reloaded.DailyStock)
	assert.True(t, reloaded.IsAvailable)
}

func TestApplyOpeningQuotasAbsentItemUnavailable(t *testing.T) {
	db := newTestDB(t)
	svc := NewAvailabilityService(db)
	seedIngredient(t, db, "duck", 4)
	quoted := seedMenuItem(t, db, "Duck Rice", 12.0, models.UnlimitedDailyStock, "duck")
	unquoted := seedMenuItem(t, db, "Duck Noodle", 11.0, models.UnlimitedDailyStock, "duck")

	require.NoError(t, svc.ApplyOpeningQuotas(db, map[uint]int{quoted.ID: 2}))

	var reloaded models.MenuItem
	require.NoError(t, db.First(&reloaded, unquoted.ID).Error)
	assert.False(t, reloaded.IsAvailable)
}

func TestApplyOpeningQuotasNegativeMeansUnlimited(t *testing.T) {
	db := newTestDB(t)
	svc := NewAvailabilityService(db)
	seedIngredient(t, db, "rice", 1)
	item := seedMenuItem(t, db, "Plain Rice", 2.0, 5, "rice")

	require.NoError(t, svc.ApplyOpeningQuotas(db, map[uint]int{item.ID: -1}))

	var reloaded models.MenuItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, models.UnlimitedDailyStock, reloaded.DailyStock)
	assert.True(t, reloaded.IsAvailable)
}

func TestApplyOpeningQuotasZeroSupplyDisables(t *testing.T) {
	db := newTestDB(t)
	svc := NewAvailabilityService(db)
	seedIngredient(t, db, "duck", 0)
	item := seedMenuItem(t, db, "Duck Rice", 12.0, models.UnlimitedDailyStock, "duck")

	require.NoError(t, svc.ApplyOpeningQuotas(db, map[uint]int{item.ID: 5}))

	var reloaded models.MenuItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 0, reloaded.DailyStock)
	assert.False(t, reloaded.IsAvailable)
}
