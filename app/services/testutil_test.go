package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"RestoApp/app/database"
	"RestoApp/app/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database, migrated and ready. The
// shared-cache DSN keeps all connections of one test on the same database;
// the single connection serializes writers the way the production SQLite
// setup does.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedIngredient(t *testing.T, db *gorm.DB, name string, quantity int) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, Quantity: quantity}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

func seedMenuItem(t *testing.T, db *gorm.DB, name string, price float64, dailyStock int, ingredientNames ...string) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		Name:        name,
		Price:       price,
		DailyStock:  dailyStock,
		IsAvailable: true,
	}
	require.NoError(t, NewMenuService(db).CreateMenuItem(item, ingredientNames))
	return item
}

func seedTable(t *testing.T, db *gorm.DB, number string) *models.Table {
	t.Helper()
	table := &models.Table{
		Number:   number,
		Floor:    1,
		Capacity: 4,
		Status:   models.TableAvailable,
		IsActive: true,
	}
	require.NoError(t, db.Create(table).Error)
	return table
}

func orderLine(menuItemID uint, quantity int) models.OrderItem {
	return models.OrderItem{MenuItemID: menuItemID, Quantity: quantity}
}
