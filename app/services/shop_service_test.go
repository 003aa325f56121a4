package services

import (
	"testing"

	"RestoApp/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenShopAppliesQuotas(t *testing.T) {
	db := newTestDB(t)
	svc := NewShopService(db)
	seedIngredient(t, db, "duck", 4)
	duckRice := seedMenuItem(t, db, "Duck Rice", 12.0, models.UnlimitedDailyStock, "duck")
	tea := seedMenuItem(t, db, "Iced Tea", 3.0, models.UnlimitedDailyStock)

	session, err := svc.OpenShop("manager", map[uint]int{
		duckRice.ID: 10, // capped by the 4 ducks in the ledger
		tea.ID:      -1, // unlimited
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionOpen, session.Status)
	assert.Equal(t, "manager", session.OpenedBy)

	var rice models.MenuItem
	require.NoError(t, db.First(&rice, duckRice.ID).Error)
	assert.Equal(t, 4, rice.DailyStock)
	assert.True(t, rice.IsAvailable)

	var teaItem models.MenuItem
	require.NoError(t, db.First(&teaItem, tea.ID).Error)
	assert.Equal(t, models.UnlimitedDailyStock, teaItem.DailyStock)
	assert.True(t, teaItem.IsAvailable)
}

func TestOpenShopTwiceFails(t *testing.T) {
	db := newTestDB(t)
	svc := NewShopService(db)

	_, err := svc.OpenShop("manager", nil)
	require.NoError(t, err)

	var verr *ValidationError
	_, err = svc.OpenShop("manager", nil)
	require.ErrorAs(t, err, &verr)
}

func TestCloseShopAggregatesSessionTotals(t *testing.T) {
	db := newTestDB(t)
	shopSvc := NewShopService(db)
	orderSvc := NewOrderService(db)
	seedIngredient(t, db, "duck", 20)
	duckRice := seedMenuItem(t, db, "Duck Rice", 12.0, models.UnlimitedDailyStock, "duck")
	t1 := seedTable(t, db, "T1")
	t2 := seedTable(t, db, "T2")
	t3 := seedTable(t, db, "T3")

	_, err := shopSvc.OpenShop("manager", map[uint]int{duckRice.ID: -1})
	require.NoError(t, err)

	completed, err := orderSvc.PlaceOrder(&models.Order{
		TableID: t1.ID,
		Items:   []models.OrderItem{orderLine(duckRice.ID, 2)},
	})
	require.NoError(t, err)
	for _, status := range []models.OrderStatus{
		models.OrderStatusCooking,
		models.OrderStatusServing,
		models.OrderStatusServed,
		models.OrderStatusWaitingPayment,
	} {
		_, err = orderSvc.AdvanceOrder(completed.ID, status, "", "")
		require.NoError(t, err)
	}
	_, err = orderSvc.AdvanceOrder(completed.ID, models.OrderStatusCompleted, "", models.PaymentCard)
	require.NoError(t, err)

	cancelled, err := orderSvc.PlaceOrder(&models.Order{
		TableID: t2.ID,
		Items:   []models.OrderItem{orderLine(duckRice.ID, 1)},
	})
	require.NoError(t, err)
	_, err = orderSvc.CancelOrder(cancelled.ID)
	require.NoError(t, err)

	// Still-active orders count toward nothing.
	_, err = orderSvc.PlaceOrder(&models.Order{
		TableID: t3.ID,
		Items:   []models.OrderItem{orderLine(duckRice.ID, 1)},
	})
	require.NoError(t, err)

	session, err := shopSvc.CloseShop("manager")
	require.NoError(t, err)

	assert.Equal(t, models.SessionClosed, session.Status)
	assert.Equal(t, "manager", session.ClosedBy)
	require.NotNil(t, session.ClosedAt)
	assert.Equal(t, 1, session.OrderCount)
	assert.Equal(t, 24.0, session.TotalSales)
	assert.Equal(t, 1, session.CancelledCount)
}

func TestCloseShopWhenClosed(t *testing.T) {
	db := newTestDB(t)
	svc := NewShopService(db)

	var verr *ValidationError
	_, err := svc.CloseShop("manager")
	require.ErrorAs(t, err, &verr)
}

func TestGetCurrentSession(t *testing.T) {
	db := newTestDB(t)
	svc := NewShopService(db)

	session, err := svc.GetCurrentSession()
	require.NoError(t, err)
	assert.Nil(t, session)

	opened, err := svc.OpenShop("manager", nil)
	require.NoError(t, err)

	session, err = svc.GetCurrentSession()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, opened.ID, session.ID)

	open, err := svc.IsOpen()
	require.NoError(t, err)
	assert.True(t, open)
}

func TestSessionHistory(t *testing.T) {
	db := newTestDB(t)
	svc := NewShopService(db)

	for i := 0; i < 3; i++ {
		_, err := svc.OpenShop("manager", nil)
		require.NoError(t, err)
		_, err = svc.CloseShop("manager")
		require.NoError(t, err)
	}

	history, err := svc.GetSessionHistory(2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	for _, session := range history {
		assert.Equal(t, models.SessionClosed, session.Status)
	}
}
