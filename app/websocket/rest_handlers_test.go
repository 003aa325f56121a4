package websocket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"RestoApp/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrderAPI struct {
	placed    *models.Order
	placeErr  error
	advanced  []models.OrderStatus
	cancelled []uint
	tables    []models.Table
}

func (s *stubOrderAPI) PlaceOrder(order *models.Order) (*models.Order, error) {
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	s.placed = order
	order.ID = 1
	order.OrderNumber = "ORD-TEST-0001"
	order.Status = models.OrderStatusPending
	return order, nil
}

func (s *stubOrderAPI) AdvanceOrder(orderID uint, newStatus models.OrderStatus, actor, paymentMethod string) ([]string, error) {
	s.advanced = append(s.advanced, newStatus)
	return nil, nil
}

func (s *stubOrderAPI) CancelOrder(orderID uint) ([]string, error) {
	s.cancelled = append(s.cancelled, orderID)
	return []string{"ingredient gone"}, nil
}

func (s *stubOrderAPI) ToggleItemCooked(orderID uint, index int) error { return nil }

func (s *stubOrderAPI) GetOrder(id uint) (*models.Order, error) {
	return &models.Order{ID: id, OrderNumber: "ORD-TEST-0001"}, nil
}

func (s *stubOrderAPI) GetActiveOrders() ([]models.Order, error) { return nil, nil }
func (s *stubOrderAPI) GetTables() ([]models.Table, error)       { return s.tables, nil }
func (s *stubOrderAPI) GetTable(id uint) (*models.Table, error) {
	return &models.Table{ID: id, Number: "T1"}, nil
}
func (s *stubOrderAPI) UpdateTableStatus(tableID uint, status string) error { return nil }

func newTestHandlers(orderAPI OrderAPI) *RESTHandlers {
	server := NewServer(":0")
	return NewRESTHandlers(nil, server, orderAPI, nil, nil)
}

func TestHandlePlaceOrder(t *testing.T) {
	stub := &stubOrderAPI{}
	handlers := newTestHandlers(stub)

	body, _ := json.Marshal(OrderRequest{
		TableID:      3,
		CustomerName: "Walk-in",
		BoxCount:     1,
		Items: []OrderItemRequest{
			{MenuItemID: 7, Quantity: 2},
		},
	})
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.HandleOrders(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, stub.placed)
	assert.Equal(t, uint(3), stub.placed.TableID)
	require.Len(t, stub.placed.Items, 1)
	assert.Equal(t, uint(7), stub.placed.Items[0].MenuItemID)
	assert.Equal(t, 2, stub.placed.Items[0].Quantity)

	var placed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	assert.Equal(t, "ORD-TEST-0001", placed.OrderNumber)
}

func TestHandlePlaceOrderRejected(t *testing.T) {
	stub := &stubOrderAPI{placeErr: assert.AnError}
	handlers := newTestHandlers(stub)

	body, _ := json.Marshal(OrderRequest{TableID: 3})
	req := httptest.NewRequest("POST", "/api/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.HandleOrders(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestHandleOrderActions(t *testing.T) {
	stub := &stubOrderAPI{}
	handlers := newTestHandlers(stub)

	body, _ := json.Marshal(orderActionRequest{Status: "cooking", Actor: "chef Ma"})
	req := httptest.NewRequest("POST", "/api/orders/5/advance", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handlers.HandleOrderByID(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, stub.advanced, 1)
	assert.Equal(t, models.OrderStatusCooking, stub.advanced[0])

	req = httptest.NewRequest("POST", "/api/orders/5/cancel", nil)
	rec = httptest.NewRecorder()
	handlers.HandleOrderByID(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint{5}, stub.cancelled)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"ingredient gone"}, resp["warnings"])
}

func TestHandleOrderByIDInvalidPath(t *testing.T) {
	handlers := newTestHandlers(&stubOrderAPI{})

	req := httptest.NewRequest("GET", "/api/orders/not-a-number", nil)
	rec := httptest.NewRecorder()
	handlers.HandleOrderByID(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest("POST", "/api/orders/5/frobnicate", nil)
	rec = httptest.NewRecorder()
	handlers.HandleOrderByID(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTableQR(t *testing.T) {
	handlers := newTestHandlers(&stubOrderAPI{})

	req := httptest.NewRequest("GET", "/api/tables/qr?table_id=1", nil)
	rec := httptest.NewRecorder()
	handlers.HandleTableQR(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}
